package storage

import (
	"fmt"

	"github.com/cipherpool/cipherpool/types"
)

// Pool retrieves a pool record from the storage. It returns ErrNotFound if
// the pool has never been written.
func (s *Storage) Pool(pid types.PoolID) (*types.Pool, error) {
	p := &types.Pool{}
	if err := s.getArtifact(poolPrefix, pid.Marshal(), p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetPool stores a pool record, overwriting any previous version atomically.
func (s *Storage) SetPool(pool *types.Pool) error {
	if pool == nil {
		return fmt.Errorf("nil pool record")
	}
	if len(pool.ID) != types.PoolIDLen {
		return fmt.Errorf("invalid pool ID length: %d", len(pool.ID))
	}
	return s.setArtifact(poolPrefix, pool.ID, pool)
}

// ListPools returns the identifiers of all stored pools.
func (s *Storage) ListPools() ([][]byte, error) {
	return s.listArtifacts(poolPrefix)
}
