// Package pool implements the state machine that owns rating pool records.
// It ingests encrypted ratings, maintains an encrypted running sum per pool,
// derives an encrypted average on demand and governs who may ever decrypt
// that average. Rating values are opaque ciphertexts the core can combine but
// never inspect; no plaintext rating and no submitter identity ever enters
// this package.
package pool

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/storage"
	"github.com/cipherpool/cipherpool/types"
)

// Pools is the keyed store of pool records together with the collaborator
// capabilities needed to operate on them. All mutations go through the four
// operations (SetOwner, SubmitScore, RecomputeAverage and the access-control
// pair); a single mutex serializes them globally, mirroring the totally
// ordered ledger the records are meant to live on. Each operation is atomic:
// every fallible step runs before the single store commit, so a failure
// leaves no partial state.
type Pools struct {
	mu     sync.Mutex
	store  *storage.Storage
	engine fhe.Engine
	// self is the principal identity of the store itself. The engine must
	// keep granting it read access on the accumulators, otherwise later
	// homomorphic operations on them would not be permitted.
	self common.Address

	subsMu      sync.Mutex
	subscribers []chan Event
}

// New creates a Pools instance over the given storage and encryption engine.
// The self address identifies the store to the engine's access-control list.
func New(store *storage.Storage, engine fhe.Engine, self common.Address) *Pools {
	return &Pools{store: store, engine: engine, self: self}
}

// Version returns the static version tag of the core.
func (p *Pools) Version() string {
	return types.Version
}

// load returns the stored record for pid, or a non-existing zero record if
// the pool was never referenced.
func (p *Pools) load(pid types.PoolID) (*types.Pool, error) {
	pool, err := p.store.Pool(pid)
	if errors.Is(err, storage.ErrNotFound) {
		return &types.Pool{ID: pid.Marshal()}, nil
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Owner returns the current owner of the pool, or the zero address if the
// pool does not exist.
func (p *Pools) Owner(pid types.PoolID) common.Address {
	pool, err := p.load(pid)
	if err != nil {
		log.Errorw(err, "cannot load pool record")
		return common.Address{}
	}
	return pool.Owner
}

// RatingsCount returns the number of accepted ratings, or zero if the pool
// does not exist.
func (p *Pools) RatingsCount(pid types.PoolID) uint64 {
	pool, err := p.load(pid)
	if err != nil {
		log.Errorw(err, "cannot load pool record")
		return 0
	}
	return pool.Count
}

// SumHandle returns the handle of the encrypted running sum, or the zero
// handle if the pool does not exist.
func (p *Pools) SumHandle(pid types.PoolID) fhe.Handle {
	pool, err := p.load(pid)
	if err != nil {
		log.Errorw(err, "cannot load pool record")
		return fhe.Handle{}
	}
	h, err := fhe.HandleFromBytes(pool.SumEnc)
	if err != nil {
		log.Errorw(err, "stored sum handle is malformed")
		return fhe.Handle{}
	}
	return h
}

// AvgHandle returns the handle of the last computed encrypted average, or
// the zero handle if the pool does not exist. The value behind it is stale
// until the next RecomputeAverage call.
func (p *Pools) AvgHandle(pid types.PoolID) fhe.Handle {
	pool, err := p.load(pid)
	if err != nil {
		log.Errorw(err, "cannot load pool record")
		return fhe.Handle{}
	}
	h, err := fhe.HandleFromBytes(pool.AvgEnc)
	if err != nil {
		log.Errorw(err, "stored avg handle is malformed")
		return fhe.Handle{}
	}
	return h
}
