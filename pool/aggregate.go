package pool

import (
	"fmt"

	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// RecomputeAverage derives the encrypted average from the encrypted sum and
// the public counter. The division truncates, matching plaintext integer
// division. The average is a cached value: it is NOT refreshed automatically
// on submission, only by this call.
//
// The store's own access and the current owner's read access are
// re-established on the fresh average handle. Grants previously given to
// other principals are not renewed; the owner must grant them again on the
// new handle.
func (p *Pools) RecomputeAverage(pid types.PoolID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, err := p.load(pid)
	if err != nil {
		return err
	}
	if !pool.Exists {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, pid)
	}
	if pool.Count == 0 {
		return fmt.Errorf("%w: pool %s", ErrNoScores, pid)
	}

	sum, err := fhe.HandleFromBytes(pool.SumEnc)
	if err != nil {
		return fmt.Errorf("stored sum handle: %w", err)
	}
	avg, err := p.engine.DivScalar(sum, pool.Count)
	if err != nil {
		return fmt.Errorf("derive average: %w", err)
	}
	if err := p.engine.GrantRead(avg, p.self); err != nil {
		return fmt.Errorf("grant store access on avg: %w", err)
	}
	if err := p.engine.GrantRead(avg, pool.Owner); err != nil {
		return fmt.Errorf("grant owner access on avg: %w", err)
	}

	pool.AvgEnc = avg.Bytes()
	if err := p.store.SetPool(pool); err != nil {
		return fmt.Errorf("store pool record: %w", err)
	}
	log.Infow("average recomputed", "pool", pid.String(), "count", pool.Count)
	p.emit(Event{Type: EventAverageRecomputed, Pool: pid, Count: pool.Count})
	return nil
}
