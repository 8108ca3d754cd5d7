package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// GrantAccess gives a principal permanent read capability on the average
// handle present at call time. Grants are additive, there is no revoke. A
// later RecomputeAverage produces a fresh handle whose access policy must be
// re-established separately.
func (p *Pools) GrantAccess(pid types.PoolID, caller, to common.Address) error {
	if to == (common.Address{}) {
		return ErrBadAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	avg, err := p.loadOwned(pid, caller)
	if err != nil {
		return err
	}
	if err := p.engine.GrantRead(avg, to); err != nil {
		return fmt.Errorf("grant read on avg: %w", err)
	}
	log.Infow("access granted", "pool", pid.String(), "to", to.Hex())
	p.emit(Event{Type: EventAccessGranted, Pool: pid, To: to})
	return nil
}

// MakePublic marks the current average handle as decryptable by anyone
// holding it. This is a one-way transition; there is no way back to private.
func (p *Pools) MakePublic(pid types.PoolID, caller common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	avg, err := p.loadOwned(pid, caller)
	if err != nil {
		return err
	}
	if err := p.engine.MarkPublic(avg); err != nil {
		return fmt.Errorf("mark avg public: %w", err)
	}
	log.Infow("average made public", "pool", pid.String())
	p.emit(Event{Type: EventMadePublic, Pool: pid})
	return nil
}

// loadOwned loads the pool, checks the caller is its owner and returns the
// current average handle. Must be called with the mutex held.
func (p *Pools) loadOwned(pid types.PoolID, caller common.Address) (fhe.Handle, error) {
	pool, err := p.load(pid)
	if err != nil {
		return fhe.Handle{}, err
	}
	if !pool.Exists {
		return fhe.Handle{}, fmt.Errorf("%w: %s", ErrPoolNotFound, pid)
	}
	if pool.Owner != caller {
		return fhe.Handle{}, fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	avg, err := fhe.HandleFromBytes(pool.AvgEnc)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("stored avg handle: %w", err)
	}
	return avg, nil
}
