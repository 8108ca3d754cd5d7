package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// SetOwner creates the pool on first reference or transfers its ownership.
//
// A pool that was never referenced is bootstrapped: its running sum and its
// average are set to the encrypted representation of zero and the store's own
// read access to both is established, so later homomorphic operations on them
// are permitted. Any caller may bootstrap an uninitialized pool: two first
// callers racing on the same identifier resolve by serialization order, the
// one committing first becomes owner and the loser fails on the
// already-exists branch.
//
// On an existing pool, only the current owner may transfer ownership.
func (p *Pools) SetOwner(pid types.PoolID, caller, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return ErrBadAddress
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, err := p.load(pid)
	if err != nil {
		return err
	}
	if pool.Exists {
		if pool.Owner != caller {
			return fmt.Errorf("%w: %s", ErrNotOwner, caller)
		}
		pool.Owner = newOwner
	} else {
		sum, err := p.engine.EncryptZero(fhe.Uint64)
		if err != nil {
			return fmt.Errorf("encrypt zero sum: %w", err)
		}
		avg, err := p.engine.EncryptZero(fhe.Uint64)
		if err != nil {
			return fmt.Errorf("encrypt zero avg: %w", err)
		}
		if err := p.engine.GrantRead(sum, p.self); err != nil {
			return fmt.Errorf("grant store access on sum: %w", err)
		}
		if err := p.engine.GrantRead(avg, p.self); err != nil {
			return fmt.Errorf("grant store access on avg: %w", err)
		}
		pool.Exists = true
		pool.Owner = newOwner
		pool.SumEnc = sum.Bytes()
		pool.AvgEnc = avg.Bytes()
	}
	if err := p.store.SetPool(pool); err != nil {
		return fmt.Errorf("store pool record: %w", err)
	}
	log.Infow("pool owner set", "pool", pid.String(), "owner", newOwner.Hex())
	p.emit(Event{Type: EventOwnerSet, Pool: pid, To: newOwner})
	return nil
}
