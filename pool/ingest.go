package pool

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/log"
	"github.com/cipherpool/cipherpool/types"
)

// SubmitScore folds an externally encrypted rating into the pool's running
// sum and advances the public counter. The attestation must prove the
// ciphertext well-formed to the encryption collaborator; the value itself is
// clamped into [MinScore, MaxScore] homomorphically, so out-of-range
// submissions are projected into range rather than rejected. Nothing about
// the submitter is recorded: anonymity is guaranteed by omission.
func (p *Pools) SubmitScore(pid types.PoolID, external, attestation []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pool, err := p.load(pid)
	if err != nil {
		return err
	}
	if !pool.Exists || pool.Owner == (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrPoolNotConfigured, pid)
	}

	imported, err := p.engine.ImportCiphertext(external, attestation)
	if err != nil {
		if errors.Is(err, fhe.ErrInvalidAttestation) {
			return fmt.Errorf("%w: %v", ErrInvalidAttestation, err)
		}
		return fmt.Errorf("import ciphertext: %w", err)
	}
	clamped, err := p.engine.Bound(imported, types.MinScore, types.MaxScore)
	if err != nil {
		return fmt.Errorf("clamp score: %w", err)
	}
	widened, err := p.engine.Widen(clamped, fhe.Uint64)
	if err != nil {
		return fmt.Errorf("widen score: %w", err)
	}

	// The first accepted score replaces the sum directly, avoiding a
	// homomorphic add against the implicit zero.
	sum := widened
	if pool.Count > 0 {
		current, err := fhe.HandleFromBytes(pool.SumEnc)
		if err != nil {
			return fmt.Errorf("stored sum handle: %w", err)
		}
		if sum, err = p.engine.Add(current, widened); err != nil {
			return fmt.Errorf("accumulate score: %w", err)
		}
	}
	if err := p.engine.GrantRead(sum, p.self); err != nil {
		return fmt.Errorf("grant store access on sum: %w", err)
	}

	pool.SumEnc = sum.Bytes()
	pool.Count++
	if err := p.store.SetPool(pool); err != nil {
		return fmt.Errorf("store pool record: %w", err)
	}
	log.Infow("score submitted", "pool", pid.String(), "count", pool.Count)
	p.emit(Event{Type: EventScoreSubmitted, Pool: pid, Count: pool.Count})
	return nil
}
