package pool

import (
	"errors"
	"fmt"
)

// The three failure classes of the core. Every operation error wraps exactly
// one of them, so callers can classify failures with errors.Is without
// matching strings.
var (
	// ErrAuthorization covers calls by a principal other than the current
	// pool owner.
	ErrAuthorization = errors.New("authorization error")
	// ErrValidation covers malformed inputs: bad addresses and attestations
	// that do not verify.
	ErrValidation = errors.New("validation error")
	// ErrState covers operations against a pool in the wrong lifecycle
	// state: missing, not yet configured, or without any accepted score.
	ErrState = errors.New("state error")
)

var (
	// ErrNotOwner is returned when an owner-gated operation is called by
	// anyone else.
	ErrNotOwner = fmt.Errorf("%w: caller is not the pool owner", ErrAuthorization)
	// ErrBadAddress is returned when a principal argument is the zero
	// address.
	ErrBadAddress = fmt.Errorf("%w: zero address", ErrValidation)
	// ErrInvalidAttestation is returned when the ciphertext attestation does
	// not verify during import.
	ErrInvalidAttestation = fmt.Errorf("%w: attestation does not verify", ErrValidation)
	// ErrPoolNotConfigured is returned when a score is submitted to a pool
	// that has no owner yet.
	ErrPoolNotConfigured = fmt.Errorf("%w: pool not configured", ErrState)
	// ErrPoolNotFound is returned when an operation other than SetOwner
	// references a pool that was never bootstrapped.
	ErrPoolNotFound = fmt.Errorf("%w: pool not found", ErrState)
	// ErrNoScores is returned when recomputing the average of a pool without
	// any accepted rating.
	ErrNoScores = fmt.Errorf("%w: no scores submitted", ErrState)
)
