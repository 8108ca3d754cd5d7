// Package fhe defines the boundary with the homomorphic encryption
// collaborator. The core never implements the scheme: it holds opaque
// ciphertext handles and drives them through the fixed operation set exposed
// by the Engine interface. Decryption is never available to the core; it is a
// separate capability (Decryptor) held only by the external decryption path.
package fhe

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// HandleLen is the length in bytes of a ciphertext handle.
const HandleLen = 32

// Handle is an opaque fixed-size identifier referencing a ciphertext held by
// the encryption collaborator. Handles can be stored and forwarded but never
// inspected; their internal layout belongs to the collaborator.
type Handle [HandleLen]byte

// IsZero reports whether the handle is the zero value, meaning no ciphertext.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Bytes returns a copy of the handle bytes.
func (h Handle) Bytes() []byte {
	b := make([]byte, HandleLen)
	copy(b, h[:])
	return b
}

// String returns the handle as a hex string.
func (h Handle) String() string {
	return hex.EncodeToString(h[:])
}

// HandleFromBytes builds a Handle from its serialized form. An empty slice
// yields the zero handle.
func HandleFromBytes(data []byte) (Handle, error) {
	var h Handle
	if len(data) == 0 {
		return h, nil
	}
	if len(data) != HandleLen {
		return h, fmt.Errorf("invalid handle length: %d", len(data))
	}
	copy(h[:], data)
	return h, nil
}

// Width is the integer width of an encrypted value.
type Width uint8

const (
	// Uint8 is the width of an individual rating ciphertext.
	Uint8 Width = 8
	// Uint64 is the width of running sums and averages.
	Uint64 Width = 64
)

// Errors returned by Engine and Decryptor implementations.
var (
	// ErrInvalidAttestation means the attestation accompanying an external
	// ciphertext did not verify.
	ErrInvalidAttestation = errors.New("invalid ciphertext attestation")
	// ErrUnknownHandle means the handle does not reference any ciphertext
	// known to the collaborator.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")
	// ErrAccessDenied means the principal holds no read grant on the handle.
	ErrAccessDenied = errors.New("no read access to ciphertext")
)

// Engine is the capability surface the core consumes. Every operation works
// on opaque handles; no operation reveals a plaintext.
type Engine interface {
	// ImportCiphertext verifies the attestation over an externally supplied
	// ciphertext and, if valid, registers it returning a fresh handle of
	// Uint8 width.
	ImportCiphertext(external, attestation []byte) (Handle, error)
	// EncryptZero returns a handle to the encrypted representation of zero
	// at the given width.
	EncryptZero(w Width) (Handle, error)
	// Bound projects the underlying value into [lo, hi], returning a new
	// handle. Out-of-range values are clamped, never rejected.
	Bound(h Handle, lo, hi uint64) (Handle, error)
	// Widen re-encodes the value at a wider width, returning a new handle.
	Widen(h Handle, w Width) (Handle, error)
	// Add returns a handle to the homomorphic sum of both operands.
	Add(a, b Handle) (Handle, error)
	// DivScalar returns a handle to the truncated quotient of the value by
	// the plaintext divisor.
	DivScalar(h Handle, divisor uint64) (Handle, error)
	// GrantRead allows the principal to later decrypt the handle. Grants
	// are permanent; there is no revoke.
	GrantRead(h Handle, to common.Address) error
	// MarkPublic makes the handle decryptable by any party holding it.
	// This is a one-way transition.
	MarkPublic(h Handle) error
}

// Decryptor is the external decryption path. The core never holds this
// capability; it exists for clients and tests.
type Decryptor interface {
	// Decrypt returns the plaintext behind the handle if the principal has
	// a read grant on it, or the handle is public.
	Decrypt(h Handle, principal common.Address) (*big.Int, error)
	// PublicDecrypt returns the plaintext behind a handle previously marked
	// public.
	PublicDecrypt(h Handle) (*big.Int, error)
}
