package types

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// PoolIDLen is the length in bytes of a serialized PoolID.
const PoolIDLen = 32

// PoolID identifies a rating pool. It is an opaque 32-byte value, normally
// derived from a human-readable pool name by the caller with NewPoolID. The
// core never derives identifiers itself, it only keys the store with them.
type PoolID [PoolIDLen]byte

// NewPoolID derives a PoolID from a human-readable name.
func NewPoolID(name string) PoolID {
	return PoolID(blake3.Sum256([]byte(name)))
}

// Marshal encodes the PoolID to bytes.
func (p PoolID) Marshal() []byte {
	id := make([]byte, PoolIDLen)
	copy(id, p[:])
	return id
}

// Unmarshal decodes bytes to a PoolID.
func (p *PoolID) Unmarshal(data []byte) error {
	if len(data) != PoolIDLen {
		return fmt.Errorf("invalid PoolID length: %d", len(data))
	}
	copy(p[:], data)
	return nil
}

// MarshalBinary implements the BinaryMarshaler interface.
func (p PoolID) MarshalBinary() (data []byte, err error) {
	return p.Marshal(), nil
}

// UnmarshalBinary implements the BinaryUnmarshaler interface.
func (p *PoolID) UnmarshalBinary(data []byte) error {
	return p.Unmarshal(data)
}

// IsZero reports whether the PoolID is the zero value.
func (p PoolID) IsZero() bool {
	return p == PoolID{}
}

// String returns a human readable representation of the pool ID.
func (p PoolID) String() string {
	return hex.EncodeToString(p[:])
}

// PoolIDFromString decodes a hex string into a PoolID.
func PoolIDFromString(s string) (PoolID, error) {
	var p PoolID
	data, err := hex.DecodeString(TrimHex(s))
	if err != nil {
		return p, fmt.Errorf("invalid PoolID hex: %w", err)
	}
	if err := p.Unmarshal(data); err != nil {
		return p, err
	}
	return p, nil
}

// TrimHex trims the '0x' prefix from a hex string.
func TrimHex(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
