package types

import (
	"fmt"
	"math/big"
)

// BigInt is a big.Int wrapper which marshals JSON and CBOR as a decimal
// string, so arbitrary precision values survive clients that cannot handle
// 64-bit integers.
type BigInt big.Int

// MathBigInt converts b to a *big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

func (b *BigInt) String() string {
	return b.MathBigInt().String()
}

// MarshalJSON implements the json.Marshaler interface.
func (b *BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. It accepts both
// quoted and unquoted decimal representations.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return b.setString(s)
}

// MarshalCBOR implements the cbor.Marshaler interface.
func (b *BigInt) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(b.String())
}

// UnmarshalCBOR implements the cbor.Unmarshaler interface.
func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cborDecode(data, &s); err != nil {
		return err
	}
	return b.setString(s)
}

func (b *BigInt) setString(s string) error {
	if _, ok := b.MathBigInt().SetString(s, 10); !ok {
		return fmt.Errorf("invalid BigInt string: %q", s)
	}
	return nil
}
