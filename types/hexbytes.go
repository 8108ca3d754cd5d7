package types

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is the deterministic encoding mode shared by the custom CBOR
// marshalers in this package.
var cborEncMode, _ = cbor.CoreDetEncOptions().EncMode()

func cborDecode(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// HexBytes is a []byte which marshals JSON as a hex string with 0x prefix.
type HexBytes []byte

func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. It accepts hex
// strings with or without the 0x prefix.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid HexBytes: %q", data)
	}
	decoded, err := hex.DecodeString(TrimHex(string(data[1 : len(data)-1])))
	if err != nil {
		return fmt.Errorf("invalid HexBytes: %w", err)
	}
	*b = decoded
	return nil
}
