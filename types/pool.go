package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

// Pool is the persistent record of a rating pool. It is the only entity the
// core stores. There is deliberately no submitter identity, no rating history
// and no timestamp in here: anonymity is structural, not policy.
type Pool struct {
	ID     HexBytes       `json:"id"     cbor:"0,keyasint,omitempty"`
	Owner  common.Address `json:"owner"  cbor:"1,keyasint,omitempty"`
	Exists bool           `json:"exists" cbor:"2,keyasint,omitempty"`
	// SumEnc is the handle of the homomorphic running sum of all accepted
	// ratings. AvgEnc is the handle of the last computed average; it is a
	// cached derived value, stale until the next recompute.
	SumEnc HexBytes `json:"sumEnc" cbor:"3,keyasint,omitempty"`
	AvgEnc HexBytes `json:"avgEnc" cbor:"4,keyasint,omitempty"`
	// Count is the plaintext number of accepted ratings. It is public and
	// not considered sensitive.
	Count uint64 `json:"count" cbor:"5,keyasint"`
}

func (p *Pool) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
