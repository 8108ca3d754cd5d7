package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherpool/cipherpool/types"
)

// SetOwnerRequest creates a pool or transfers its ownership. The signature
// must be produced by the caller over SetOwnerMessage.
type SetOwnerRequest struct {
	NewOwner  common.Address `json:"newOwner"  validate:"required"`
	Signature types.HexBytes `json:"signature" validate:"required"`
}

// SubmitScoreRequest carries an externally encrypted rating. It is
// deliberately unauthenticated: the submitter stays anonymous.
type SubmitScoreRequest struct {
	Ciphertext  types.HexBytes `json:"ciphertext"  validate:"required"`
	Attestation types.HexBytes `json:"attestation" validate:"required"`
}

// GrantAccessRequest grants a principal read capability on the current
// average handle. The signature must be produced by the pool owner over
// GrantAccessMessage.
type GrantAccessRequest struct {
	To        common.Address `json:"to"        validate:"required"`
	Signature types.HexBytes `json:"signature" validate:"required"`
}

// MakePublicRequest marks the current average handle publicly decryptable.
// The signature must be produced by the pool owner over MakePublicMessage.
type MakePublicRequest struct {
	Signature types.HexBytes `json:"signature" validate:"required"`
}

// PoolResponse is the public view of a pool record. It carries handles and
// the plaintext counter, never a plaintext rating or average.
type PoolResponse struct {
	PoolID    types.HexBytes `json:"poolId"`
	Owner     common.Address `json:"owner"`
	Count     uint64         `json:"count"`
	SumHandle types.HexBytes `json:"sumHandle,omitempty"`
	AvgHandle types.HexBytes `json:"avgHandle,omitempty"`
	Version   string         `json:"version"`
}

// SubmitScoreResponse reports the new public counter after an accepted
// submission.
type SubmitScoreResponse struct {
	Count uint64 `json:"count"`
}

// Canonical messages signed by callers of the owner-gated operations. The
// pool identifier (and grantee, where present) is bound into the message so
// a signature cannot be replayed against another pool or principal.
func SetOwnerMessage(pid types.PoolID, newOwner common.Address) []byte {
	return []byte("cipherpool/setOwner/" + pid.String() + "/" + newOwner.Hex())
}

func GrantAccessMessage(pid types.PoolID, to common.Address) []byte {
	return []byte("cipherpool/grantAccess/" + pid.String() + "/" + to.Hex())
}

func MakePublicMessage(pid types.PoolID) []byte {
	return []byte("cipherpool/makePublic/" + pid.String())
}
