package types

const (
	// Version is the static version tag reported by the read-only accessors
	// and the API.
	Version = "cipherpool/0.1"

	// MinScore and MaxScore bound the plaintext value of every accepted
	// rating. Out-of-range submissions are clamped into this range
	// homomorphically, never rejected.
	MinScore = 0
	MaxScore = 100
)
