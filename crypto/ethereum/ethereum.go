// Package ethereum provides the ECDSA signing and recovery helpers used to
// identify principals. Every owner and reader in cipherpool is an Ethereum
// style address; callers authenticate by signing a canonical message.
package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cipherpool/cipherpool/types"
)

// SignatureLength is the size in bytes of an ECDSA signature with recovery id.
const SignatureLength = ethcrypto.SignatureLength

// signaturePrefix is prepended to any signed message, following the Ethereum
// personal_sign convention.
const signaturePrefix = "\x19Ethereum Signed Message:\n"

// SignKeys is an ECDSA key pair used for signing and address derivation.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys creates an empty key pair.
func NewSignKeys() *SignKeys {
	return new(SignKeys)
}

// Generate creates a fresh random key pair.
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private key from its hex representation.
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(types.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the compressed public key and the private key as hex
// strings, without the 0x prefix.
func (k *SignKeys) HexString() (string, string) {
	pub := fmt.Sprintf("%x", ethcrypto.CompressPubkey(&k.Public))
	priv := fmt.Sprintf("%x", ethcrypto.FromECDSA(&k.Private))
	return pub, priv
}

// Address returns the Ethereum address derived from the public key.
func (k *SignKeys) Address() common.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// AddressString returns the checksummed hex representation of the address.
func (k *SignKeys) AddressString() string {
	return k.Address().String()
}

// PublicKey returns the compressed public key bytes.
func (k *SignKeys) PublicKey() []byte {
	return ethcrypto.CompressPubkey(&k.Public)
}

// AddrFromPublicKey derives the address from a compressed public key.
func AddrFromPublicKey(pub []byte) (common.Address, error) {
	key, err := ethcrypto.DecompressPubkey(pub)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*key), nil
}

// SignEthereum signs the message with the Ethereum personal_sign prefix and
// returns the 65-byte signature with the raw recovery id in the last byte.
func (k *SignKeys) SignEthereum(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, fmt.Errorf("no private key available")
	}
	return ethcrypto.Sign(EthereumHash(message), &k.Private)
}

// AddrFromSignature recovers the address which created the given signature
// over the given (unhashed) message.
func AddrFromSignature(message, signature []byte) (common.Address, error) {
	pub, err := pubKeyFromSignature(EthereumHash(message), signature)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether the signature over message was created by the owner
// of the given address.
func Verify(message, signature []byte, address common.Address) (bool, error) {
	recovered, err := AddrFromSignature(message, signature)
	if err != nil {
		return false, err
	}
	return recovered == address, nil
}

// EthereumHash hashes the message the way Ethereum wallets do: keccak256 over
// the personal_sign prefix, the decimal message length and the message.
func EthereumHash(message []byte) []byte {
	prefixed := fmt.Sprintf("%s%s%s", signaturePrefix, strconv.Itoa(len(message)), message)
	return HashRaw([]byte(prefixed))
}

// HashRaw computes the plain keccak256 hash of data.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}

func pubKeyFromSignature(hash, signature []byte) (*ecdsa.PublicKey, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d", len(signature))
	}
	// Normalize the recovery id, some signers add 27.
	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return nil, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	return ethcrypto.SigToPub(hash, sig)
}
