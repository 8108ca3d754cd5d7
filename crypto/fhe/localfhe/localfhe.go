// Package localfhe is the in-process implementation of the fhe collaborator
// boundary, used by the daemon in dev mode and by the test suite. It keeps
// the plaintext ledger strictly behind the handle boundary: values are only
// reachable through the capability interfaces, external ciphertexts are
// sealed with ECIES to the engine key, and attestations are ECDSA signatures
// by the registered gateway.
package localfhe

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"github.com/zeebo/blake3"

	"github.com/cipherpool/cipherpool/crypto/ethereum"
	"github.com/cipherpool/cipherpool/crypto/fhe"
	"github.com/cipherpool/cipherpool/util"
)

// handleDomain separates handle derivation from any other blake3 use.
const handleDomain = "cipherpool/localfhe/handle"

// ciphertext is a plaintext ledger entry. It is never exposed outside the
// engine.
type ciphertext struct {
	value *big.Int
	width fhe.Width
}

// Engine implements fhe.Engine and fhe.Decryptor in-process.
type Engine struct {
	mu      sync.Mutex
	key     *ecies.PrivateKey
	gateway common.Address
	values  map[fhe.Handle]*ciphertext
	grants  map[fhe.Handle]map[common.Address]bool
	public  map[fhe.Handle]bool
}

// New creates an Engine with a fresh ECIES key pair. Only ciphertexts sealed
// by the given gateway address will pass attestation checks.
func New(gateway common.Address) (*Engine, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate engine key: %w", err)
	}
	return &Engine{
		key:     ecies.ImportECDSA(key),
		gateway: gateway,
		values:  make(map[fhe.Handle]*ciphertext),
		grants:  make(map[fhe.Handle]map[common.Address]bool),
		public:  make(map[fhe.Handle]bool),
	}, nil
}

// NewFromHexKey creates an Engine from an existing private key in hex form,
// so the handle space survives daemon restarts with the same key material.
func NewFromHexKey(privHex string, gateway common.Address) (*Engine, error) {
	signer := ethereum.NewSignKeys()
	if err := signer.AddHexKey(privHex); err != nil {
		return nil, fmt.Errorf("import engine key: %w", err)
	}
	return &Engine{
		key:     ecies.ImportECDSA(&signer.Private),
		gateway: gateway,
		values:  make(map[fhe.Handle]*ciphertext),
		grants:  make(map[fhe.Handle]map[common.Address]bool),
		public:  make(map[fhe.Handle]bool),
	}, nil
}

// PublicKey returns the engine encryption public key, to be handed to the
// sealing gateway.
func (e *Engine) PublicKey() *ecies.PublicKey {
	return &e.key.PublicKey
}

// ImportCiphertext implements fhe.Engine. The attestation must be an ECDSA
// signature by the registered gateway over the external ciphertext.
func (e *Engine) ImportCiphertext(external, attestation []byte) (fhe.Handle, error) {
	signer, err := ethereum.AddrFromSignature(external, attestation)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: %v", fhe.ErrInvalidAttestation, err)
	}
	if signer != e.gateway {
		return fhe.Handle{}, fmt.Errorf("%w: signed by %s, expected gateway %s",
			fhe.ErrInvalidAttestation, signer, e.gateway)
	}
	plaintext, err := e.key.Decrypt(external, nil, nil)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: unseal failed: %v", fhe.ErrInvalidAttestation, err)
	}
	value, ok := new(big.Int).SetString(string(plaintext), 10)
	if !ok {
		return fhe.Handle{}, fmt.Errorf("%w: malformed plaintext encoding", fhe.ErrInvalidAttestation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(value, fhe.Uint8), nil
}

// EncryptZero implements fhe.Engine.
func (e *Engine) EncryptZero(w fhe.Width) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.register(big.NewInt(0), w), nil
}

// Bound implements fhe.Engine.
func (e *Engine) Bound(h fhe.Handle, lo, hi uint64) (fhe.Handle, error) {
	if lo > hi {
		return fhe.Handle{}, fmt.Errorf("invalid bounds [%d, %d]", lo, hi)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ct, err := e.lookup(h)
	if err != nil {
		return fhe.Handle{}, err
	}
	value := new(big.Int).Set(ct.value)
	if loInt := new(big.Int).SetUint64(lo); value.Cmp(loInt) < 0 {
		value.Set(loInt)
	}
	if hiInt := new(big.Int).SetUint64(hi); value.Cmp(hiInt) > 0 {
		value.Set(hiInt)
	}
	return e.register(value, ct.width), nil
}

// Widen implements fhe.Engine.
func (e *Engine) Widen(h fhe.Handle, w fhe.Width) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ct, err := e.lookup(h)
	if err != nil {
		return fhe.Handle{}, err
	}
	if w < ct.width {
		return fhe.Handle{}, fmt.Errorf("cannot narrow ciphertext from %d to %d bits", ct.width, w)
	}
	return e.register(new(big.Int).Set(ct.value), w), nil
}

// Add implements fhe.Engine.
func (e *Engine) Add(a, b fhe.Handle) (fhe.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, err := e.lookup(a)
	if err != nil {
		return fhe.Handle{}, err
	}
	y, err := e.lookup(b)
	if err != nil {
		return fhe.Handle{}, err
	}
	if x.width != y.width {
		return fhe.Handle{}, fmt.Errorf("width mismatch: %d and %d bits", x.width, y.width)
	}
	return e.register(new(big.Int).Add(x.value, y.value), x.width), nil
}

// DivScalar implements fhe.Engine. Division truncates, matching plaintext
// integer division.
func (e *Engine) DivScalar(h fhe.Handle, divisor uint64) (fhe.Handle, error) {
	if divisor == 0 {
		return fhe.Handle{}, fmt.Errorf("division by zero")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	ct, err := e.lookup(h)
	if err != nil {
		return fhe.Handle{}, err
	}
	quotient := new(big.Int).Quo(ct.value, new(big.Int).SetUint64(divisor))
	return e.register(quotient, ct.width), nil
}

// GrantRead implements fhe.Engine.
func (e *Engine) GrantRead(h fhe.Handle, to common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.lookup(h); err != nil {
		return err
	}
	if e.grants[h] == nil {
		e.grants[h] = make(map[common.Address]bool)
	}
	e.grants[h][to] = true
	return nil
}

// MarkPublic implements fhe.Engine.
func (e *Engine) MarkPublic(h fhe.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.lookup(h); err != nil {
		return err
	}
	e.public[h] = true
	return nil
}

// Decrypt implements fhe.Decryptor.
func (e *Engine) Decrypt(h fhe.Handle, principal common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ct, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	if !e.public[h] && !e.grants[h][principal] {
		return nil, fmt.Errorf("%w: principal %s", fhe.ErrAccessDenied, principal)
	}
	return new(big.Int).Set(ct.value), nil
}

// PublicDecrypt implements fhe.Decryptor.
func (e *Engine) PublicDecrypt(h fhe.Handle) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ct, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	if !e.public[h] {
		return nil, fmt.Errorf("%w: handle is not public", fhe.ErrAccessDenied)
	}
	return new(big.Int).Set(ct.value), nil
}

// register stores a fresh ledger entry and returns its handle. A random
// nonce goes into the derivation so equal values yield distinct handles.
// Must be called with the mutex held.
func (e *Engine) register(value *big.Int, w fhe.Width) fhe.Handle {
	hasher := blake3.New()
	_, _ = hasher.WriteString(handleDomain)
	_, _ = hasher.Write([]byte{byte(w)})
	_, _ = hasher.Write(value.Bytes())
	_, _ = hasher.Write(util.RandomBytes(16))
	var h fhe.Handle
	copy(h[:], hasher.Sum(nil))
	e.values[h] = &ciphertext{value: value, width: w}
	return h
}

// lookup must be called with the mutex held.
func (e *Engine) lookup(h fhe.Handle) (*ciphertext, error) {
	ct, ok := e.values[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
	}
	return ct, nil
}

// Gateway is the client-side sealing front end. It encrypts a plaintext
// rating to the engine key and attests the resulting ciphertext with its
// signing key. The gateway identity says nothing about the submitter: every
// submission carries the same gateway attestation.
type Gateway struct {
	signer    *ethereum.SignKeys
	enginePub *ecies.PublicKey
}

// NewGateway creates a Gateway sealing to the given engine public key.
func NewGateway(signer *ethereum.SignKeys, enginePub *ecies.PublicKey) *Gateway {
	return &Gateway{signer: signer, enginePub: enginePub}
}

// Address returns the gateway signing address, the one the engine must be
// configured to trust.
func (g *Gateway) Address() common.Address {
	return g.signer.Address()
}

// Seal encrypts the value to the engine key and returns the external
// ciphertext plus its attestation.
func (g *Gateway) Seal(value int64) (external, attestation []byte, err error) {
	plaintext := []byte(big.NewInt(value).String())
	external, err = ecies.Encrypt(rand.Reader, g.enginePub, plaintext, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("seal rating: %w", err)
	}
	attestation, err = g.signer.SignEthereum(external)
	if err != nil {
		return nil, nil, fmt.Errorf("attest rating: %w", err)
	}
	return external, attestation, nil
}
