// Package storage persists the artifacts of the rating system in a prefixed
// key-value store. The following prefixes are used:
//   - 'p/' for pool records
//
// Artifacts are encoded with deterministic CBOR, so the stored bytes of a
// record are reproducible across processes.
package storage

import (
	"errors"
	"fmt"

	"github.com/cipherpool/cipherpool/storage/db"
	"github.com/cipherpool/cipherpool/storage/db/prefixeddb"
)

var (
	// Prefixes for the keys in the database.
	poolPrefix = []byte("p/")
)

// ErrNotFound is returned when the requested artifact is not in the store.
var ErrNotFound = errors.New("artifact not found")

// Storage wraps the database with typed accessors for the stored artifacts.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		panic(err)
	}
}

// setArtifact encodes and stores an artifact under prefix/key in a single
// committed transaction.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact loads and decodes the artifact stored under prefix/key.
// Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := pr.Get(key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// listArtifacts returns the keys stored under the given prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	pr := prefixeddb.NewPrefixedReader(s.db, prefix)
	var keys [][]byte
	if err := pr.Iterate(nil, func(k, _ []byte) bool {
		key := make([]byte, len(k))
		copy(key, k)
		keys = append(keys, key)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
