// Package db defines the key-value database abstraction used by the storage
// layer. Implementations live in subpackages; pebbledb is the default.
package db

import "errors"

// TypePebble is the identifier of the pebble database implementation.
const TypePebble = "pebble"

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Options defines generic parameters for the database implementations.
type Options struct {
	Path string
}

// Reader is the interface for read-only access to the database.
type Reader interface {
	// Get retrieves the value for the given key. Returns ErrKeyNotFound if
	// the key does not exist.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with all key-value pairs whose key starts with
	// prefix, in lexicographic key order. Iteration stops when the callback
	// returns false. The supplied slices must not be retained.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// WriteTx is a write transaction. All writes are buffered and applied
// atomically on Commit; a transaction that is never committed must be
// discarded. Reads observe the transaction's own pending writes.
type WriteTx interface {
	Reader

	// Set stores a key-value pair in the transaction.
	Set(key, value []byte) error
	// Delete removes a key from the transaction.
	Delete(key []byte) error
	// Commit atomically applies all the pending writes.
	Commit() error
	// Discard drops the pending writes. Calling it after Commit is a no-op,
	// so it is safe to defer.
	Discard()
}

// Database is a complete key-value database with atomic write transactions.
type Database interface {
	Reader

	// WriteTx creates a new write transaction.
	WriteTx() WriteTx
	// Close closes the database; no operation can be done after this.
	Close() error
}
