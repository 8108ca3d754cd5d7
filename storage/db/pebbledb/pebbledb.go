// Package pebbledb implements the db interfaces on top of cockroachdb/pebble.
package pebbledb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/cipherpool/cipherpool/storage/db"
)

// New returns a db.Database implementation backed by a pebble database at
// opts.Path.
func New(opts db.Options) (db.Database, error) {
	popts := &pebble.Options{
		Cache: pebble.NewCache(32 << 20),
	}
	pdb, err := pebble.Open(opts.Path, popts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %q: %w", opts.Path, err)
	}
	return &Database{db: pdb}, nil
}

// Database implements db.Database with pebble.
type Database struct {
	db *pebble.DB
}

// Get implements db.Reader.
func (d *Database) Get(key []byte) ([]byte, error) {
	value, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			panic(err)
		}
	}()
	// Copy, the slice is invalid after closer.Close().
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Iterate implements db.Reader.
func (d *Database) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(d.db.NewIter, prefix, callback)
}

// WriteTx implements db.Database. The returned transaction is an indexed
// pebble batch, so it observes its own pending writes.
func (d *Database) WriteTx() db.WriteTx {
	return &WriteTx{batch: d.db.NewIndexedBatch()}
}

// Close implements db.Database.
func (d *Database) Close() error {
	return d.db.Close()
}

// WriteTx implements db.WriteTx with an indexed pebble batch.
type WriteTx struct {
	batch *pebble.Batch
	done  bool
}

// Get implements db.Reader.
func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	value, closer, err := tx.batch.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			panic(err)
		}
	}()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Iterate implements db.Reader.
func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(tx.batch.NewIter, prefix, callback)
}

// Set implements db.WriteTx.
func (tx *WriteTx) Set(key, value []byte) error {
	return tx.batch.Set(key, value, nil)
}

// Delete implements db.WriteTx.
func (tx *WriteTx) Delete(key []byte) error {
	return tx.batch.Delete(key, nil)
}

// Commit implements db.WriteTx.
func (tx *WriteTx) Commit() error {
	if tx.done {
		return fmt.Errorf("write transaction already committed or discarded")
	}
	tx.done = true
	return tx.batch.Commit(pebble.Sync)
}

// Discard implements db.WriteTx.
func (tx *WriteTx) Discard() {
	if tx.done {
		return
	}
	tx.done = true
	if err := tx.batch.Close(); err != nil {
		panic(err)
	}
}

func iterate(newIter func(*pebble.IterOptions) (*pebble.Iterator, error),
	prefix []byte, callback func(key, value []byte) bool,
) error {
	iterOpts := &pebble.IterOptions{}
	if len(prefix) > 0 {
		iterOpts.LowerBound = prefix
		iterOpts.UpperBound = prefixUpperBound(prefix)
	}
	iter, err := newIter(iterOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := iter.Close(); err != nil {
			panic(err)
		}
	}()
	for iter.First(); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		if !callback(iter.Key()[len(prefix):], iter.Value()) {
			break
		}
	}
	return nil
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil if the prefix is all 0xff bytes.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}
