// Package prefixeddb wraps a db.Database namespacing all keys under a fixed
// prefix, so independent artifact families can share a single database.
package prefixeddb

import "github.com/cipherpool/cipherpool/storage/db"

// PrefixedDatabase wraps a db.Database prepending a prefix to all keys.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

// NewPrefixedDatabase returns a PrefixedDatabase over the given database.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: database, prefix: prefix}
}

// Get implements db.Reader.
func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(join(d.prefix, key))
}

// Iterate implements db.Reader.
func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return d.db.Iterate(join(d.prefix, prefix), callback)
}

// WriteTx implements db.Database.
func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close implements db.Database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// NewPrefixedReader returns a db.Reader which namespaces all reads under the
// given prefix.
func NewPrefixedReader(reader db.Reader, prefix []byte) db.Reader {
	return &prefixedReader{reader: reader, prefix: prefix}
}

type prefixedReader struct {
	reader db.Reader
	prefix []byte
}

func (r *prefixedReader) Get(key []byte) ([]byte, error) {
	return r.reader.Get(join(r.prefix, key))
}

func (r *prefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return r.reader.Iterate(join(r.prefix, prefix), callback)
}

// NewPrefixedWriteTx returns a db.WriteTx which namespaces all operations
// under the given prefix. Commit and Discard act on the wrapped transaction.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) db.WriteTx {
	return &prefixedWriteTx{tx: tx, prefix: prefix}
}

type prefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

func (t *prefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(join(t.prefix, key))
}

func (t *prefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return t.tx.Iterate(join(t.prefix, prefix), callback)
}

func (t *prefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(join(t.prefix, key), value)
}

func (t *prefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(join(t.prefix, key))
}

func (t *prefixedWriteTx) Commit() error { return t.tx.Commit() }

func (t *prefixedWriteTx) Discard() { t.tx.Discard() }

func join(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}
