// Package prefixeddb wraps a db.Database (or a db.WriteTx) so that all
// operations happen under a fixed key prefix. It is the mechanism the
// storage layer uses to namespace its artifacts.
package prefixeddb

import (
	"github.com/cipherscore/cipherscore-node/db"
)

// PrefixedDatabase implements db.Database restricted to a key prefix.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

// Ensure that PrefixedDatabase implements the db.Database interface.
var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a view of d where every key is transparently
// prefixed with prefix.
func NewPrefixedDatabase(d db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{db: d, prefix: prefix}
}

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(join(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	full := join(d.prefix, prefix)
	return d.db.Iterate(full, func(k, v []byte) bool {
		return callback(k[len(d.prefix):], v)
	})
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close closes the underlying database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// Compact triggers a compaction of the underlying database.
func (d *PrefixedDatabase) Compact() error {
	return d.db.Compact()
}

// NewPrefixedReader returns a read-only view of d under the given prefix.
// It is a convenience alias for NewPrefixedDatabase used where only reads
// are intended.
func NewPrefixedReader(d db.Database, prefix []byte) *PrefixedDatabase {
	return NewPrefixedDatabase(d, prefix)
}

// PrefixedWriteTx implements db.WriteTx restricted to a key prefix.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

// Ensure that PrefixedWriteTx implements the db.WriteTx interface.
var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx returns a view of tx where every key is transparently
// prefixed with prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{tx: tx, prefix: prefix}
}

func (p *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return p.tx.Get(join(p.prefix, key))
}

func (p *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	full := join(p.prefix, prefix)
	return p.tx.Iterate(full, func(k, v []byte) bool {
		return callback(k[len(p.prefix):], v)
	})
}

func (p *PrefixedWriteTx) Set(key, value []byte) error {
	return p.tx.Set(join(p.prefix, key), value)
}

func (p *PrefixedWriteTx) Delete(key []byte) error {
	return p.tx.Delete(join(p.prefix, key))
}

func (p *PrefixedWriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return p.Set(k, v) == nil
	})
}

// Commit commits the underlying transaction. Note that the underlying
// transaction may carry writes outside this prefix; they are committed too.
func (p *PrefixedWriteTx) Commit() error {
	return p.tx.Commit()
}

func (p *PrefixedWriteTx) Discard() {
	p.tx.Discard()
}

func join(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}
