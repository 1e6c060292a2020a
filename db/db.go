// Package db defines the key-value database interface used by the storage
// layer. Implementations live in subpackages; use metadb to construct one
// by type name.
package db

import "errors"

var (
	// ErrKeyNotFound is returned when a key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Commit when the transaction conflicts
	// with a concurrently committed one.
	ErrConflict = errors.New("transaction conflict")
	// ErrTxnTooBig is returned by Set or Delete when the transaction has
	// grown past the backend's limits, if any.
	ErrTxnTooBig = errors.New("transaction too big")
)

// Supported database types for metadb.New.
const (
	TypePebble   = "pebble"
	TypeInMemory = "inmemory"
)

// Options defines generic parameters for creating a database.
type Options struct {
	Path string
}

// Database is a simple key-value store with prefixed iteration and
// write transactions.
type Database interface {
	// Get retrieves the value for the given key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with all key-value pairs in the database
	// whose key starts with prefix, in lexicographic key order. The
	// iteration stops when the callback returns false. Keys and values
	// are only valid for the duration of the callback.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
	// WriteTx creates a new write transaction.
	WriteTx() WriteTx
	// Close closes the database.
	Close() error
	// Compact triggers a compaction of the underlying storage, if the
	// backend supports it.
	Compact() error
}

// WriteTx is a transaction over a Database. It is not safe for concurrent
// use. Either Commit or Discard must be called; Discard after Commit is a
// no-op.
type WriteTx interface {
	// Get retrieves the value for the given key, observing the
	// transaction's own pending writes.
	Get(key []byte) ([]byte, error)
	// Iterate behaves like Database.Iterate, observing pending writes.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
	// Set adds a key-value pair to the transaction.
	Set(key, value []byte) error
	// Delete removes a key from the transaction.
	Delete(key []byte) error
	// Apply copies all pending writes from another transaction.
	Apply(other WriteTx) error
	// Commit atomically applies the transaction to the database.
	Commit() error
	// Discard drops the transaction. It can be called after Commit,
	// in which case it does nothing.
	Discard()
}
