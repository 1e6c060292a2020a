// Package metadb constructs db.Database implementations by type name.
package metadb

import (
	"fmt"
	"testing"

	"github.com/cipherscore/cipherscore-node/db"
	"github.com/cipherscore/cipherscore-node/db/inmemory"
	"github.com/cipherscore/cipherscore-node/db/pebbledb"
)

// New creates a database of the given type at the given path.
func New(typ, dir string) (db.Database, error) {
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		return pebbledb.New(opts)
	case db.TypeInMemory:
		return inmemory.New(opts)
	default:
		return nil, fmt.Errorf("invalid database type: %q", typ)
	}
}

// NewTest returns a pebble database in a test temporary directory, closed
// automatically when the test finishes.
func NewTest(tb testing.TB) db.Database {
	database, err := New(db.TypePebble, tb.TempDir())
	if err != nil {
		tb.Fatalf("metadb.New: %v", err)
	}
	tb.Cleanup(func() {
		if err := database.Close(); err != nil {
			tb.Errorf("close test database: %v", err)
		}
	})
	return database
}
