// Package inmemory implements an ephemeral db.Database backed by a plain
// map. It is intended for tests; writes are atomic but there is no conflict
// detection between overlapping transactions (last commit wins).
package inmemory

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/cipherscore/cipherscore-node/db"
)

// InMemoryDB implements an ephemeral in-memory db.Database.
type InMemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Ensure that InMemoryDB implements the db.Database interface.
var _ db.Database = (*InMemoryDB)(nil)

// New returns a new in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string][]byte)}, nil
}

func (d *InMemoryDB) Close() error   { return nil }
func (d *InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.data[string(key)]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	d.mu.RLock()
	snapshot := snapshotWithPrefix(d.data, prefix)
	d.mu.RUnlock()
	iterateSorted(snapshot, callback)
	return nil
}

func (d *InMemoryDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:     d,
		writes: make(map[string][]byte),
	}
}

// WriteTx implements db.WriteTx buffering writes until Commit.
type WriteTx struct {
	db        *InMemoryDB
	writes    map[string][]byte
	deletes   map[string]bool
	committed bool
	discarded bool
}

// Ensure that WriteTx implements the db.WriteTx interface.
var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	strKey := string(key)
	if tx.deletes[strKey] {
		return nil, db.ErrKeyNotFound
	}
	if pending, ok := tx.writes[strKey]; ok {
		return bytes.Clone(pending), nil
	}
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	tx.db.mu.RLock()
	snapshot := snapshotWithPrefix(tx.db.data, prefix)
	tx.db.mu.RUnlock()

	for k, v := range tx.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			snapshot[k] = bytes.Clone(v)
		}
	}
	for k := range tx.deletes {
		delete(snapshot, k)
	}
	iterateSorted(snapshot, callback)
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	strKey := string(key)
	delete(tx.initDeletes(), strKey)
	tx.writes[strKey] = bytes.Clone(value)
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	strKey := string(key)
	delete(tx.writes, strKey)
	tx.initDeletes()[strKey] = true
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return tx.Set(k, v) == nil
	})
}

func (tx *WriteTx) Commit() error {
	if tx.committed || tx.discarded {
		return fmt.Errorf("cannot commit inmemory tx: already committed or discarded")
	}
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	for key, value := range tx.writes {
		tx.db.data[key] = value
	}
	for key := range tx.deletes {
		delete(tx.db.data, key)
	}
	tx.committed = true
	return nil
}

func (tx *WriteTx) Discard() {
	if tx.committed {
		return
	}
	tx.writes = map[string][]byte{}
	tx.deletes = nil
	tx.discarded = true
}

func (tx *WriteTx) initDeletes() map[string]bool {
	if tx.deletes == nil {
		tx.deletes = make(map[string]bool)
	}
	return tx.deletes
}

func snapshotWithPrefix(data map[string][]byte, prefix []byte) map[string][]byte {
	out := make(map[string][]byte)
	for k, v := range data {
		if bytes.HasPrefix([]byte(k), prefix) {
			out[k] = bytes.Clone(v)
		}
	}
	return out
}

func iterateSorted(entries map[string][]byte, callback func(key, value []byte) bool) {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !callback([]byte(key), entries[key]) {
			break
		}
	}
}
