/*
Package storage provides the persistent storage layer for the aggregation
node.

# Storage Organization

The storage uses a key-value database with prefixed namespaces to organize
the different types of data:

## Access control
  - rg/ : singleton → Registry (administrator, oracle identity, paused flag, cooldown)
  - sb/ : submitter address → set membership flag

## Batch ledger
  - cb/ : singleton → current batch ID
  - bt/ : batchID → Batch record (open flag, submission count, open/close times)
  - sf/ : batchID + submitter address → already-submitted flag
  - ac/ : batchID → serialized encrypted accumulator

## Decryption broker
  - dr/ : requestID → DecryptionRequest (batch, fingerprint, consumed flag)
    Requests are never deleted; consumed ones remain as audit records.

## Rate limiter
  - rl/ : category + identity → unix timestamp of the last successful action

## Audit trail
  - ev/ : big-endian sequence number → Event
  - es/ : singleton → last assigned event sequence number
*/
package storage

import (
	"errors"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cipherscore/cipherscore-node/db"
	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/types"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Prefixes
	registryPrefix      = []byte("rg/")
	submitterPrefix     = []byte("sb/")
	currentBatchPrefix  = []byte("cb/")
	batchPrefix         = []byte("bt/")
	submittedFlagPrefix = []byte("sf/")
	accumulatorPrefix   = []byte("ac/")
	requestPrefix       = []byte("dr/")
	rateLimitPrefix     = []byte("rl/")
	eventPrefix         = []byte("ev/")
	eventSeqPrefix      = []byte("es/")

	// Singleton keys within their prefixes.
	registryKey     = []byte("registry")
	currentBatchKey = []byte("current")
	eventSeqKey     = []byte("seq")
)

// Storage manages the persistent state of the node. All exported methods
// are safe for concurrent use; each mutating method commits atomically.
type Storage struct {
	db         db.Database
	globalLock sync.Mutex
	cache      *lru.Cache[string, any]
	eventSink  func(*types.Event)
}

// New creates a new Storage instance on top of the given database.
func New(database db.Database) *Storage {
	cache, err := lru.New[string, any](1024)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	return &Storage{
		db:    database,
		cache: cache,
	}
}

// SetEventSink registers a function invoked with every event appended to
// the audit journal, after its transaction has committed. Only one sink is
// supported; setting a new one replaces the previous.
func (s *Storage) SetEventSink(sink func(*types.Event)) {
	s.eventSink = sink
}

// notifyEvent delivers an already-committed event to the sink, if any.
func (s *Storage) notifyEvent(ev *types.Event) {
	if s.eventSink != nil {
		s.eventSink(ev)
	}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Errorw(err, "failed to close storage")
	}
}

// setArtifact stores an artifact under prefix/key in its own transaction.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := EncodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves an artifact from prefix/key and decodes it into
// out. Returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		return ErrNotFound
	}
	return DecodeArtifact(data, out)
}

// listArtifactKeys retrieves all the keys for a given prefix.
func (s *Storage) listArtifactKeys(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		kcopy := make([]byte, len(k))
		copy(kcopy, k)
		keys = append(keys, kcopy)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}
