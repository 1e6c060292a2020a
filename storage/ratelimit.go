package storage

import (
	"encoding/binary"
	"time"

	"github.com/cipherscore/cipherscore-node/db"
	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
)

// Rate-limited action categories. Each category tracks its own per-identity
// last-action timestamp.
const (
	ActionSubmit  = "submit"
	ActionDecrypt = "decrypt"
)

// LastAction returns the timestamp of the last successful rate-limited
// action of the given category by the given identity. The second return
// value is false if the identity has never performed the action.
func (s *Storage) LastAction(category string, identity []byte) (time.Time, bool) {
	data, err := prefixeddb.NewPrefixedReader(s.db, rateLimitPrefix).Get(rateLimitKey(category, identity))
	if err != nil || len(data) != 8 {
		return time.Time{}, false
	}
	return time.Unix(int64(binary.BigEndian.Uint64(data)), 0), true
}

// setLastActionTx writes the last-action timestamp within an already open
// transaction. The caller commits.
func (s *Storage) setLastActionTx(wTx db.WriteTx, category string, identity []byte, now time.Time) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(now.Unix()))
	return prefixeddb.NewPrefixedWriteTx(wTx, rateLimitPrefix).Set(rateLimitKey(category, identity), buf)
}

func rateLimitKey(category string, identity []byte) []byte {
	key := make([]byte, 0, len(category)+1+len(identity))
	key = append(key, category...)
	key = append(key, '/')
	return append(key, identity...)
}
