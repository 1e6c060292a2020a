package storage

import (
	"encoding/binary"
	"time"

	"github.com/cipherscore/cipherscore-node/db"
	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
	"github.com/cipherscore/cipherscore-node/types"
)

// AppendEvent appends an event to the audit journal in its own
// transaction, assigning it the next sequence number.
func (s *Storage) AppendEvent(ev *types.Event) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := s.appendEventTx(wTx, ev); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	s.notifyEvent(ev)
	return nil
}

// appendEventTx appends an event within an already open transaction,
// assigning it the next sequence number. The caller commits.
func (s *Storage) appendEventTx(wTx db.WriteTx, ev *types.Event) error {
	seqTx := prefixeddb.NewPrefixedWriteTx(wTx, eventSeqPrefix)
	seq := uint64(1)
	if data, err := seqTx.Get(eventSeqKey); err == nil && len(data) == 8 {
		seq = binary.BigEndian.Uint64(data) + 1
	}
	ev.Seq = seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	data, err := EncodeArtifact(ev)
	if err != nil {
		return err
	}
	seqBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBuf, seq)
	if err := prefixeddb.NewPrefixedWriteTx(wTx, eventPrefix).Set(seqBuf, data); err != nil {
		return err
	}
	return seqTx.Set(eventSeqKey, seqBuf)
}

// Events returns up to limit events starting at the given sequence number
// (inclusive). Sequence numbers start at 1. A limit of 0 means no limit.
func (s *Storage) Events(from uint64, limit int) ([]*types.Event, error) {
	var events []*types.Event
	if err := prefixeddb.NewPrefixedReader(s.db, eventPrefix).Iterate(nil, func(k, v []byte) bool {
		if len(k) == 8 && binary.BigEndian.Uint64(k) < from {
			return true
		}
		ev := new(types.Event)
		if err := DecodeArtifact(v, ev); err != nil {
			return true
		}
		events = append(events, ev)
		return limit <= 0 || len(events) < limit
	}); err != nil {
		return nil, err
	}
	return events, nil
}

// LastEventSeq returns the sequence number of the most recent event, or 0
// if the journal is empty.
func (s *Storage) LastEventSeq() uint64 {
	data, err := prefixeddb.NewPrefixedReader(s.db, eventSeqPrefix).Get(eventSeqKey)
	if err != nil || len(data) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}
