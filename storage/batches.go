package storage

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/types"
)

// CurrentBatchID returns the identifier of the most recently opened batch,
// or 0 if no batch has ever been opened.
func (s *Storage) CurrentBatchID() (types.BatchID, error) {
	data, err := prefixeddb.NewPrefixedReader(s.db, currentBatchPrefix).Get(currentBatchKey)
	if err != nil {
		return 0, nil
	}
	return types.BatchIDFromBytes(data), nil
}

// CurrentBatch returns the record of the most recently opened batch.
// Returns ErrNotFound if no batch has ever been opened.
func (s *Storage) CurrentBatch() (*types.Batch, error) {
	id, err := s.CurrentBatchID()
	if err != nil {
		return nil, err
	}
	if id.IsZero() {
		return nil, ErrNotFound
	}
	return s.Batch(id)
}

// Batch returns the record of the batch with the given identifier.
func (s *Storage) Batch(id types.BatchID) (*types.Batch, error) {
	if cached, ok := s.cache.Get(batchCacheKey(id)); ok {
		batch := cached.(types.Batch)
		return &batch, nil
	}
	batch := new(types.Batch)
	if err := s.getArtifact(batchPrefix, id.Bytes(), batch); err != nil {
		return nil, err
	}
	s.cache.Add(batchCacheKey(id), *batch)
	return batch, nil
}

// OpenBatch allocates the next batch identifier and opens it. Any
// previously open batch is implicitly abandoned: its record keeps its open
// flag, but submissions only ever target the current batch.
func (s *Storage) OpenBatch(now time.Time) (*types.Batch, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	lastID, err := s.CurrentBatchID()
	if err != nil {
		return nil, err
	}
	batch := &types.Batch{
		ID:       lastID + 1,
		Open:     true,
		OpenedAt: now,
	}
	data, err := EncodeArtifact(batch)
	if err != nil {
		return nil, err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, batchPrefix).Set(batch.ID.Bytes(), data); err != nil {
		return nil, err
	}
	if err := prefixeddb.NewPrefixedWriteTx(wTx, currentBatchPrefix).Set(currentBatchKey, batch.ID.Bytes()); err != nil {
		return nil, err
	}
	ev := &types.Event{
		Type:      types.EventBatchOpened,
		Timestamp: now,
		BatchID:   batch.ID,
	}
	if err := s.appendEventTx(wTx, ev); err != nil {
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Add(batchCacheKey(batch.ID), *batch)
	s.notifyEvent(ev)
	if !lastID.IsZero() {
		log.Debugw("previous batch abandoned", "previous", lastID, "new", batch.ID)
	}
	return batch, nil
}

// CloseBatch closes the current batch. Closing an already-closed batch is
// an idempotent no-op: the stored record is returned unchanged and no event
// is emitted. Returns ErrNotFound if no batch has ever been opened.
func (s *Storage) CloseBatch(now time.Time) (*types.Batch, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	batch, err := s.CurrentBatch()
	if err != nil {
		return nil, err
	}
	if !batch.Open {
		return batch, nil
	}
	batch.Open = false
	batch.ClosedAt = &now
	data, err := EncodeArtifact(batch)
	if err != nil {
		return nil, err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, batchPrefix).Set(batch.ID.Bytes(), data); err != nil {
		return nil, err
	}
	ev := &types.Event{
		Type:      types.EventBatchClosed,
		Timestamp: now,
		BatchID:   batch.ID,
	}
	if err := s.appendEventTx(wTx, ev); err != nil {
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Add(batchCacheKey(batch.ID), *batch)
	s.notifyEvent(ev)
	return batch, nil
}

// HasSubmitted reports whether the identity has already submitted a score
// to the given batch.
func (s *Storage) HasSubmitted(id types.BatchID, addr common.Address) bool {
	_, err := prefixeddb.NewPrefixedReader(s.db, submittedFlagPrefix).Get(submittedFlagKey(id, addr))
	return err == nil
}

// Accumulator returns the encrypted accumulator of the given batch.
// Returns ErrNotFound if the batch has no submissions yet.
func (s *Storage) Accumulator(id types.BatchID) (*elgamal.Ciphertext, error) {
	data, err := prefixeddb.NewPrefixedReader(s.db, accumulatorPrefix).Get(id.Bytes())
	if err != nil {
		return nil, ErrNotFound
	}
	acc, err := elgamal.DeserializeCiphertext(data)
	if err != nil {
		return nil, fmt.Errorf("malformed accumulator for batch %d: %w", id, err)
	}
	return acc, nil
}

// AddSubmission records a score submission atomically: it stores the
// updated accumulator, marks the submitter's per-batch flag, increments the
// batch submission count, refreshes the submitter's rate-limit timestamp
// and appends the audit event. The event carries the submitted score
// ciphertext, not the accumulator. Returns ErrAlreadyExists if the
// submitter flag is already set for this batch.
func (s *Storage) AddSubmission(id types.BatchID, submitter common.Address,
	accumulator, score *elgamal.Ciphertext, now time.Time,
) (*types.Batch, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	batch, err := s.Batch(id)
	if err != nil {
		return nil, err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	flagTx := prefixeddb.NewPrefixedWriteTx(wTx, submittedFlagPrefix)
	if _, err := flagTx.Get(submittedFlagKey(id, submitter)); err == nil {
		return nil, ErrAlreadyExists
	}
	if err := flagTx.Set(submittedFlagKey(id, submitter), submitterFlag); err != nil {
		return nil, err
	}

	if err := prefixeddb.NewPrefixedWriteTx(wTx, accumulatorPrefix).Set(id.Bytes(), accumulator.Serialize()); err != nil {
		return nil, err
	}

	batch.SubmissionCount++
	data, err := EncodeArtifact(batch)
	if err != nil {
		return nil, err
	}
	if err := prefixeddb.NewPrefixedWriteTx(wTx, batchPrefix).Set(id.Bytes(), data); err != nil {
		return nil, err
	}

	if err := s.setLastActionTx(wTx, ActionSubmit, submitter.Bytes(), now); err != nil {
		return nil, err
	}

	ev := &types.Event{
		Type:       types.EventScoreSubmitted,
		Timestamp:  now,
		Actor:      &submitter,
		BatchID:    id,
		Ciphertext: score.Serialize(),
	}
	if err := s.appendEventTx(wTx, ev); err != nil {
		return nil, err
	}

	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	s.cache.Add(batchCacheKey(id), *batch)
	s.notifyEvent(ev)
	return batch, nil
}

func batchCacheKey(id types.BatchID) string {
	return "batch/" + string(id.Bytes())
}

func submittedFlagKey(id types.BatchID, addr common.Address) []byte {
	key := make([]byte, 0, 8+common.AddressLength)
	key = append(key, id.Bytes()...)
	return append(key, addr.Bytes()...)
}
