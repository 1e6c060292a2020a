package storage

import (
	"time"

	"github.com/cipherscore/cipherscore-node/db/prefixeddb"
	"github.com/cipherscore/cipherscore-node/types"
)

// PushDecryptionRequest records a new decryption request atomically,
// bumping the global decryption cooldown timestamp (keyed by the node's
// own identity) and appending the audit event in the same transaction.
// Returns ErrAlreadyExists if a request with the same ID already exists.
func (s *Storage) PushDecryptionRequest(req *types.DecryptionRequest, nodeIdentity []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	data, err := EncodeArtifact(req)
	if err != nil {
		return err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()

	reqTx := prefixeddb.NewPrefixedWriteTx(wTx, requestPrefix)
	if _, err := reqTx.Get(req.ID); err == nil {
		return ErrAlreadyExists
	}
	if err := reqTx.Set(req.ID, data); err != nil {
		return err
	}

	if err := s.setLastActionTx(wTx, ActionDecrypt, nodeIdentity, req.RequestedAt); err != nil {
		return err
	}

	ev := &types.Event{
		Type:      types.EventDecryptionRequested,
		Timestamp: req.RequestedAt,
		BatchID:   req.BatchID,
		RequestID: req.ID,
	}
	if err := s.appendEventTx(wTx, ev); err != nil {
		return err
	}

	if err := wTx.Commit(); err != nil {
		return err
	}
	s.notifyEvent(ev)
	return nil
}

// DecryptionRequest returns the request with the given ID, or ErrNotFound.
func (s *Storage) DecryptionRequest(id types.RequestID) (*types.DecryptionRequest, error) {
	req := new(types.DecryptionRequest)
	if err := s.getArtifact(requestPrefix, id, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ConsumeDecryptionRequest marks a request as consumed, stores the
// decrypted total and appends the completion event, all atomically. The
// request is never deleted - the consumed record remains for audit and
// replay rejection.
func (s *Storage) ConsumeDecryptionRequest(req *types.DecryptionRequest, total *types.BigInt, now time.Time) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	req.Consumed = true
	req.Total = total
	req.CompletedAt = &now

	data, err := EncodeArtifact(req)
	if err != nil {
		return err
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	if err := prefixeddb.NewPrefixedWriteTx(wTx, requestPrefix).Set(req.ID, data); err != nil {
		return err
	}
	ev := &types.Event{
		Type:      types.EventDecryptionCompleted,
		Timestamp: now,
		BatchID:   req.BatchID,
		RequestID: req.ID,
		Total:     total,
	}
	if err := s.appendEventTx(wTx, ev); err != nil {
		return err
	}
	if err := wTx.Commit(); err != nil {
		return err
	}
	s.notifyEvent(ev)
	return nil
}

// ListDecryptionRequests returns all known decryption requests, consumed
// and pending.
func (s *Storage) ListDecryptionRequests() ([]*types.DecryptionRequest, error) {
	var requests []*types.DecryptionRequest
	if err := prefixeddb.NewPrefixedReader(s.db, requestPrefix).Iterate(nil, func(_, v []byte) bool {
		req := new(types.DecryptionRequest)
		if err := DecodeArtifact(v, req); err != nil {
			return true
		}
		requests = append(requests, req)
		return true
	}); err != nil {
		return nil, err
	}
	return requests, nil
}
