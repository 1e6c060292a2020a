package aggregator

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cipherscore/cipherscore-node/crypto"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/storage"
	"github.com/cipherscore/cipherscore-node/types"
)

// ErrRequestNotFound is returned by the read-only request queries for an
// unknown request identifier. The result callback never returns it; there
// an unknown identifier fails as a replay.
var ErrRequestNotFound = errors.New("decryption request not found")

// RequestBatchTotalDecryption asks the oracle to decrypt the current
// batch's accumulator. It records a pending request carrying a fingerprint
// of the accumulator state at request time; the result is only accepted
// later if that state is still intact. Administrator only, rejected while
// paused, throttled by the node-wide decryption cooldown, and refused for
// batches without submissions.
func (a *Aggregator) RequestBatchTotalDecryption(ctx context.Context, caller common.Address) (*types.DecryptionRequest, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if reg.Paused {
		return nil, ErrPaused
	}
	if err := a.checkCooldown(reg, storage.ActionDecrypt, a.identity.Bytes()); err != nil {
		return nil, err
	}
	batch, err := a.stg.CurrentBatch()
	if err != nil {
		return nil, ErrBatchNotOpen
	}
	if batch.SubmissionCount == 0 {
		return nil, ErrNoSubmissions
	}
	accumulator, err := a.stg.Accumulator(batch.ID)
	if err != nil {
		return nil, ErrNoSubmissions
	}
	if a.oracle == nil {
		return nil, errors.New("no decryption oracle configured")
	}

	requestID, err := a.oracle.RequestDecryption(ctx, batch.ID, accumulator)
	if err != nil {
		return nil, err
	}
	req := &types.DecryptionRequest{
		ID:               requestID,
		BatchID:          batch.ID,
		StateFingerprint: crypto.StateFingerprint(accumulator.Serialize(), a.identity, batch.ID),
		RequestedAt:      a.now(),
	}
	if err := a.stg.PushDecryptionRequest(req, a.identity.Bytes()); err != nil {
		return nil, err
	}
	log.Infow("decryption requested", "requestId", req.ID.String(),
		"batchId", batch.ID, "submissions", batch.SubmissionCount)
	return req, nil
}

// HandleDecryptionResult ingests a decryption result from the oracle. The
// result is accepted only once per request, only if the batch accumulator
// is byte-identical to the state fingerprinted at request time, and only
// under a valid oracle signature over the result digest. On success the
// request is marked consumed and the plaintext total recorded.
//
// An unknown request identifier is indistinguishable from a consumed one
// to the sender, so both fail with ErrReplayDetected.
func (a *Aggregator) HandleDecryptionResult(requestID types.RequestID, total *big.Int, proof []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	req, err := a.stg.DecryptionRequest(requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrReplayDetected
		}
		return err
	}
	if req.Consumed {
		return ErrReplayDetected
	}

	accumulator, err := a.stg.Accumulator(req.BatchID)
	if err != nil {
		return ErrStateMismatch
	}
	fingerprint := crypto.StateFingerprint(accumulator.Serialize(), a.identity, req.BatchID)
	if !bytes.Equal(fingerprint, req.StateFingerprint) {
		log.Warnw("decryption result rejected, accumulator changed since request",
			"requestId", requestID.String(), "batchId", req.BatchID)
		return ErrStateMismatch
	}

	reg, err := a.stg.Registry()
	if err != nil {
		return err
	}
	digest := crypto.ResultDigest(requestID, req.BatchID, total)
	pub, err := ethcrypto.SigToPub(digest, proof)
	if err != nil {
		return ErrDecryptionVerificationFailed
	}
	if ethcrypto.PubkeyToAddress(*pub) != reg.OracleAddress {
		return ErrDecryptionVerificationFailed
	}

	if err := a.stg.ConsumeDecryptionRequest(req, new(types.BigInt).SetBigInt(total), a.now()); err != nil {
		return err
	}
	log.Infow("batch total revealed", "requestId", requestID.String(),
		"batchId", req.BatchID, "total", total.String())
	return nil
}

// DecryptionRequest returns the stored request with the given identifier.
func (a *Aggregator) DecryptionRequest(id types.RequestID) (*types.DecryptionRequest, error) {
	req, err := a.stg.DecryptionRequest(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListDecryptionRequests returns every stored decryption request, pending
// and consumed.
func (a *Aggregator) ListDecryptionRequests() ([]*types.DecryptionRequest, error) {
	return a.stg.ListDecryptionRequests()
}

// WaitForRequest blocks until the request is consumed or the context is
// cancelled, polling storage at a short interval. Returns the consumed
// request on success.
func (a *Aggregator) WaitForRequest(ctx context.Context, id types.RequestID) (*types.DecryptionRequest, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		req, err := a.DecryptionRequest(id)
		if err == nil && req.Consumed {
			return req, nil
		}
		if err != nil && !errors.Is(err, ErrRequestNotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
