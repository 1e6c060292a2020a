package aggregator

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/log"
	"github.com/cipherscore/cipherscore-node/storage"
	"github.com/cipherscore/cipherscore-node/types"
)

// OpenBatch starts a new submission batch with the next monotonic
// identifier and makes it the current one. Any previously open batch stops
// receiving submissions. Administrator only, rejected while paused.
func (a *Aggregator) OpenBatch(caller common.Address) (*types.Batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if reg.Paused {
		return nil, ErrPaused
	}
	batch, err := a.stg.OpenBatch(a.now())
	if err != nil {
		return nil, err
	}
	log.Infow("batch opened", "batchId", batch.ID, "caller", caller.Hex())
	return batch, nil
}

// CloseBatch closes the current batch, freezing its accumulator. Closing an
// already closed batch is a no-op. Administrator only, rejected while
// paused.
func (a *Aggregator) CloseBatch(caller common.Address) (*types.Batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.requireAdmin(caller)
	if err != nil {
		return nil, err
	}
	if reg.Paused {
		return nil, ErrPaused
	}
	batch, err := a.stg.CloseBatch(a.now())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBatchNotOpen
		}
		return nil, err
	}
	log.Infow("batch closed", "batchId", batch.ID,
		"submissions", batch.SubmissionCount, "caller", caller.Hex())
	return batch, nil
}

// CurrentBatch returns the most recently opened batch, or ErrBatchNotOpen
// if no batch was ever opened.
func (a *Aggregator) CurrentBatch() (*types.Batch, error) {
	batch, err := a.stg.CurrentBatch()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBatchNotOpen
		}
		return nil, err
	}
	return batch, nil
}

// Batch returns the batch with the given identifier.
func (a *Aggregator) Batch(id types.BatchID) (*types.Batch, error) {
	batch, err := a.stg.Batch(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBatchNotOpen
		}
		return nil, err
	}
	return batch, nil
}

// Accumulator returns the current encrypted accumulator of a batch, or
// ErrNoSubmissions if the batch has received none.
func (a *Aggregator) Accumulator(id types.BatchID) (*elgamal.Ciphertext, error) {
	acc, err := a.stg.Accumulator(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoSubmissions
		}
		return nil, err
	}
	return acc, nil
}

// HasSubmitted reports whether the identity already submitted to the batch.
func (a *Aggregator) HasSubmitted(id types.BatchID, identity common.Address) bool {
	return a.stg.HasSubmitted(id, identity)
}

// Submit folds an encrypted score into the current batch's accumulator.
// The first submission of a batch seeds the accumulator with the
// ciphertext itself; later ones are added homomorphically. The caller must
// be an authorized submitter, the system not paused, the current batch
// open, the caller outside its cooldown window and not have submitted to
// this batch before.
func (a *Aggregator) Submit(caller common.Address, score *elgamal.Ciphertext) (*types.Batch, error) {
	if score == nil || !score.Valid() {
		return nil, elgamal.ErrInvalidCiphertext
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	reg, err := a.stg.Registry()
	if err != nil {
		return nil, err
	}
	if !a.stg.IsSubmitter(caller) {
		return nil, ErrNotSubmitter
	}
	if reg.Paused {
		return nil, ErrPaused
	}
	batch, err := a.stg.CurrentBatch()
	if err != nil || !batch.Open {
		return nil, ErrBatchNotOpen
	}
	if err := a.checkCooldown(reg, storage.ActionSubmit, caller.Bytes()); err != nil {
		return nil, err
	}
	if a.stg.HasSubmitted(batch.ID, caller) {
		return nil, ErrAlreadySubmitted
	}

	accumulator := score
	if prev, err := a.stg.Accumulator(batch.ID); err == nil {
		accumulator = prev.Add(prev, score)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	batch, err = a.stg.AddSubmission(batch.ID, caller, accumulator, score, a.now())
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}
	log.Debugw("score submitted", "batchId", batch.ID,
		"submitter", caller.Hex(), "submissions", batch.SubmissionCount)
	return batch, nil
}
