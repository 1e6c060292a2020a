package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cipherscore/cipherscore-node/types"
)

// openBatch starts a new submission batch
// POST /batches
func (a *API) openBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	batch, err := a.aggregator.OpenBatch(req.Caller)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, batch)
}

// closeBatch closes the current batch
// POST /batches/current/close
func (a *API) closeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	batch, err := a.aggregator.CloseBatch(req.Caller)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, batch)
}

// currentBatch returns the most recently opened batch
// GET /batches/current
func (a *API) currentBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := a.aggregator.CurrentBatch()
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, batch)
}

// batch returns the batch with the given identifier
// GET /batches/{batchId}
func (a *API) batch(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, BatchURLParam)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		ErrMalformedParam.Withf("invalid batch ID: %s", idStr).Write(w)
		return
	}
	batch, err := a.aggregator.Batch(types.BatchID(id))
	if err != nil {
		ErrResourceNotFound.Write(w)
		return
	}
	httpWriteJSON(w, batch)
}

// submitScore folds an encrypted score into the current batch
// POST /scores
func (a *API) submitScore(w http.ResponseWriter, r *http.Request) {
	var req SubmitScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if req.Score == nil {
		ErrInvalidCiphertext.Write(w)
		return
	}
	batch, err := a.aggregator.Submit(req.Caller, req.Score)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, SubmitScoreResponse{
		BatchID:         batch.ID,
		SubmissionCount: batch.SubmissionCount,
	})
}
