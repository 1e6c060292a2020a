package api

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cipherscore/cipherscore-node/types"
)

// requestDecryption asks the oracle to decrypt the current batch total
// POST /decryptions
func (a *API) requestDecryption(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	dreq, err := a.aggregator.RequestBatchTotalDecryption(r.Context(), req.Caller)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, dreq)
}

// listDecryptions returns every decryption request
// GET /decryptions
func (a *API) listDecryptions(w http.ResponseWriter, r *http.Request) {
	requests, err := a.aggregator.ListDecryptionRequests()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, DecryptionsResponse{Requests: requests})
}

// decryption returns the status of a decryption request
// GET /decryptions/{requestId}
func (a *API) decryption(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDFromURL(r)
	if !ok {
		ErrMalformedParam.Write(w)
		return
	}
	req, err := a.aggregator.DecryptionRequest(id)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteJSON(w, req)
}

// decryptionResult ingests a signed plaintext total from the oracle
// POST /decryptions/{requestId}/result
func (a *API) decryptionResult(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDFromURL(r)
	if !ok {
		ErrMalformedParam.Write(w)
		return
	}
	var req DecryptionResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if req.Total == nil || len(req.Proof) == 0 {
		ErrMalformedBody.Withf("total and proof are required").Write(w)
		return
	}
	if err := a.aggregator.HandleDecryptionResult(id, req.Total.MathBigInt(), req.Proof); err != nil {
		writeOperationError(w, err)
		return
	}
	httpWriteOK(w)
}

// events returns a page of the audit journal
// GET /events?from=<seq>&limit=<n>
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	if s := r.URL.Query().Get("from"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			ErrMalformedParam.Withf("invalid from: %s", s).Write(w)
			return
		}
		from = v
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			ErrMalformedParam.Withf("invalid limit: %s", s).Write(w)
			return
		}
		limit = v
	}
	events, err := a.aggregator.Events(from, limit)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, EventsResponse{Events: events})
}

func requestIDFromURL(r *http.Request) (types.RequestID, bool) {
	idHex := strings.TrimPrefix(chi.URLParam(r, RequestURLParam), "0x")
	id, err := hex.DecodeString(idHex)
	if err != nil || len(id) == 0 {
		return nil, false
	}
	return types.RequestID(id), true
}
