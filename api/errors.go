package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cipherscore/cipherscore-node/aggregator"
	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/log"
)

// Error is used by handler functions to wrap errors, assigning a unique
// error code and also specifying which HTTP Status should be used.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON returns a JSON containing Err.Error() and Code. Field names
// are lowercase. Omits the HTTPstatus field.
func (e Error) MarshalJSON() ([]byte, error) {
	// This anon struct is needed to actually serialize the error message
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{
		Err:  e.Err.Error(),
		Code: e.Code,
	})
}

// Error returns the Message contained inside the APIerror
func (e Error) Error() string {
	return e.Err.Error()
}

// Write serializes a JSON msg using APIerror.Message and APIerror.Code
// and passes that to the response writer.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("marshal failed", "error", err)
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}

	if e.HTTPstatus >= 400 {
		log.Debugw("api error response", "error", e.Err.Error(), "code", e.Code, "status", e.HTTPstatus)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(msg); err != nil {
		log.Warnw("failed to write error response", "error", err)
	}
}

// Withf returns a copy of APIerror with the Sprintf formatted string
// appended at the end of e.Err
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of APIerror with err.Error() appended at the end of e.Err
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// writeOperationError maps the aggregator's sentinel errors onto API
// errors and writes the response. Unknown errors become a generic 500.
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aggregator.ErrNotAdministrator):
		ErrAdministratorRequired.Write(w)
	case errors.Is(err, aggregator.ErrNotSubmitter):
		ErrSubmitterRequired.Write(w)
	case errors.Is(err, aggregator.ErrNotAuthorized):
		ErrUnauthorized.Write(w)
	case errors.Is(err, aggregator.ErrPaused):
		ErrOperationsPaused.Write(w)
	case errors.Is(err, aggregator.ErrCooldownActive):
		ErrCooldownActive.Write(w)
	case errors.Is(err, aggregator.ErrBatchNotOpen):
		ErrBatchNotOpen.Write(w)
	case errors.Is(err, aggregator.ErrAlreadySubmitted):
		ErrAlreadySubmitted.Write(w)
	case errors.Is(err, aggregator.ErrNoSubmissions):
		ErrNoSubmissions.Write(w)
	case errors.Is(err, aggregator.ErrReplayDetected):
		ErrReplayDetected.Write(w)
	case errors.Is(err, aggregator.ErrStateMismatch):
		ErrStateMismatch.Write(w)
	case errors.Is(err, aggregator.ErrDecryptionVerificationFailed):
		ErrDecryptionVerificationFailed.Write(w)
	case errors.Is(err, aggregator.ErrRequestNotFound):
		ErrResourceNotFound.Write(w)
	case errors.Is(err, elgamal.ErrInvalidCiphertext):
		ErrInvalidCiphertext.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
