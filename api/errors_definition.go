//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404, 409 or 429, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound             = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody                = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedParam               = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrMalformedAddress             = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrUnauthorized                 = Error{Code: 40005, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("unauthorized")}
	ErrAdministratorRequired        = Error{Code: 40006, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("administrator required")}
	ErrSubmitterRequired            = Error{Code: 40007, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("submitter required")}
	ErrOperationsPaused             = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operations are paused")}
	ErrCooldownActive               = Error{Code: 40009, HTTPstatus: http.StatusTooManyRequests, Err: fmt.Errorf("cooldown active")}
	ErrBatchNotOpen                 = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("batch not open")}
	ErrAlreadySubmitted             = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("already submitted to this batch")}
	ErrNoSubmissions                = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("batch has no submissions")}
	ErrInvalidCiphertext            = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid ciphertext")}
	ErrReplayDetected               = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("decryption result replay detected")}
	ErrStateMismatch                = Error{Code: 40015, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("accumulator state mismatch")}
	ErrDecryptionVerificationFailed = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("decryption verification failed")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
