package aggregator

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the aggregator operations. Every precondition
// violation aborts the whole operation with no partial state change.
var (
	// ErrNotAuthorized is the base role-check failure. Use errors.Is
	// against it to match both the administrator and submitter variants.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotAdministrator is returned when a privileged operation is
	// attempted by a caller that is not the administrator.
	ErrNotAdministrator = fmt.Errorf("%w: administrator required", ErrNotAuthorized)
	// ErrNotSubmitter is returned when a score submission is attempted
	// by a caller outside the submitter set. The administrator does not
	// implicitly hold submission rights.
	ErrNotSubmitter = fmt.Errorf("%w: submitter required", ErrNotAuthorized)
	// ErrPaused is returned by state-mutating operations while the
	// global kill-switch is engaged. Read operations remain available.
	ErrPaused = errors.New("operations are paused")
	// ErrCooldownActive is returned when a rate-limited action is
	// attempted before its cooldown has elapsed.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrBatchNotOpen is returned on submission when no batch is open.
	ErrBatchNotOpen = errors.New("batch not open")
	// ErrAlreadySubmitted is returned when a submitter attempts a second
	// submission to the same batch.
	ErrAlreadySubmitted = errors.New("already submitted to this batch")
	// ErrNoSubmissions is returned when decryption is requested for a
	// batch that has received no submissions.
	ErrNoSubmissions = errors.New("batch has no submissions")
	// ErrReplayDetected is returned by the decryption callback when the
	// request does not exist or has already been consumed.
	ErrReplayDetected = errors.New("decryption result replay detected")
	// ErrStateMismatch is returned by the decryption callback when the
	// accumulator changed between the request and the callback.
	ErrStateMismatch = errors.New("accumulator state mismatch")
	// ErrDecryptionVerificationFailed is returned by the decryption
	// callback when the oracle's proof does not verify.
	ErrDecryptionVerificationFailed = errors.New("decryption verification failed")
)
