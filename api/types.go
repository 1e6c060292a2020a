package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cipherscore/cipherscore-node/crypto/elgamal"
	"github.com/cipherscore/cipherscore-node/types"
)

// Request and response payloads of the API endpoints. Callers identify
// themselves by address; authenticating those addresses is delegated to
// an outer layer such as a reverse proxy or gateway.

// TransferAdministratorRequest reassigns the administrator role.
type TransferAdministratorRequest struct {
	Caller           common.Address `json:"caller"`
	NewAdministrator common.Address `json:"newAdministrator"`
}

// SubmitterRequest adds an identity to the submitter set.
type SubmitterRequest struct {
	Caller    common.Address `json:"caller"`
	Submitter common.Address `json:"submitter"`
}

// SubmittersResponse lists the submitter set.
type SubmittersResponse struct {
	Submitters []common.Address `json:"submitters"`
}

// SetPausedRequest engages or releases the pause switch.
type SetPausedRequest struct {
	Caller common.Address `json:"caller"`
	Paused bool           `json:"paused"`
}

// SetCooldownRequest updates the rate-limiter cooldown.
type SetCooldownRequest struct {
	Caller          common.Address `json:"caller"`
	CooldownSeconds uint64         `json:"cooldownSeconds"`
}

// BatchRequest carries the caller of a batch lifecycle operation.
type BatchRequest struct {
	Caller common.Address `json:"caller"`
}

// SubmitScoreRequest folds an encrypted score into the current batch.
type SubmitScoreRequest struct {
	Caller common.Address      `json:"caller"`
	Score  *elgamal.Ciphertext `json:"score"`
}

// SubmitScoreResponse reports the batch that absorbed the score.
type SubmitScoreResponse struct {
	BatchID         types.BatchID `json:"batchId"`
	SubmissionCount uint64        `json:"submissionCount"`
}

// DecryptionResultRequest ingests a signed result from the oracle.
type DecryptionResultRequest struct {
	Total *types.BigInt  `json:"total"`
	Proof types.HexBytes `json:"proof"`
}

// DecryptionsResponse lists decryption requests.
type DecryptionsResponse struct {
	Requests []*types.DecryptionRequest `json:"requests"`
}

// EventsResponse is a page of the audit journal.
type EventsResponse struct {
	Events []*types.Event `json:"events"`
}
