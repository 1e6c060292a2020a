package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType identifies a notification emitted by the aggregator. Events are
// the only externally observable audit trail of the node.
type EventType string

const (
	EventAdministratorChanged EventType = "administrator-changed"
	EventSubmitterAdded       EventType = "submitter-added"
	EventSubmitterRemoved     EventType = "submitter-removed"
	EventPausedChanged        EventType = "paused-changed"
	EventCooldownChanged      EventType = "cooldown-changed"
	EventBatchOpened          EventType = "batch-opened"
	EventBatchClosed          EventType = "batch-closed"
	EventScoreSubmitted       EventType = "score-submitted"
	EventDecryptionRequested  EventType = "decryption-requested"
	EventDecryptionCompleted  EventType = "decryption-completed"
)

// Event is a single entry of the audit trail. Seq is assigned by the
// storage journal at append time; the rest of the fields are set by the
// emitting operation and only those relevant to the event type are
// populated.
type Event struct {
	Seq       uint64          `json:"seq"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     *common.Address `json:"actor,omitempty"`
	Subject   *common.Address `json:"subject,omitempty"`
	BatchID   BatchID         `json:"batchId,omitempty"`
	RequestID RequestID       `json:"requestId,omitempty"`
	// Ciphertext carries the serialized encrypted score for
	// score-submitted events. Ciphertexts are not secret in transit.
	Ciphertext HexBytes `json:"ciphertext,omitempty"`
	Paused     *bool    `json:"paused,omitempty"`
	Cooldown   *uint64  `json:"cooldownSeconds,omitempty"`
	Total      *BigInt  `json:"total,omitempty"`
}
