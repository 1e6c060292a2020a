package types

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// BatchID identifies a collection round. IDs start at 1 and grow
// monotonically; 0 means no batch has been opened yet.
type BatchID uint64

// Bytes returns the big-endian 8-byte representation of the batch ID,
// suitable as a storage key.
func (id BatchID) Bytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// BatchIDFromBytes decodes a batch ID from its big-endian 8-byte form.
func BatchIDFromBytes(buf []byte) BatchID {
	if len(buf) != 8 {
		return 0
	}
	return BatchID(binary.BigEndian.Uint64(buf))
}

// IsZero reports whether the ID refers to no batch at all.
func (id BatchID) IsZero() bool { return id == 0 }

// Batch is the persistent record of a collection round.
type Batch struct {
	ID              BatchID    `json:"id"`
	Open            bool       `json:"open"`
	SubmissionCount uint64     `json:"submissionCount"`
	OpenedAt        time.Time  `json:"openedAt"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
}

// RequestID identifies a decryption request. It is assigned by the
// decryption oracle and opaque to the node.
type RequestID = HexBytes

// DecryptionRequest tracks an outstanding or completed decryption of a
// batch total. Requests are never deleted; a consumed request is kept as
// the audit record of the reveal.
type DecryptionRequest struct {
	ID               RequestID  `json:"requestId"`
	BatchID          BatchID    `json:"batchId"`
	StateFingerprint HexBytes   `json:"stateFingerprint"`
	Consumed         bool       `json:"consumed"`
	RequestedAt      time.Time  `json:"requestedAt"`
	Total            *BigInt    `json:"total,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Registry captures the access-control state of the node: the single
// administrator, the trusted oracle identity, the global pause flag and the
// rate-limiter cooldown.
type Registry struct {
	Administrator   common.Address `json:"administrator"`
	OracleAddress   common.Address `json:"oracleAddress"`
	Paused          bool           `json:"paused"`
	CooldownSeconds uint64         `json:"cooldownSeconds"`
}
