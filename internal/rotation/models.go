// Package rotation coordinates key rotation for identities participating in
// consent. Each rotation is recorded as an event carrying a continuity
// signature made with the outgoing key, so verifiers can walk an unbroken
// chain from the identity's first key to its current one.
package rotation

import (
	"strconv"
	"time"

	id "travlr/pkg/domain"
)

// Reasons accepted on rotation requests. An emergency rotation additionally
// invalidates the identity's live sessions.
const (
	ReasonScheduled     = "scheduled"
	ReasonUserRequested = "user_requested"
	ReasonEmergency     = "emergency"
)

// Event is one completed rotation. Sequence is strictly increasing and gap
// free per identifier; the first rotation of an identity has Sequence 1.
type Event struct {
	ID           id.RotationID
	Identifier   id.Identifier
	DelegationID *id.DelegationID
	Sequence     uint64
	OldKeyDigest string
	NewKeyDigest string
	Reason       string
	// Continuity is the signature over ContinuityPayload made with the key
	// being retired.
	Continuity []byte
	CreatedAt  time.Time
}

// ContinuityPayload is the exact byte string the outgoing key signs.
func ContinuityPayload(identifier id.Identifier, newSequence uint64) []byte {
	return []byte("rotate|" + string(identifier) + "|" + strconv.FormatUint(newSequence, 10))
}

// IsEmergency reports whether a rotation must sweep live sessions.
func IsEmergency(reason string) bool {
	return reason == ReasonEmergency
}

// ValidReason reports whether the reason is one the coordinator accepts.
func ValidReason(reason string) bool {
	switch reason {
	case ReasonScheduled, ReasonUserRequested, ReasonEmergency:
		return true
	}
	return false
}

// Advice is the advisory verdict on whether an identity should rotate.
type Advice struct {
	ShouldRotate bool
	Reason       string
	KeyAge       time.Duration
}
