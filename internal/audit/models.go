package audit

import "time"

// Event is emitted from domain logic to capture key actions on the consent
// ledger. Keep it transport-agnostic so stores and sinks can fan out.
// Field names may appear here; field values never do.
type Event struct {
	Timestamp  time.Time
	Actor      string // identifier performing the action
	Subject    string // identifier the action concerns (holder or delegator)
	Action     string
	EntityType string
	EntityID   string
	Decision   string
	Reason     string
	Fields     []string // disclosed field names, never values
	Security   bool     // true for security-relevant events (signature/decryption failures)
}

// Entity types recorded on the ledger.
const (
	EntityConsentRequest = "consent_request"
	EntityConsentGrant   = "consent_grant"
	EntityDelegation     = "delegation"
	EntityRotation       = "key_rotation"
)

// Ledger actions for ordinary state transitions.
const (
	ActionRequestCreated    = "consent_request_created"
	ActionRequestApproved   = "consent_approved"
	ActionRequestDenied     = "consent_denied"
	ActionRequestExpired    = "consent_expired"
	ActionGrantRevoked      = "consent_revoked"
	ActionEnvelopeDelivered = "envelope_delivered"
	ActionDelegationCreated = "delegation_created"
	ActionDelegationRevoked = "delegation_revoked"
	ActionKeysRotated       = "keys_rotated"
)

// Security-relevant actions, recorded distinctly from ordinary transitions.
const (
	ActionSignatureRejected = "signature_rejected"
)

// Decisions.
const (
	DecisionApproved = "approved"
	DecisionDenied   = "denied"
	DecisionRevoked  = "revoked"
	DecisionExpired  = "expired"
	DecisionRejected = "rejected"
	DecisionRecorded = "recorded"
)
