// Package models holds the consent domain entities: the request a requester
// opens against a holder, and the grant produced when the holder approves.
package models

import (
	"strings"
	"time"

	"travlr/internal/contextcard"
	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
)

// Request is a requester's petition for a set of credential fields.
//
// # Lifecycle
//
// A request starts Pending and moves exactly once to Approved, Denied, or
// Expired. Expiry is evaluated lazily: any read past ExpiresAt of a still
// Pending request settles it as Expired before the caller sees it. Approval
// produces a Grant; the request itself never becomes Revoked.
type Request struct {
	ID              id.RequestID
	Requester       id.Identifier
	Holder          id.Identifier
	RequestedFields []string
	Reason          string
	Status          Status
	CreatedAt       time.Time
	ExpiresAt       time.Time
	DecidedAt       *time.Time
}

// NewRequest creates a pending Request with domain invariant checks.
// Requested fields are normalized on the way in.
func NewRequest(requestID id.RequestID, requester, holder id.Identifier, fields []string, reason string, createdAt time.Time, ttl time.Duration) (*Request, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request ID required")
	}
	if requester == "" || holder == "" {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "requester and holder identifiers required")
	}
	if requester == holder {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "requester and holder must differ")
	}
	fields = NormalizeFields(fields)
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "at least one requested field required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "request TTL must be positive")
	}
	return &Request{
		ID:              requestID,
		Requester:       requester,
		Holder:          holder,
		RequestedFields: fields,
		Reason:          reason,
		Status:          StatusPending,
		CreatedAt:       createdAt,
		ExpiresAt:       createdAt.Add(ttl),
	}, nil
}

// IsExpired reports whether a still pending request has passed its deadline.
func (r Request) IsExpired(now time.Time) bool {
	return r.Status == StatusPending && !r.ExpiresAt.After(now)
}

// Grant is the durable record of an approval: which fields the holder
// released and the sealed envelope carrying them. SessionToken is the bearer
// token the requester collects when polling the request status; its
// verification lifecycle lives in the session issuer.
type Grant struct {
	ID        id.GrantID
	RequestID id.RequestID
	Requester id.Identifier
	Holder    id.Identifier
	// DelegationID is set when a delegate approved on the holder's behalf.
	// Revoking that delegation cascades to every grant carrying its ID.
	DelegationID   *id.DelegationID
	ApprovedFields []string
	Envelope       *contextcard.Envelope
	SessionToken   string
	Status         Status
	CreatedAt      time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
}

// IsActive reports whether the grant can still be exercised.
func (g Grant) IsActive(now time.Time) bool {
	return g.Status == StatusApproved && g.RevokedAt == nil && g.ExpiresAt.After(now)
}

// Signature payloads. The holder signs these exact byte strings; both sides
// must build them identically, so fields are joined in normalized order.

func ApprovalPayload(requestID id.RequestID, approvedFields []string) []byte {
	return []byte("approve|" + requestID.String() + "|" + strings.Join(NormalizeFields(approvedFields), ","))
}

func DenialPayload(requestID id.RequestID) []byte {
	return []byte("deny|" + requestID.String())
}

func GrantRevocationPayload(grantID id.GrantID) []byte {
	return []byte("revoke|" + grantID.String())
}
