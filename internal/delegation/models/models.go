// Package models holds the delegation domain entities: standing authority a
// delegator hands to a delegate to decide consent over a bounded field set.
package models

import (
	"sort"
	"strings"
	"time"

	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
)

// Status is the lifecycle state of a delegation.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// Delegation is live from the moment it is created; there is no acceptance
// step. The delegate may approve, deny, and revoke consent over Fields on the
// delegator's behalf until revocation or expiry.
type Delegation struct {
	ID        id.DelegationID
	Delegator id.Identifier
	Delegate  id.Identifier
	Fields    []string
	Reason    string
	Status    Status
	CreatedAt time.Time
	ExpiresAt *time.Time
	RevokedAt *time.Time
}

// NewDelegation creates an active Delegation with domain invariant checks.
func NewDelegation(delegationID id.DelegationID, delegator, delegate id.Identifier, fields []string, reason string, createdAt time.Time, ttl time.Duration) (*Delegation, error) {
	if delegationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "delegation ID required")
	}
	if delegator == "" || delegate == "" {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "delegator and delegate identifiers required")
	}
	if delegator == delegate {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "cannot delegate to oneself")
	}
	fields = NormalizeFields(fields)
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "at least one delegated field required")
	}
	d := &Delegation{
		ID:        delegationID,
		Delegator: delegator,
		Delegate:  delegate,
		Fields:    fields,
		Reason:    reason,
		Status:    StatusActive,
		CreatedAt: createdAt,
	}
	if ttl > 0 {
		expiry := createdAt.Add(ttl)
		d.ExpiresAt = &expiry
	}
	return d, nil
}

// IsActive reports whether the delegation currently confers authority.
func (d Delegation) IsActive(now time.Time) bool {
	if d.Status != StatusActive || d.RevokedAt != nil {
		return false
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return false
	}
	return true
}

// EffectiveStatus reports the lifecycle state at the provided time, folding
// in time-based expiry that has not been settled yet.
func (d Delegation) EffectiveStatus(now time.Time) Status {
	if d.Status == StatusRevoked {
		return StatusRevoked
	}
	if d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return StatusExpired
	}
	return d.Status
}

// Covers reports whether every requested field lies inside the delegated set.
// An empty request means "any authority at all" and is covered by any
// delegation.
func (d Delegation) Covers(fields []string) bool {
	allowed := make(map[string]struct{}, len(d.Fields))
	for _, f := range d.Fields {
		allowed[f] = struct{}{}
	}
	for _, f := range fields {
		if _, ok := allowed[f]; !ok {
			return false
		}
	}
	return true
}

// NormalizeFields sorts and deduplicates field names, dropping empties.
func NormalizeFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Signature payloads, signed by the delegator.

func CreationPayload(delegator, delegate id.Identifier, fields []string) []byte {
	return []byte("delegate|" + string(delegator) + "|" + string(delegate) + "|" + strings.Join(NormalizeFields(fields), ","))
}

func RevocationPayload(delegationID id.DelegationID) []byte {
	return []byte("revoke|" + delegationID.String())
}
