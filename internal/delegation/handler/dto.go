package handler

import (
	"encoding/base64"
	"time"

	"travlr/internal/delegation/models"
	dErrors "travlr/pkg/domain-errors"
)

// CreateBody opens a delegation. TTLSeconds of zero means open ended.
type CreateBody struct {
	Delegate   string   `json:"delegate"`
	Fields     []string `json:"fields"`
	Reason     string   `json:"reason,omitempty"`
	TTLSeconds int64    `json:"ttlSeconds,omitempty"`
	Signature  string   `json:"signature"`
}

func (b *CreateBody) Validate() error {
	if b.Delegate == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "delegate is required")
	}
	if len(b.Fields) == 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "fields must not be empty")
	}
	if b.Signature == "" {
		return dErrors.New(dErrors.CodeInvalidRequest, "signature is required")
	}
	if b.TTLSeconds < 0 {
		return dErrors.New(dErrors.CodeInvalidRequest, "ttlSeconds must not be negative")
	}
	return nil
}

func (b *CreateBody) DecodedSignature() ([]byte, error) {
	return decodeSignature(b.Signature)
}

// RevokeBody carries the delegator's revocation signature.
type RevokeBody struct {
	Signature string `json:"signature"`
}

func (b *RevokeBody) DecodedSignature() ([]byte, error) {
	if b.Signature == "" {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "signature is required")
	}
	return decodeSignature(b.Signature)
}

// CheckBody names the fields to test against the delegation.
type CheckBody struct {
	Fields []string `json:"fields"`
}

// CheckResponse is the permission verdict.
type CheckResponse struct {
	Allowed bool `json:"allowed"`
}

// DelegationResponse is the wire form of a delegation. Status folds in
// time-based expiry as of the serving instant.
type DelegationResponse struct {
	ID        string     `json:"id"`
	Delegator string     `json:"delegator"`
	Delegate  string     `json:"delegate"`
	Fields    []string   `json:"fields"`
	Reason    string     `json:"reason,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// ListResponse wraps delegation collections.
type ListResponse struct {
	Delegations []*DelegationResponse `json:"delegations"`
}

func formatDelegation(d *models.Delegation, now time.Time) *DelegationResponse {
	return &DelegationResponse{
		ID:        d.ID.String(),
		Delegator: string(d.Delegator),
		Delegate:  string(d.Delegate),
		Fields:    d.Fields,
		Reason:    d.Reason,
		Status:    string(d.EffectiveStatus(now)),
		CreatedAt: d.CreatedAt,
		ExpiresAt: d.ExpiresAt,
		RevokedAt: d.RevokedAt,
	}
}

func formatDelegations(ds []*models.Delegation, now time.Time) []*DelegationResponse {
	out := make([]*DelegationResponse, 0, len(ds))
	for _, d := range ds {
		out = append(out, formatDelegation(d, now))
	}
	return out
}

func decodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidRequest, "signature must be base64")
	}
	return sig, nil
}
