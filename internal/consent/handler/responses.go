package handler

import (
	"time"

	"travlr/internal/consent/models"
	"travlr/internal/contextcard"
)

// RequestResponse is the wire form of a consent request.
type RequestResponse struct {
	ID              string     `json:"id"`
	Requester       string     `json:"requester"`
	Holder          string     `json:"holder"`
	RequestedFields []string   `json:"requestedFields"`
	Reason          string     `json:"reason,omitempty"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	DecidedAt       *time.Time `json:"decidedAt,omitempty"`
}

// GrantResponse is the wire form of a grant. The envelope itself is only
// served through the data endpoint against a session token.
type GrantResponse struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"requestId"`
	ApprovedFields []string   `json:"approvedFields"`
	Status         string     `json:"status"`
	DelegationID   string     `json:"delegationId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
}

// StatusResponse is returned from the status endpoint. SessionToken is
// populated only for the requester of an approved, still active request.
type StatusResponse struct {
	Request      *RequestResponse `json:"request"`
	Grant        *GrantResponse   `json:"grant,omitempty"`
	SessionToken string           `json:"sessionToken,omitempty"`
}

// EnvelopeResponse carries the sealed card to the requester alongside the
// names of the fields the holder released.
type EnvelopeResponse struct {
	Holder   string                `json:"holder"`
	Fields   []string              `json:"fields"`
	Envelope *contextcard.Envelope `json:"envelope"`
}

// ListResponse wraps request collections.
type ListResponse struct {
	Requests []*RequestResponse `json:"requests"`
}

// GrantListResponse wraps grant collections.
type GrantListResponse struct {
	Grants []*GrantResponse `json:"grants"`
}

func formatRequest(req *models.Request) *RequestResponse {
	return &RequestResponse{
		ID:              req.ID.String(),
		Requester:       string(req.Requester),
		Holder:          string(req.Holder),
		RequestedFields: req.RequestedFields,
		Reason:          req.Reason,
		Status:          string(req.Status),
		CreatedAt:       req.CreatedAt,
		ExpiresAt:       req.ExpiresAt,
		DecidedAt:       req.DecidedAt,
	}
}

func formatRequests(reqs []*models.Request) []*RequestResponse {
	out := make([]*RequestResponse, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, formatRequest(req))
	}
	return out
}

func formatGrant(grant *models.Grant) *GrantResponse {
	resp := &GrantResponse{
		ID:             grant.ID.String(),
		RequestID:      grant.RequestID.String(),
		ApprovedFields: grant.ApprovedFields,
		Status:         string(grant.Status),
		CreatedAt:      grant.CreatedAt,
		ExpiresAt:      grant.ExpiresAt,
		RevokedAt:      grant.RevokedAt,
	}
	if grant.DelegationID != nil {
		resp.DelegationID = grant.DelegationID.String()
	}
	return resp
}

func formatGrants(grants []*models.Grant) []*GrantResponse {
	out := make([]*GrantResponse, 0, len(grants))
	for _, grant := range grants {
		out = append(out, formatGrant(grant))
	}
	return out
}
