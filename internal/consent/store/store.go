// Package store provides persistence for consent requests and grants.
package store

import (
	"context"
	"errors"

	"travlr/internal/consent/models"
	id "travlr/pkg/domain"
)

// ErrNotFound is returned when no record matches the query.
var ErrNotFound = errors.New("record not found")

// Store is the persistence contract for the consent service.
// Error Contract:
// - Find* methods return ErrNotFound when no record exists
// - Update* methods return ErrNotFound when the record to update is missing
type Store interface {
	SaveRequest(ctx context.Context, req *models.Request) error
	FindRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListRequestsByHolder(ctx context.Context, holder id.Identifier) ([]*models.Request, error)
	ListRequestsByRequester(ctx context.Context, requester id.Identifier) ([]*models.Request, error)
	UpdateRequest(ctx context.Context, req *models.Request) error

	SaveGrant(ctx context.Context, grant *models.Grant) error
	FindGrant(ctx context.Context, grantID id.GrantID) (*models.Grant, error)
	FindGrantByRequest(ctx context.Context, requestID id.RequestID) (*models.Grant, error)
	ListGrantsByHolder(ctx context.Context, holder id.Identifier) ([]*models.Grant, error)
	ListGrantsByDelegation(ctx context.Context, delegationID id.DelegationID) ([]*models.Grant, error)
	UpdateGrant(ctx context.Context, grant *models.Grant) error
}
