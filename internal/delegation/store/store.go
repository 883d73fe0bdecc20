// Package store provides persistence for delegations.
package store

import (
	"context"
	"errors"

	"travlr/internal/delegation/models"
	id "travlr/pkg/domain"
)

// ErrNotFound is returned when no delegation matches the query.
var ErrNotFound = errors.New("delegation not found")

// Store is the persistence contract for the delegation service.
// Error Contract:
// - Find returns ErrNotFound when no delegation exists
// - Update returns ErrNotFound when the delegation to update is missing
type Store interface {
	Save(ctx context.Context, d *models.Delegation) error
	Find(ctx context.Context, delegationID id.DelegationID) (*models.Delegation, error)
	ListByDelegator(ctx context.Context, delegator id.Identifier) ([]*models.Delegation, error)
	ListByDelegate(ctx context.Context, delegate id.Identifier) ([]*models.Delegation, error)
	Update(ctx context.Context, d *models.Delegation) error
}
