package store

import (
	"context"
	"sort"
	"sync"

	"travlr/internal/delegation/models"
	id "travlr/pkg/domain"
)

// InMemoryStore keeps delegations in process memory, returning copies.
type InMemoryStore struct {
	mu          sync.RWMutex
	delegations map[id.DelegationID]*models.Delegation
}

// New constructs an empty in-memory delegation store.
func New() *InMemoryStore {
	return &InMemoryStore{delegations: make(map[id.DelegationID]*models.Delegation)}
}

func (s *InMemoryStore) Save(_ context.Context, d *models.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delegations[d.ID] = copyDelegation(d)
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, delegationID id.DelegationID) (*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.delegations[delegationID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDelegation(d), nil
}

func (s *InMemoryStore) ListByDelegator(_ context.Context, delegator id.Identifier) ([]*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Delegation
	for _, d := range s.delegations {
		if d.Delegator == delegator {
			out = append(out, copyDelegation(d))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListByDelegate(_ context.Context, delegate id.Identifier) ([]*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Delegation
	for _, d := range s.delegations {
		if d.Delegate == delegate {
			out = append(out, copyDelegation(d))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) Update(_ context.Context, d *models.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.delegations[d.ID]; !ok {
		return ErrNotFound
	}
	s.delegations[d.ID] = copyDelegation(d)
	return nil
}

func copyDelegation(d *models.Delegation) *models.Delegation {
	cp := *d
	cp.Fields = append([]string(nil), d.Fields...)
	if d.ExpiresAt != nil {
		t := *d.ExpiresAt
		cp.ExpiresAt = &t
	}
	if d.RevokedAt != nil {
		t := *d.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}

func sortByCreation(ds []*models.Delegation) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].CreatedAt.Before(ds[j].CreatedAt) })
}
