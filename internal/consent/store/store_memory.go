package store

import (
	"context"
	"sort"
	"sync"

	"travlr/internal/consent/models"
	id "travlr/pkg/domain"
)

// InMemoryStore keeps requests and grants in process memory. It serves the
// single-node deployment and the test suites; all returns are copies so
// callers cannot mutate stored state.
type InMemoryStore struct {
	mu             sync.RWMutex
	requests       map[id.RequestID]*models.Request
	grants         map[id.GrantID]*models.Grant
	grantByRequest map[id.RequestID]id.GrantID
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		requests:       make(map[id.RequestID]*models.Request),
		grants:         make(map[id.GrantID]*models.Grant),
		grantByRequest: make(map[id.RequestID]id.GrantID),
	}
}

func (s *InMemoryStore) SaveRequest(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyRequest(req)
	s.requests[req.ID] = cp
	return nil
}

func (s *InMemoryStore) FindRequest(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRequest(req), nil
}

func (s *InMemoryStore) ListRequestsByHolder(_ context.Context, holder id.Identifier) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, req := range s.requests {
		if req.Holder == holder {
			out = append(out, copyRequest(req))
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *InMemoryStore) ListRequestsByRequester(_ context.Context, requester id.Identifier) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Request
	for _, req := range s.requests {
		if req.Requester == requester {
			out = append(out, copyRequest(req))
		}
	}
	sortRequests(out)
	return out, nil
}

func (s *InMemoryStore) UpdateRequest(_ context.Context, req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; !ok {
		return ErrNotFound
	}
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (s *InMemoryStore) SaveGrant(_ context.Context, grant *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grant.ID] = copyGrant(grant)
	s.grantByRequest[grant.RequestID] = grant.ID
	return nil
}

func (s *InMemoryStore) FindGrant(_ context.Context, grantID id.GrantID) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[grantID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGrant(grant), nil
}

func (s *InMemoryStore) FindGrantByRequest(_ context.Context, requestID id.RequestID) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grantID, ok := s.grantByRequest[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyGrant(s.grants[grantID]), nil
}

func (s *InMemoryStore) ListGrantsByHolder(_ context.Context, holder id.Identifier) ([]*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Grant
	for _, grant := range s.grants {
		if grant.Holder == holder {
			out = append(out, copyGrant(grant))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListGrantsByDelegation(_ context.Context, delegationID id.DelegationID) ([]*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Grant
	for _, grant := range s.grants {
		if grant.DelegationID != nil && *grant.DelegationID == delegationID {
			out = append(out, copyGrant(grant))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateGrant(_ context.Context, grant *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.ID]; !ok {
		return ErrNotFound
	}
	s.grants[grant.ID] = copyGrant(grant)
	return nil
}

func copyRequest(req *models.Request) *models.Request {
	cp := *req
	cp.RequestedFields = append([]string(nil), req.RequestedFields...)
	if req.DecidedAt != nil {
		t := *req.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}

func copyGrant(grant *models.Grant) *models.Grant {
	cp := *grant
	cp.ApprovedFields = append([]string(nil), grant.ApprovedFields...)
	if grant.DelegationID != nil {
		d := *grant.DelegationID
		cp.DelegationID = &d
	}
	if grant.Envelope != nil {
		env := *grant.Envelope
		cp.Envelope = &env
	}
	if grant.RevokedAt != nil {
		t := *grant.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp
}

func sortRequests(reqs []*models.Request) {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
}
