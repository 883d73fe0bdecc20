package rotation

import (
	"context"
	"errors"
	"sync"

	id "travlr/pkg/domain"
)

// ErrNoRotations is returned when an identity has never rotated.
var ErrNoRotations = errors.New("no rotations recorded")

// Store persists the rotation history.
// Error Contract:
// - Last returns ErrNoRotations when the identity has never rotated
// - Append rejects sequence gaps and duplicates
type Store interface {
	Append(ctx context.Context, ev *Event) error
	ListByIdentifier(ctx context.Context, identifier id.Identifier) ([]*Event, error)
	Last(ctx context.Context, identifier id.Identifier) (*Event, error)
}

// InMemoryStore keeps rotation history in process memory. History per
// identity is append only and ordered by sequence.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.Identifier][]*Event
}

// NewInMemoryStore constructs an empty rotation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.Identifier][]*Event)}
}

func (s *InMemoryStore) Append(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.events[ev.Identifier]
	var want uint64 = 1
	if n := len(history); n > 0 {
		want = history[n-1].Sequence + 1
	}
	if ev.Sequence != want {
		return errors.New("rotation sequence gap")
	}

	cp := *ev
	cp.Continuity = append([]byte(nil), ev.Continuity...)
	if ev.DelegationID != nil {
		d := *ev.DelegationID
		cp.DelegationID = &d
	}
	s.events[ev.Identifier] = append(history, &cp)
	return nil
}

func (s *InMemoryStore) ListByIdentifier(_ context.Context, identifier id.Identifier) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.events[identifier]
	out := make([]*Event, 0, len(history))
	for _, ev := range history {
		cp := *ev
		cp.Continuity = append([]byte(nil), ev.Continuity...)
		out = append(out, &cp)
	}
	return out, nil
}

func (s *InMemoryStore) Last(_ context.Context, identifier id.Identifier) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.events[identifier]
	if len(history) == 0 {
		return nil, ErrNoRotations
	}
	cp := *history[len(history)-1]
	cp.Continuity = append([]byte(nil), cp.Continuity...)
	return &cp, nil
}
