// Package credentials holds each holder's credential field values. The
// consent service reads from it exactly once per approval, selecting only the
// approved subset before sealing.
package credentials

import (
	"context"
	"sync"

	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
)

// Source supplies a holder's full credential field map.
type Source interface {
	Fields(ctx context.Context, holder id.Identifier) (map[string]string, error)
}

// InMemoryVault keeps credential fields in process memory.
type InMemoryVault struct {
	mu     sync.RWMutex
	fields map[id.Identifier]map[string]string
}

func NewInMemoryVault() *InMemoryVault {
	return &InMemoryVault{fields: make(map[id.Identifier]map[string]string)}
}

// Put stores or overwrites a single field for a holder.
func (v *InMemoryVault) Put(holder id.Identifier, field, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	m, ok := v.fields[holder]
	if !ok {
		m = make(map[string]string)
		v.fields[holder] = m
	}
	m[field] = value
}

// Fields returns a copy of the holder's credential map.
func (v *InMemoryVault) Fields(_ context.Context, holder id.Identifier) (map[string]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	m, ok := v.fields[holder]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "no credentials stored for holder")
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out, nil
}
