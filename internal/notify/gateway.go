// Package notify fans consent lifecycle events out to connected parties.
// Delivery is best effort: a slow or absent subscriber never blocks the
// consent path.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "travlr/pkg/domain"
	"travlr/pkg/requestcontext"
)

// Event kinds pushed to subscribers.
const (
	KindConsentRequested = "consent.requested"
	KindConsentApproved  = "consent.approved"
	KindConsentDenied    = "consent.denied"
	KindConsentExpired   = "consent.expired"
	KindGrantRevoked     = "consent.grant_revoked"
	KindDelegationOpened = "delegation.opened"
	KindDelegationClosed = "delegation.closed"
	KindKeysRotated      = "keys.rotated"
)

// Event is a single notification addressed to one identity.
type Event struct {
	Kind      string            `json:"kind"`
	Subject   id.Identifier     `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Data      map[string]string `json:"data,omitempty"`
}

const subscriberBuffer = 16

type subscriber struct {
	ch chan Event
}

// Hub routes events to per-identity subscribers. An identity may hold several
// concurrent subscriptions (one per connected device).
type Hub struct {
	mu     sync.RWMutex
	subs   map[id.Identifier]map[*subscriber]struct{}
	logger *slog.Logger
}

type HubOption func(*Hub)

func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[id.Identifier]map[*subscriber]struct{}),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a listener for events addressed to recipient. The
// returned cancel func must be called when the listener goes away; it closes
// the channel.
func (h *Hub) Subscribe(recipient id.Identifier) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, subscriberBuffer)}

	h.mu.Lock()
	set, ok := h.subs[recipient]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[recipient] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[recipient]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, recipient)
				}
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber of recipient without
// blocking. Events to a full subscriber buffer are dropped and logged.
func (h *Hub) Publish(ctx context.Context, recipient id.Identifier, kind string, data map[string]string) {
	ev := Event{
		Kind:      kind,
		Subject:   recipient,
		Timestamp: requestcontext.Now(ctx),
		Data:      data,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[recipient] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.WarnContext(ctx, "notification dropped, subscriber buffer full",
				"recipient", recipient,
				"kind", kind,
			)
		}
	}
}

// SubscriberCount reports how many live subscriptions an identity holds.
func (h *Hub) SubscriberCount(recipient id.Identifier) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[recipient])
}
