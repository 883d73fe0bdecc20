package rotation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"travlr/internal/audit"
	"travlr/internal/identity"
	"travlr/internal/notify"
	id "travlr/pkg/domain"
	pkgerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

var (
	rotationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "travlr_key_rotations_total",
		Help: "Total number of completed key rotations, labeled by reason",
	}, []string{"reason"})
	rotationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "travlr_key_rotation_conflicts_total",
		Help: "Total number of rotation attempts rejected while another was in flight",
	})
	rotationSessionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "travlr_key_rotation_sessions_dropped_total",
		Help: "Total number of sessions invalidated by emergency rotations",
	})
)

// DelegationResolver maps a delegation ID to its parties, so a rotation can
// be addressed by delegation reference.
type DelegationResolver interface {
	Parties(ctx context.Context, delegationID id.DelegationID) (delegator, delegate id.Identifier, err error)
}

// CounterpartyLister names the identities that hold a live consent
// relationship with the given identity, for rotation fan-out.
type CounterpartyLister interface {
	Counterparties(ctx context.Context, identifier id.Identifier) ([]id.Identifier, error)
}

// SessionInvalidator drops a holder's live session tokens.
type SessionInvalidator interface {
	InvalidateHolder(holder id.Identifier) int
}

// Notifier pushes rotation events to connected parties.
type Notifier interface {
	Publish(ctx context.Context, recipient id.Identifier, kind string, data map[string]string)
}

type Option func(*Coordinator)

// WithLogger sets the logger instance for the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithMaxKeyAge sets the key age past which the advisory recommends rotation.
func WithMaxKeyAge(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.maxKeyAge = d
		}
	}
}

// WithIdentityMaxAge sets the advisory threshold for identities that have
// never rotated at all.
func WithIdentityMaxAge(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.identityMaxAge = d
		}
	}
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithCounterparties enables fan-out to related identities.
func WithCounterparties(l CounterpartyLister) Option {
	return func(c *Coordinator) { c.counterparties = l }
}

// WithDelegationResolver enables rotation by delegation reference.
func WithDelegationResolver(r DelegationResolver) Option {
	return func(c *Coordinator) { c.delegations = r }
}

// WithSessionInvalidator wires the emergency session sweep.
func WithSessionInvalidator(s SessionInvalidator) Option {
	return func(c *Coordinator) { c.sessions = s }
}

const (
	defaultMaxKeyAge      = 90 * 24 * time.Hour
	defaultIdentityMaxAge = 30 * 24 * time.Hour
)

// Coordinator serializes rotations per identity. At most one rotation per
// identity is in flight; a second attempt fails fast with rotation_conflict
// instead of queueing behind the first.
type Coordinator struct {
	identity       identity.Provider
	store          Store
	auditor        *audit.Publisher
	notifier       Notifier
	counterparties CounterpartyLister
	delegations    DelegationResolver
	sessions       SessionInvalidator
	logger         *slog.Logger
	tracer         trace.Tracer
	maxKeyAge      time.Duration
	identityMaxAge time.Duration

	mu       sync.Mutex
	inFlight map[id.Identifier]struct{}
}

func NewCoordinator(provider identity.Provider, store Store, auditor *audit.Publisher, opts ...Option) *Coordinator {
	c := &Coordinator{
		identity:       provider,
		store:          store,
		auditor:        auditor,
		logger:         slog.Default(),
		tracer:         otel.Tracer("rotation"),
		maxKeyAge:      defaultMaxKeyAge,
		identityMaxAge: defaultIdentityMaxAge,
		inFlight:       make(map[id.Identifier]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RotateInput addresses a rotation. IdentityRef is a holder identifier, or a
// delegation ID to rotate the delegate's keys under that delegation.
type RotateInput struct {
	IdentityRef string
	Reason      string
}

// Rotate replaces the target identity's key pairs. The outgoing key signs a
// continuity statement over the new sequence number before it is retired;
// the event lands on the history with a gap-free sequence.
func (c *Coordinator) Rotate(ctx context.Context, caller id.Identifier, in RotateInput) (*Event, error) {
	ctx, span := c.tracer.Start(ctx, "rotation.rotate")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}
	if !ValidReason(in.Reason) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "unknown rotation reason")
	}

	target, delegationID, err := c.resolveRef(ctx, caller, in.IdentityRef)
	if err != nil {
		return nil, err
	}

	if !c.tryAcquire(target) {
		rotationConflicts.Inc()
		return nil, pkgerrors.New(pkgerrors.CodeRotationConflict, "rotation already in flight for identity")
	}
	defer c.release(target)

	before, err := c.identity.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	newSequence := before.Sequence + 1

	// The retiring key signs the successor's sequence before it goes away.
	continuity, err := c.identity.Sign(ctx, target, ContinuityPayload(target, newSequence))
	if err != nil {
		return nil, err
	}

	newDigest, err := c.identity.RotateKeys(ctx, target)
	if err != nil {
		return nil, err
	}
	after, err := c.identity.Resolve(ctx, target)
	if err != nil {
		return nil, err
	}
	if after.Sequence != newSequence {
		// The provider rotated out from under us. The continuity signature
		// names the wrong sequence, so this event must not be recorded.
		return nil, pkgerrors.New(pkgerrors.CodeRotationConflict, "provider sequence advanced out of band")
	}

	now := requestcontext.Now(ctx)
	ev := &Event{
		ID:           id.NewRotationID(),
		Identifier:   target,
		DelegationID: delegationID,
		Sequence:     newSequence,
		OldKeyDigest: before.KeyDigest,
		NewKeyDigest: newDigest,
		Reason:       in.Reason,
		Continuity:   continuity,
		CreatedAt:    now,
	}
	if err := c.store.Append(ctx, ev); err != nil {
		// Keys already turned over; a history gap here is a corruption we
		// cannot paper over.
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInvariantViolation, "recording rotation")
	}

	if IsEmergency(in.Reason) && c.sessions != nil {
		dropped := c.sessions.InvalidateHolder(target)
		rotationSessionsDropped.Add(float64(dropped))
		c.logger.WarnContext(ctx, "emergency rotation dropped live sessions",
			"identifier", target,
			"sessions", dropped,
		)
	}

	c.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(caller),
		Subject:    string(target),
		Action:     audit.ActionKeysRotated,
		EntityType: audit.EntityRotation,
		EntityID:   ev.ID.String(),
		Decision:   audit.DecisionRecorded,
		Reason:     in.Reason,
		Security:   IsEmergency(in.Reason),
	})
	c.fanOut(ctx, ev)
	rotationsTotal.WithLabelValues(in.Reason).Inc()

	return ev, nil
}

// History returns an identity's rotation events in sequence order.
func (c *Coordinator) History(ctx context.Context, identifier id.Identifier) ([]*Event, error) {
	if _, err := c.identity.Resolve(ctx, identifier); err != nil {
		return nil, err
	}
	events, err := c.store.ListByIdentifier(ctx, identifier)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading rotation history")
	}
	return events, nil
}

// ShouldRotate is the advisory: it recommends rotation once the current key
// is older than the configured maximum. Identities that have never rotated
// are held to the shorter first-rotation threshold. It never forces anything.
func (c *Coordinator) ShouldRotate(ctx context.Context, identifier id.Identifier) (*Advice, error) {
	keys, err := c.identity.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}

	keyBorn := keys.CreatedAt
	threshold := c.identityMaxAge
	reason := "identity has never rotated"
	if last, err := c.store.Last(ctx, identifier); err == nil {
		keyBorn = last.CreatedAt
		threshold = c.maxKeyAge
		reason = "key age exceeds maximum"
	}

	age := requestcontext.Now(ctx).Sub(keyBorn)
	advice := &Advice{KeyAge: age}
	if age > threshold {
		advice.ShouldRotate = true
		advice.Reason = reason
	}
	return advice, nil
}

// resolveRef resolves the rotation target and checks the caller may rotate
// it: identities rotate themselves, delegation refs may be rotated by either
// party.
func (c *Coordinator) resolveRef(ctx context.Context, caller id.Identifier, ref string) (id.Identifier, *id.DelegationID, error) {
	if ref == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "identity reference required")
	}

	if delegationID, err := id.ParseDelegationID(ref); err == nil && c.delegations != nil {
		delegator, delegate, err := c.delegations.Parties(ctx, delegationID)
		if err != nil {
			return "", nil, err
		}
		if caller != delegator && caller != delegate {
			return "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this delegation")
		}
		return delegate, &delegationID, nil
	}

	target := id.Identifier(ref)
	if caller != target {
		return "", nil, pkgerrors.New(pkgerrors.CodeForbidden, "identities rotate their own keys")
	}
	return target, nil, nil
}

func (c *Coordinator) fanOut(ctx context.Context, ev *Event) {
	if c.notifier == nil {
		return
	}
	data := map[string]string{
		"identifier":   string(ev.Identifier),
		"newKeyDigest": ev.NewKeyDigest,
		"reason":       ev.Reason,
	}
	c.notifier.Publish(ctx, ev.Identifier, notify.KindKeysRotated, data)

	if c.counterparties == nil {
		return
	}
	others, err := c.counterparties.Counterparties(ctx, ev.Identifier)
	if err != nil {
		c.logger.ErrorContext(ctx, "rotation fan-out could not list counterparties",
			"identifier", ev.Identifier,
			"error", err,
		)
		return
	}
	for _, other := range others {
		c.notifier.Publish(ctx, other, notify.KindKeysRotated, data)
	}
}

func (c *Coordinator) tryAcquire(identifier id.Identifier) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[identifier]; busy {
		return false
	}
	c.inFlight[identifier] = struct{}{}
	return true
}

func (c *Coordinator) release(identifier id.Identifier) {
	c.mu.Lock()
	delete(c.inFlight, identifier)
	c.mu.Unlock()
}

func (c *Coordinator) emitAudit(ctx context.Context, event audit.Event) {
	if c.auditor == nil {
		return
	}
	_ = c.auditor.Emit(ctx, event)
}
