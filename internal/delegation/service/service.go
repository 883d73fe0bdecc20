package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"travlr/internal/audit"
	"travlr/internal/delegation/metrics"
	"travlr/internal/delegation/models"
	"travlr/internal/delegation/store"
	"travlr/internal/identity"
	"travlr/internal/notify"
	id "travlr/pkg/domain"
	pkgerrors "travlr/pkg/domain-errors"
	platformsync "travlr/pkg/platform/sync"
	"travlr/pkg/requestcontext"
)

// Notifier pushes lifecycle events to connected parties.
type Notifier interface {
	Publish(ctx context.Context, recipient id.Identifier, kind string, data map[string]string)
}

// GrantRevoker cascades a delegation revocation into the grants it produced.
type GrantRevoker func(ctx context.Context, actor id.Identifier, delegationID id.DelegationID) (int, error)

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDefaultTTL sets the lifetime applied when a creation request names none.
// Zero means delegations are open ended until revoked.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) { s.defaultTTL = ttl }
}

// Service manages standing delegations of consent authority. Transitions on
// one delegation run single writer; permission checks are read only and never
// fail, they just answer no.
type Service struct {
	store      store.Store
	identity   identity.Provider
	auditor    *audit.Publisher
	notifier   Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
	locks      *platformsync.ShardedMutex
	defaultTTL time.Duration
	onRevoke   GrantRevoker
}

func NewService(st store.Store, provider identity.Provider, auditor *audit.Publisher, opts ...Option) *Service {
	svc := &Service{
		store:    st,
		identity: provider,
		auditor:  auditor,
		logger:   slog.Default(),
		tracer:   otel.Tracer("delegation"),
		locks:    platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// RegisterRevokeHook wires the grant cascade. It is called once during
// assembly, after the consent service exists.
func (s *Service) RegisterRevokeHook(hook GrantRevoker) {
	s.onRevoke = hook
}

// CreateInput carries a delegator's petition to open a delegation.
type CreateInput struct {
	Delegate  id.Identifier
	Fields    []string
	Reason    string
	TTL       time.Duration
	Signature []byte
}

// Create opens a delegation from caller to in.Delegate. The delegation is
// active immediately; the delegate is notified but never asked.
func (s *Service) Create(ctx context.Context, caller id.Identifier, in CreateInput) (*models.Delegation, error) {
	ctx, span := s.tracer.Start(ctx, "delegation.create")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := requestcontext.Now(ctx)
	d, err := models.NewDelegation(id.NewDelegationID(), caller, in.Delegate, in.Fields, in.Reason, now, ttl)
	if err != nil {
		return nil, err
	}

	if _, err := s.identity.Resolve(ctx, in.Delegate); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delegate identifier unknown")
		}
		return nil, err
	}

	ok, err := s.identity.Verify(ctx, caller, models.CreationPayload(caller, in.Delegate, in.Fields), in.Signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.emitAudit(ctx, audit.Event{
			Timestamp: now,
			Actor:     string(caller),
			Subject:   string(caller),
			Action:    audit.ActionSignatureRejected,
			Decision:  audit.DecisionRejected,
			Reason:    "delegate",
			Security:  true,
		})
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "delegation signature rejected")
	}

	if err := s.store.Save(ctx, d); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "saving delegation")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(caller),
		Subject:    string(caller),
		Action:     audit.ActionDelegationCreated,
		EntityType: audit.EntityDelegation,
		EntityID:   d.ID.String(),
		Decision:   audit.DecisionRecorded,
		Fields:     d.Fields,
	})
	s.publish(ctx, in.Delegate, notify.KindDelegationOpened, map[string]string{
		"delegationId": d.ID.String(),
		"delegator":    string(caller),
	})
	if s.metrics != nil {
		s.metrics.IncrementDelegationsCreated()
		s.metrics.IncrementActiveDelegations(1)
	}
	return d, nil
}

// Get returns a delegation to one of its parties.
func (s *Service) Get(ctx context.Context, caller id.Identifier, delegationID id.DelegationID) (*models.Delegation, error) {
	d, err := s.find(ctx, delegationID)
	if err != nil {
		return nil, err
	}
	if caller != d.Delegator && caller != d.Delegate {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this delegation")
	}
	return d, nil
}

// Parties returns the delegator and delegate of a delegation regardless of
// its status. Rotation addressing needs the parties of closed delegations
// too, so no liveness check happens here.
func (s *Service) Parties(ctx context.Context, delegationID id.DelegationID) (id.Identifier, id.Identifier, error) {
	d, err := s.find(ctx, delegationID)
	if err != nil {
		return "", "", err
	}
	return d.Delegator, d.Delegate, nil
}

// ListForDelegator returns delegations the caller has handed out.
func (s *Service) ListForDelegator(ctx context.Context, delegator id.Identifier) ([]*models.Delegation, error) {
	ds, err := s.store.ListByDelegator(ctx, delegator)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing delegations")
	}
	return ds, nil
}

// ListForDelegate returns delegations held by the caller.
func (s *Service) ListForDelegate(ctx context.Context, delegate id.Identifier) ([]*models.Delegation, error) {
	ds, err := s.store.ListByDelegate(ctx, delegate)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing delegations")
	}
	return ds, nil
}

// Revoke withdraws a delegation and cascades into every grant it produced.
// Revoking an already revoked delegation is an idempotent no-op.
func (s *Service) Revoke(ctx context.Context, caller id.Identifier, delegationID id.DelegationID, signature []byte) (*models.Delegation, error) {
	ctx, span := s.tracer.Start(ctx, "delegation.revoke")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}

	d, err := s.find(ctx, delegationID)
	if err != nil {
		return nil, err
	}
	if caller != d.Delegator {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the delegator may revoke")
	}

	ok, err := s.identity.Verify(ctx, caller, models.RevocationPayload(delegationID), signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.emitAudit(ctx, audit.Event{
			Timestamp:  requestcontext.Now(ctx),
			Actor:      string(caller),
			Subject:    string(d.Delegator),
			Action:     audit.ActionSignatureRejected,
			EntityType: audit.EntityDelegation,
			EntityID:   delegationID.String(),
			Decision:   audit.DecisionRejected,
			Reason:     "revoke",
			Security:   true,
		})
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "revocation signature rejected")
	}

	now := requestcontext.Now(ctx)
	key := delegationID.String()
	s.locks.Lock(key)
	d, err = s.find(ctx, delegationID)
	if err != nil {
		s.locks.Unlock(key)
		return nil, err
	}
	if d.RevokedAt != nil {
		s.locks.Unlock(key)
		return d, nil
	}
	wasActive := d.IsActive(now)
	d.Status = models.StatusRevoked
	d.RevokedAt = &now
	if err := s.store.Update(ctx, d); err != nil {
		s.locks.Unlock(key)
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "revoking delegation")
	}
	s.locks.Unlock(key)

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(caller),
		Subject:    string(d.Delegator),
		Action:     audit.ActionDelegationRevoked,
		EntityType: audit.EntityDelegation,
		EntityID:   delegationID.String(),
		Decision:   audit.DecisionRevoked,
	})
	s.publish(ctx, d.Delegate, notify.KindDelegationClosed, map[string]string{
		"delegationId": delegationID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementDelegationsRevoked()
		if wasActive {
			s.metrics.DecrementActiveDelegations(1)
		}
	}

	if s.onRevoke != nil {
		cascaded, err := s.onRevoke(ctx, caller, delegationID)
		if err != nil {
			// The delegation is already closed; the cascade can be replayed.
			s.logger.ErrorContext(ctx, "grant cascade failed after delegation revocation",
				"delegation_id", delegationID.String(),
				"revoked_grants", cascaded,
				"error", err,
			)
		} else if s.metrics != nil {
			s.metrics.AddCascadedGrantRevokes(float64(cascaded))
		}
	}

	return d, nil
}

// CheckPermission is a pure predicate: does this delegation currently cover
// these fields. It answers false for unknown, revoked, and expired
// delegations instead of erroring.
func (s *Service) CheckPermission(ctx context.Context, delegationID id.DelegationID, fields []string) bool {
	d, err := s.store.Find(ctx, delegationID)
	if err != nil {
		s.recordCheck("unknown")
		return false
	}
	if !d.IsActive(requestcontext.Now(ctx)) {
		s.recordCheck("inactive")
		return false
	}
	if !d.Covers(models.NormalizeFields(fields)) {
		s.recordCheck("uncovered")
		return false
	}
	s.recordCheck("allowed")
	return true
}

// Authorize finds an active delegation from holder to delegate covering
// fields. It backs delegated consent decisions.
func (s *Service) Authorize(ctx context.Context, delegate, holder id.Identifier, fields []string) (id.DelegationID, error) {
	ds, err := s.store.ListByDelegate(ctx, delegate)
	if err != nil {
		return id.DelegationID{}, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing delegations")
	}

	now := requestcontext.Now(ctx)
	normalized := models.NormalizeFields(fields)
	for _, d := range ds {
		if d.Delegator != holder || !d.IsActive(now) {
			continue
		}
		if d.Covers(normalized) {
			s.recordCheck("allowed")
			return d.ID, nil
		}
	}
	s.recordCheck("denied")
	return id.DelegationID{}, pkgerrors.New(pkgerrors.CodeForbidden, "no active delegation covers these fields")
}

func (s *Service) find(ctx context.Context, delegationID id.DelegationID) (*models.Delegation, error) {
	d, err := s.store.Find(ctx, delegationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delegation not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading delegation")
	}
	return d, nil
}

func (s *Service) recordCheck(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementPermissionChecks(outcome)
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, event)
}

func (s *Service) publish(ctx context.Context, recipient id.Identifier, kind string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, recipient, kind, data)
}
