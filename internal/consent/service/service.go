package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks DelegationChecker,Notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"travlr/internal/audit"
	"travlr/internal/consent/metrics"
	"travlr/internal/consent/models"
	"travlr/internal/consent/store"
	"travlr/internal/contextcard"
	"travlr/internal/credentials"
	"travlr/internal/identity"
	"travlr/internal/notify"
	"travlr/internal/session"
	id "travlr/pkg/domain"
	pkgerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

// DelegationChecker authorizes a delegate to decide on a holder's behalf.
// Authorize returns the covering delegation's ID, or a forbidden error when
// no active delegation from holder to delegate covers the fields.
type DelegationChecker interface {
	Authorize(ctx context.Context, delegate, holder id.Identifier, fields []string) (id.DelegationID, error)
}

// Notifier pushes lifecycle events to connected parties. Implementations
// must not block.
type Notifier interface {
	Publish(ctx context.Context, recipient id.Identifier, kind string, data map[string]string)
}

const (
	defaultRequestTTL = 24 * time.Hour
	defaultGrantTTL   = 7 * 24 * time.Hour
)

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithRequestTTL configures how long a request stays open for decision.
func WithRequestTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.requestTTL = ttl
		}
	}
}

// WithGrantTTL configures how long an approved grant and its envelope live.
func WithGrantTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.grantTTL = ttl
		}
	}
}

// WithDelegationChecker enables decisions by delegates.
func WithDelegationChecker(d DelegationChecker) Option {
	return func(s *Service) { s.delegations = d }
}

// WithNotifier sets the notification sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// Service drives the consent request lifecycle: open, decide, seal, revoke.
// Each entity's transitions run single writer through the sharded tx; expiry
// is settled lazily on read.
type Service struct {
	tx          StoreTx
	store       store.Store
	identity    identity.Provider
	codec       *contextcard.Codec
	sessions    *session.Issuer
	credentials credentials.Source
	delegations DelegationChecker
	auditor     *audit.Publisher
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	requestTTL  time.Duration
	grantTTL    time.Duration
}

func NewService(st store.Store, provider identity.Provider, codec *contextcard.Codec, sessions *session.Issuer, creds credentials.Source, auditor *audit.Publisher, opts ...Option) *Service {
	svc := &Service{
		tx:          NewShardedTx(st),
		store:       st,
		identity:    provider,
		codec:       codec,
		sessions:    sessions,
		credentials: creds,
		auditor:     auditor,
		logger:      slog.Default(),
		tracer:      otel.Tracer("consent"),
		requestTTL:  defaultRequestTTL,
		grantTTL:    defaultGrantTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateRequestInput carries the requester's petition. TTL bounds how long
// the request stays pending; zero falls back to the configured default.
type CreateRequestInput struct {
	Holder id.Identifier
	Fields []string
	Reason string
	TTL    time.Duration
}

// CreateRequest opens a pending request from requester against in.Holder.
func (s *Service) CreateRequest(ctx context.Context, requester id.Identifier, in CreateRequestInput) (*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, "consent.create_request")
	defer span.End()

	if requester == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}

	ttl := in.TTL
	if ttl == 0 {
		ttl = s.requestTTL
	}
	now := requestcontext.Now(ctx)
	req, err := models.NewRequest(id.NewRequestID(), requester, in.Holder, in.Fields, in.Reason, now, ttl)
	if err != nil {
		return nil, err
	}

	// The holder must be a resolvable identity before we park a request on it.
	if _, err := s.identity.Resolve(ctx, in.Holder); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "holder identifier unknown")
		}
		return nil, err
	}

	if err := s.store.SaveRequest(ctx, req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "saving consent request")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(requester),
		Subject:    string(in.Holder),
		Action:     audit.ActionRequestCreated,
		EntityType: audit.EntityConsentRequest,
		EntityID:   req.ID.String(),
		Decision:   audit.DecisionRecorded,
		Reason:     in.Reason,
		Fields:     req.RequestedFields,
	})
	s.publish(ctx, in.Holder, notify.KindConsentRequested, map[string]string{
		"requestId": req.ID.String(),
		"requester": string(requester),
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}

	return req, nil
}

// Get returns a request and, when approved, its grant. Only the requester or
// the holder may look. A pending request past its deadline is settled as
// expired before it is returned.
func (s *Service) Get(ctx context.Context, caller id.Identifier, requestID id.RequestID) (*models.Request, *models.Grant, error) {
	var (
		req   *models.Request
		grant *models.Grant
	)
	err := s.tx.RunInTx(ctx, requestID.String(), func(st store.Store) error {
		cur, err := s.findRequest(ctx, st, requestID)
		if err != nil {
			return err
		}
		if caller != cur.Requester && caller != cur.Holder {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this request")
		}
		cur = s.settleExpiryLocked(ctx, st, cur)
		req = cur

		if cur.Status != models.StatusApproved {
			return nil
		}
		g, err := st.FindGrantByRequest(ctx, requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return pkgerrors.New(pkgerrors.CodeInternal, "approved request has no grant")
			}
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading grant")
		}
		grant = g
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return req, grant, nil
}

// ListForHolder returns every request addressed to holder, settling lazy
// expiries along the way.
func (s *Service) ListForHolder(ctx context.Context, holder id.Identifier) ([]*models.Request, error) {
	reqs, err := s.store.ListRequestsByHolder(ctx, holder)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing requests")
	}
	return s.settleAll(ctx, reqs), nil
}

// ListForRequester returns every request opened by requester.
func (s *Service) ListForRequester(ctx context.Context, requester id.Identifier) ([]*models.Request, error) {
	reqs, err := s.store.ListRequestsByRequester(ctx, requester)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing requests")
	}
	return s.settleAll(ctx, reqs), nil
}

// ListGrantsForHolder returns every grant a holder has issued.
func (s *Service) ListGrantsForHolder(ctx context.Context, holder id.Identifier) ([]*models.Grant, error) {
	grants, err := s.store.ListGrantsByHolder(ctx, holder)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing grants")
	}
	return grants, nil
}

// Approve settles a pending request as approved: the decider's signature is
// checked, the approved subset is sealed for the requester, a session token
// is minted, and the grant is persisted. The caller is the holder, or a
// delegate with an active delegation covering the approved fields.
func (s *Service) Approve(ctx context.Context, caller id.Identifier, requestID id.RequestID, approvedFields []string, signature []byte) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "consent.approve")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}
	fields := models.NormalizeFields(approvedFields)
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "at least one approved field required")
	}

	req, err := s.findRequest(ctx, s.store, requestID)
	if err != nil {
		return nil, err
	}
	// Cheap precondition before any key resolution or sealing. The
	// authoritative check runs again under the entity lock.
	if req.Status != models.StatusPending || req.IsExpired(requestcontext.Now(ctx)) {
		return nil, pkgerrors.New(pkgerrors.CodeNotPending, "request no longer pending")
	}
	if !models.IsFieldSubset(fields, req.RequestedFields) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidFieldSubset, "approved fields exceed the requested set")
	}

	delegationID, err := s.authorizeDecider(ctx, caller, req, fields)
	if err != nil {
		return nil, err
	}
	if err := s.verifySignature(ctx, caller, models.ApprovalPayload(requestID, fields), signature, "approve", req); err != nil {
		return nil, err
	}

	// Heavy work happens outside the entity lock: resolving keys, reading the
	// vault, sealing the envelope. The lock only guards the state transition.
	requesterKeys, err := s.identity.Resolve(ctx, req.Requester)
	if err != nil {
		return nil, err
	}
	holderKeys, err := s.identity.Resolve(ctx, req.Holder)
	if err != nil {
		return nil, err
	}
	all, err := s.credentials.Fields(ctx, req.Holder)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]string, len(fields))
	for _, f := range fields {
		v, ok := all[f]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, fmt.Sprintf("field not available: %s", f))
		}
		selected[f] = v
	}

	signer := identity.BoundSigner{Provider: s.identity, Identifier: req.Holder}
	env, err := s.codec.Encode(ctx, selected, requesterKeys.Encryption, signer, holderKeys.KeyDigest, s.grantTTL)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	grant := &models.Grant{
		ID:             id.NewGrantID(),
		RequestID:      requestID,
		Requester:      req.Requester,
		Holder:         req.Holder,
		DelegationID:   delegationID,
		ApprovedFields: fields,
		Envelope:       env,
		Status:         models.StatusApproved,
		CreatedAt:      now,
		ExpiresAt:      env.ExpiresAt,
	}

	// The token is minted inside the entity lock, after the pending check, so
	// a losing duplicate approve can never replace the winner's session.
	minted := false
	err = s.tx.RunInTx(ctx, requestID.String(), func(st store.Store) error {
		cur, err := s.findRequest(ctx, st, requestID)
		if err != nil {
			return err
		}
		cur = s.settleExpiryLocked(ctx, st, cur)
		if cur.Status != models.StatusPending {
			return pkgerrors.New(pkgerrors.CodeNotPending, "request no longer pending")
		}
		token, err := s.sessions.Issue(ctx, requestID, req.Holder)
		if err != nil {
			return err
		}
		minted = true
		grant.SessionToken = token
		if err := st.SaveGrant(ctx, grant); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "saving grant")
		}
		cur.Status = models.StatusApproved
		cur.DecidedAt = &now
		if err := st.UpdateRequest(ctx, cur); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "settling request")
		}
		return nil
	})
	if err != nil {
		if minted {
			// Only a token minted by this call is cleaned up.
			s.sessions.Invalidate(requestID)
		}
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(caller),
		Subject:    string(req.Holder),
		Action:     audit.ActionRequestApproved,
		EntityType: audit.EntityConsentRequest,
		EntityID:   requestID.String(),
		Decision:   audit.DecisionApproved,
		Fields:     fields,
	})
	s.publish(ctx, req.Requester, notify.KindConsentApproved, map[string]string{
		"requestId": requestID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsDecided("approved")
		s.metrics.IncrementEnvelopesSealed()
		s.metrics.IncrementActiveGrants(1)
	}

	return grant, nil
}

// Deny settles a pending request as denied. The optional reason is recorded
// on the ledger but never shown to the requester.
func (s *Service) Deny(ctx context.Context, caller id.Identifier, requestID id.RequestID, reason string, signature []byte) (*models.Request, error) {
	ctx, span := s.tracer.Start(ctx, "consent.deny")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}

	req, err := s.findRequest(ctx, s.store, requestID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorizeDecider(ctx, caller, req, req.RequestedFields); err != nil {
		return nil, err
	}
	if err := s.verifySignature(ctx, caller, models.DenialPayload(requestID), signature, "deny", req); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var denied *models.Request
	err = s.tx.RunInTx(ctx, requestID.String(), func(st store.Store) error {
		cur, err := s.findRequest(ctx, st, requestID)
		if err != nil {
			return err
		}
		cur = s.settleExpiryLocked(ctx, st, cur)
		if cur.Status != models.StatusPending {
			return pkgerrors.New(pkgerrors.CodeNotPending, "request no longer pending")
		}
		cur.Status = models.StatusDenied
		cur.DecidedAt = &now
		if err := st.UpdateRequest(ctx, cur); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "settling request")
		}
		denied = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(caller),
		Subject:    string(req.Holder),
		Action:     audit.ActionRequestDenied,
		EntityType: audit.EntityConsentRequest,
		EntityID:   requestID.String(),
		Decision:   audit.DecisionDenied,
		Reason:     reason,
	})
	s.publish(ctx, req.Requester, notify.KindConsentDenied, map[string]string{
		"requestId": requestID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsDecided("denied")
	}

	return denied, nil
}

// RevokeGrant withdraws an active grant. Revoking an already revoked grant is
// an idempotent no-op.
func (s *Service) RevokeGrant(ctx context.Context, caller id.Identifier, grantID id.GrantID, signature []byte) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "consent.revoke_grant")
	defer span.End()

	if caller == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller context")
	}

	grant, err := s.findGrant(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if caller != grant.Holder {
		if s.delegations == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the holder may revoke")
		}
		if _, err := s.delegations.Authorize(ctx, caller, grant.Holder, grant.ApprovedFields); err != nil {
			return nil, err
		}
	}
	if err := s.verifySignature(ctx, caller, models.GrantRevocationPayload(grantID), signature, "revoke", nil); err != nil {
		return nil, err
	}

	return s.revokeGrantLocked(ctx, caller, grantID, "holder_initiated")
}

// RevokeByDelegation withdraws every grant approved under a delegation. It is
// the cascade step of delegation revocation and needs no signature of its
// own; the delegation revocation already carries one.
func (s *Service) RevokeByDelegation(ctx context.Context, actor id.Identifier, delegationID id.DelegationID) (int, error) {
	grants, err := s.store.ListGrantsByDelegation(ctx, delegationID)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "listing delegation grants")
	}

	revoked := 0
	for _, grant := range grants {
		if grant.RevokedAt != nil {
			continue
		}
		if _, err := s.revokeGrantLocked(ctx, actor, grant.ID, "delegation_revoked"); err != nil {
			return revoked, err
		}
		revoked++
	}
	return revoked, nil
}

// Envelope hands the sealed card to a requester presenting a valid session
// token for the request.
func (s *Service) Envelope(ctx context.Context, requestID id.RequestID, token string) (*models.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "consent.envelope")
	defer span.End()

	if err := s.sessions.Verify(ctx, requestID, token); err != nil {
		return nil, err
	}

	grant, err := s.store.FindGrantByRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no grant for request")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading grant")
	}

	now := requestcontext.Now(ctx)
	if grant.RevokedAt != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotActive, "grant revoked")
	}
	if !grant.ExpiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeExpired, "grant expired")
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(grant.Requester),
		Subject:    string(grant.Holder),
		Action:     audit.ActionEnvelopeDelivered,
		EntityType: audit.EntityConsentGrant,
		EntityID:   grant.ID.String(),
		Decision:   audit.DecisionRecorded,
		Fields:     grant.ApprovedFields,
	})
	if s.metrics != nil {
		s.metrics.IncrementEnvelopesDelivered()
	}
	return grant, nil
}

func (s *Service) revokeGrantLocked(ctx context.Context, actor id.Identifier, grantID id.GrantID, reason string) (*models.Grant, error) {
	now := requestcontext.Now(ctx)
	var (
		revoked    *models.Grant
		alreadyWas bool
	)
	err := s.tx.RunInTx(ctx, grantID.String(), func(st store.Store) error {
		cur, err := s.findGrant(ctx, grantID)
		if err != nil {
			return err
		}
		if cur.RevokedAt != nil {
			revoked = cur
			alreadyWas = true
			return nil
		}
		cur.Status = models.StatusRevoked
		cur.RevokedAt = &now
		cur.SessionToken = ""
		if err := st.UpdateGrant(ctx, cur); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "revoking grant")
		}
		revoked = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyWas {
		return revoked, nil
	}

	s.sessions.Invalidate(revoked.RequestID)

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      string(actor),
		Subject:    string(revoked.Holder),
		Action:     audit.ActionGrantRevoked,
		EntityType: audit.EntityConsentGrant,
		EntityID:   grantID.String(),
		Decision:   audit.DecisionRevoked,
		Reason:     reason,
	})
	s.publish(ctx, revoked.Requester, notify.KindGrantRevoked, map[string]string{
		"requestId": revoked.RequestID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementGrantsRevoked()
		s.metrics.DecrementActiveGrants(1)
	}
	return revoked, nil
}

// authorizeDecider ensures the caller may decide on this request.
func (s *Service) authorizeDecider(ctx context.Context, caller id.Identifier, req *models.Request, fields []string) (*id.DelegationID, error) {
	if caller == req.Holder {
		return nil, nil
	}
	if s.delegations == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the holder may decide")
	}
	did, err := s.delegations.Authorize(ctx, caller, req.Holder, fields)
	if err != nil {
		return nil, err
	}
	return &did, nil
}

func (s *Service) verifySignature(ctx context.Context, signerID id.Identifier, payload, signature []byte, operation string, req *models.Request) error {
	ok, err := s.identity.Verify(ctx, signerID, payload, signature)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	ev := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		Actor:     string(signerID),
		Action:    audit.ActionSignatureRejected,
		Decision:  audit.DecisionRejected,
		Reason:    operation,
		Security:  true,
	}
	if req != nil {
		ev.Subject = string(req.Holder)
		ev.EntityType = audit.EntityConsentRequest
		ev.EntityID = req.ID.String()
	}
	s.emitAudit(ctx, ev)
	if s.metrics != nil {
		s.metrics.IncrementSignatureRejected(operation)
	}
	return pkgerrors.New(pkgerrors.CodeSignatureInvalid, "decision signature rejected")
}

// settleExpiryLocked settles a pending request past its deadline as expired.
// Callers must hold the entity lock for the request.
func (s *Service) settleExpiryLocked(ctx context.Context, st store.Store, req *models.Request) *models.Request {
	now := requestcontext.Now(ctx)
	if !req.IsExpired(now) {
		return req
	}

	req.Status = models.StatusExpired
	req.DecidedAt = &now
	if err := st.UpdateRequest(ctx, req); err != nil {
		s.logger.ErrorContext(ctx, "failed to settle expired request",
			"request_id", req.ID.String(),
			"error", err,
		)
		return req
	}

	s.emitAudit(ctx, audit.Event{
		Timestamp:  now,
		Actor:      "system",
		Subject:    string(req.Holder),
		Action:     audit.ActionRequestExpired,
		EntityType: audit.EntityConsentRequest,
		EntityID:   req.ID.String(),
		Decision:   audit.DecisionExpired,
	})
	s.publish(ctx, req.Requester, notify.KindConsentExpired, map[string]string{
		"requestId": req.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementRequestsExpired()
		s.metrics.IncrementRequestsDecided("expired")
	}
	return req
}

func (s *Service) settleAll(ctx context.Context, reqs []*models.Request) []*models.Request {
	now := requestcontext.Now(ctx)
	out := make([]*models.Request, 0, len(reqs))
	for _, req := range reqs {
		if !req.IsExpired(now) {
			out = append(out, req)
			continue
		}
		settled := req
		_ = s.tx.RunInTx(ctx, req.ID.String(), func(st store.Store) error {
			cur, err := s.findRequest(ctx, st, req.ID)
			if err != nil {
				return err
			}
			settled = s.settleExpiryLocked(ctx, st, cur)
			return nil
		})
		out = append(out, settled)
	}
	return out
}

type requestReader interface {
	FindRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
}

func (s *Service) findRequest(ctx context.Context, st requestReader, requestID id.RequestID) (*models.Request, error) {
	req, err := st.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "consent request not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading consent request")
	}
	return req, nil
}

func (s *Service) findGrant(ctx context.Context, grantID id.GrantID) (*models.Grant, error) {
	grant, err := s.store.FindGrant(ctx, grantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "grant not found")
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "reading grant")
	}
	return grant, nil
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
