package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"travlr/internal/audit"
	"travlr/internal/delegation/models"
	"travlr/internal/delegation/store"
	"travlr/internal/identity"
	id "travlr/pkg/domain"
	pkgerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	provider   *identity.InMemoryProvider
	auditStore *audit.InMemoryStore
	service    *Service

	delegator id.Identifier
	delegate  id.Identifier
}

func (s *ServiceSuite) SetupTest() {
	ctx := context.Background()
	s.provider = identity.NewInMemoryProvider()
	s.auditStore = audit.NewInMemoryStore()

	var err error
	s.delegator, err = s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)
	s.delegate, err = s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.NewPublisher(s.auditStore, audit.WithPublisherLogger(logger))

	s.service = NewService(store.New(), s.provider, auditor, WithLogger(logger))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) sign(signer id.Identifier, payload []byte) []byte {
	sig, err := s.provider.Sign(context.Background(), signer, payload)
	s.Require().NoError(err)
	return sig
}

func (s *ServiceSuite) open(ctx context.Context, fields []string, ttl time.Duration) *models.Delegation {
	d, err := s.service.Create(ctx, s.delegator, CreateInput{
		Delegate:  s.delegate,
		Fields:    fields,
		Reason:    "travel agent",
		TTL:       ttl,
		Signature: s.sign(s.delegator, models.CreationPayload(s.delegator, s.delegate, fields)),
	})
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestCreateIsImmediatelyActive() {
	ctx := context.Background()
	d := s.open(ctx, []string{"email", "name"}, 0)

	s.Equal(models.StatusActive, d.Status)
	s.True(d.IsActive(time.Now()))
	s.Nil(d.ExpiresAt)

	events, err := s.auditStore.ListBySubject(ctx, string(s.delegator))
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionDelegationCreated, events[0].Action)
}

func (s *ServiceSuite) TestCreateRejectsSelfDelegation() {
	_, err := s.service.Create(context.Background(), s.delegator, CreateInput{
		Delegate:  s.delegator,
		Fields:    []string{"email"},
		Signature: []byte("irrelevant"),
	})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func (s *ServiceSuite) TestCreateRejectsBadSignature() {
	_, err := s.service.Create(context.Background(), s.delegator, CreateInput{
		Delegate:  s.delegate,
		Fields:    []string{"email"},
		Signature: s.sign(s.delegate, models.CreationPayload(s.delegator, s.delegate, []string{"email"})),
	})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeSignatureInvalid))
}

func (s *ServiceSuite) TestAuthorize() {
	ctx := context.Background()
	d := s.open(ctx, []string{"email", "name"}, 0)

	got, err := s.service.Authorize(ctx, s.delegate, s.delegator, []string{"email"})
	s.Require().NoError(err)
	s.Equal(d.ID, got)

	_, err = s.service.Authorize(ctx, s.delegate, s.delegator, []string{"email", "phone"})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "uncovered field must not authorize")

	_, err = s.service.Authorize(ctx, s.delegator, s.delegate, []string{"email"})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden), "direction matters")
}

func (s *ServiceSuite) TestAuthorizeExpired() {
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), start)
	s.open(ctx, []string{"email"}, time.Hour)

	within := requestcontext.WithTime(context.Background(), start.Add(30*time.Minute))
	_, err := s.service.Authorize(within, s.delegate, s.delegator, []string{"email"})
	s.NoError(err)

	after := requestcontext.WithTime(context.Background(), start.Add(2*time.Hour))
	_, err = s.service.Authorize(after, s.delegate, s.delegator, []string{"email"})
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func (s *ServiceSuite) TestCheckPermissionNeverErrors() {
	ctx := context.Background()
	d := s.open(ctx, []string{"email"}, 0)

	s.True(s.service.CheckPermission(ctx, d.ID, []string{"email"}))
	s.False(s.service.CheckPermission(ctx, d.ID, []string{"phone"}))
	s.False(s.service.CheckPermission(ctx, id.NewDelegationID(), []string{"email"}))

	sig := s.sign(s.delegator, models.RevocationPayload(d.ID))
	_, err := s.service.Revoke(ctx, s.delegator, d.ID, sig)
	s.Require().NoError(err)
	s.False(s.service.CheckPermission(ctx, d.ID, []string{"email"}))
}

func (s *ServiceSuite) TestRevokeCascadesOnce() {
	ctx := context.Background()
	d := s.open(ctx, []string{"email"}, 0)

	var calls int
	s.service.RegisterRevokeHook(func(ctx context.Context, actor id.Identifier, delegationID id.DelegationID) (int, error) {
		calls++
		s.Equal(d.ID, delegationID)
		s.Equal(s.delegator, actor)
		return 2, nil
	})

	sig := s.sign(s.delegator, models.RevocationPayload(d.ID))
	revoked, err := s.service.Revoke(ctx, s.delegator, d.ID, sig)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, revoked.Status)
	s.Require().NotNil(revoked.RevokedAt)
	s.Equal(1, calls)

	// Idempotent: a second revocation neither errors nor cascades again.
	again, err := s.service.Revoke(ctx, s.delegator, d.ID, sig)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, again.Status)
	s.Equal(1, calls)
}

func (s *ServiceSuite) TestOnlyDelegatorRevokes() {
	ctx := context.Background()
	d := s.open(ctx, []string{"email"}, 0)

	sig := s.sign(s.delegate, models.RevocationPayload(d.ID))
	_, err := s.service.Revoke(ctx, s.delegate, d.ID, sig)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func (s *ServiceSuite) TestListings() {
	ctx := context.Background()
	s.open(ctx, []string{"email"}, 0)
	s.open(ctx, []string{"name"}, 0)

	byDelegator, err := s.service.ListForDelegator(ctx, s.delegator)
	s.Require().NoError(err)
	s.Len(byDelegator, 2)

	byDelegate, err := s.service.ListForDelegate(ctx, s.delegate)
	s.Require().NoError(err)
	s.Len(byDelegate, 2)

	none, err := s.service.ListForDelegate(ctx, s.delegator)
	s.Require().NoError(err)
	s.Empty(none)
}
