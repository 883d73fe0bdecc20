package rotation

import (
	"context"
	"crypto/ed25519"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"travlr/internal/audit"
	"travlr/internal/identity"
	"travlr/internal/notify"
	"travlr/internal/session"
	id "travlr/pkg/domain"
	pkgerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	Recipient id.Identifier
	Kind      string
	Data      map[string]string
}

func (n *recordingNotifier) Publish(_ context.Context, recipient id.Identifier, kind string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{Recipient: recipient, Kind: kind, Data: data})
}

func (n *recordingNotifier) recipients() []id.Identifier {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]id.Identifier, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Recipient)
	}
	return out
}

type staticCounterparties struct {
	others []id.Identifier
}

func (s *staticCounterparties) Counterparties(context.Context, id.Identifier) ([]id.Identifier, error) {
	return s.others, nil
}

type staticDelegations struct {
	id        id.DelegationID
	delegator id.Identifier
	delegate  id.Identifier
}

func (s *staticDelegations) Parties(_ context.Context, delegationID id.DelegationID) (id.Identifier, id.Identifier, error) {
	if delegationID != s.id {
		return "", "", pkgerrors.New(pkgerrors.CodeNotFound, "delegation not found")
	}
	return s.delegator, s.delegate, nil
}

type CoordinatorSuite struct {
	suite.Suite
	provider    *identity.InMemoryProvider
	store       *InMemoryStore
	sessions    *session.Issuer
	notifier    *recordingNotifier
	coordinator *Coordinator

	holder id.Identifier
}

func (s *CoordinatorSuite) SetupTest() {
	ctx := context.Background()
	s.provider = identity.NewInMemoryProvider()
	s.store = NewInMemoryStore()
	s.sessions = session.NewIssuer()
	s.notifier = &recordingNotifier{}

	var err error
	s.holder, err = s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor := audit.NewPublisher(audit.NewInMemoryStore(), audit.WithPublisherLogger(logger))

	s.coordinator = NewCoordinator(s.provider, s.store, auditor,
		WithLogger(logger),
		WithNotifier(s.notifier),
		WithSessionInvalidator(s.sessions),
	)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) rotate(reason string) *Event {
	ev, err := s.coordinator.Rotate(context.Background(), s.holder, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      reason,
	})
	s.Require().NoError(err)
	return ev
}

func (s *CoordinatorSuite) TestRotateBuildsContinuityChain() {
	ctx := context.Background()

	firstKeys, err := s.provider.Resolve(ctx, s.holder)
	s.Require().NoError(err)

	first := s.rotate(ReasonScheduled)
	s.Equal(uint64(1), first.Sequence)
	s.Equal(firstKeys.KeyDigest, first.OldKeyDigest)
	s.NotEqual(first.OldKeyDigest, first.NewKeyDigest)

	secondKeys, err := s.provider.Resolve(ctx, s.holder)
	s.Require().NoError(err)
	s.Equal(first.NewKeyDigest, secondKeys.KeyDigest)

	second := s.rotate(ReasonUserRequested)
	s.Equal(uint64(2), second.Sequence)
	s.Equal(first.NewKeyDigest, second.OldKeyDigest)

	// Each continuity statement must verify against the key it retired.
	s.True(ed25519.Verify(firstKeys.Signing, ContinuityPayload(s.holder, 1), first.Continuity))
	s.True(ed25519.Verify(secondKeys.Signing, ContinuityPayload(s.holder, 2), second.Continuity))
	s.False(ed25519.Verify(secondKeys.Signing, ContinuityPayload(s.holder, 1), first.Continuity))

	history, err := s.coordinator.History(ctx, s.holder)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(uint64(1), history[0].Sequence)
	s.Equal(uint64(2), history[1].Sequence)
}

func (s *CoordinatorSuite) TestRotateRejectsConcurrentAttempt() {
	s.Require().True(s.coordinator.tryAcquire(s.holder))
	defer s.coordinator.release(s.holder)

	_, err := s.coordinator.Rotate(context.Background(), s.holder, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      ReasonUserRequested,
	})
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeRotationConflict))

	// The lock holder finishing frees the identity again.
	s.coordinator.release(s.holder)
	s.Require().True(s.coordinator.tryAcquire(s.holder))
}

func (s *CoordinatorSuite) TestRotateRejectsUnknownReason() {
	_, err := s.coordinator.Rotate(context.Background(), s.holder, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      "because",
	})
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func (s *CoordinatorSuite) TestRotateRequiresSelf() {
	other, err := s.provider.CreateIdentifier(context.Background())
	s.Require().NoError(err)

	_, err = s.coordinator.Rotate(context.Background(), other, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      ReasonUserRequested,
	})
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func (s *CoordinatorSuite) TestEmergencyRotationDropsSessions() {
	ctx := context.Background()

	requestID := id.NewRequestID()
	token, err := s.sessions.Issue(ctx, requestID, s.holder)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Verify(ctx, requestID, token))

	s.rotate(ReasonEmergency)

	err = s.sessions.Verify(ctx, requestID, token)
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))
}

func (s *CoordinatorSuite) TestScheduledRotationKeepsSessions() {
	ctx := context.Background()

	requestID := id.NewRequestID()
	token, err := s.sessions.Issue(ctx, requestID, s.holder)
	s.Require().NoError(err)

	s.rotate(ReasonScheduled)

	s.Require().NoError(s.sessions.Verify(ctx, requestID, token))
}

func (s *CoordinatorSuite) TestRotateByDelegationTargetsDelegate() {
	ctx := context.Background()

	delegate, err := s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)
	delegationID := id.NewDelegationID()
	s.coordinator.delegations = &staticDelegations{
		id:        delegationID,
		delegator: s.holder,
		delegate:  delegate,
	}

	ev, err := s.coordinator.Rotate(ctx, s.holder, RotateInput{
		IdentityRef: delegationID.String(),
		Reason:      ReasonUserRequested,
	})
	s.Require().NoError(err)
	s.Equal(delegate, ev.Identifier)
	s.Require().NotNil(ev.DelegationID)
	s.Equal(delegationID, *ev.DelegationID)

	stranger, err := s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)
	_, err = s.coordinator.Rotate(ctx, stranger, RotateInput{
		IdentityRef: delegationID.String(),
		Reason:      ReasonUserRequested,
	})
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func (s *CoordinatorSuite) TestRotateFansOutToCounterparties() {
	ctx := context.Background()

	a, err := s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)
	b, err := s.provider.CreateIdentifier(ctx)
	s.Require().NoError(err)
	s.coordinator.counterparties = &staticCounterparties{others: []id.Identifier{a, b}}

	s.rotate(ReasonScheduled)

	recipients := s.notifier.recipients()
	s.Require().Len(recipients, 3)
	s.Equal([]id.Identifier{s.holder, a, b}, recipients)
	for _, ev := range s.notifier.events {
		s.Equal(notify.KindKeysRotated, ev.Kind)
		s.Equal(string(s.holder), ev.Data["identifier"])
	}
}

func (s *CoordinatorSuite) TestAdviceTracksKeyAge() {
	ctx := context.Background()
	s.coordinator.maxKeyAge = time.Hour
	s.coordinator.identityMaxAge = time.Hour

	advice, err := s.coordinator.ShouldRotate(ctx, s.holder)
	s.Require().NoError(err)
	s.False(advice.ShouldRotate)

	later := requestcontext.WithTime(ctx, time.Now().Add(2*time.Hour))
	advice, err = s.coordinator.ShouldRotate(later, s.holder)
	s.Require().NoError(err)
	s.True(advice.ShouldRotate)
	s.NotEmpty(advice.Reason)

	// Rotating resets the clock.
	_, err = s.coordinator.Rotate(later, s.holder, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      ReasonScheduled,
	})
	s.Require().NoError(err)

	shortlyAfter := requestcontext.WithTime(ctx, time.Now().Add(2*time.Hour+time.Minute))
	advice, err = s.coordinator.ShouldRotate(shortlyAfter, s.holder)
	s.Require().NoError(err)
	s.False(advice.ShouldRotate)
}

func (s *CoordinatorSuite) TestAdviceNeverRotatedThreshold() {
	ctx := context.Background()
	s.coordinator.maxKeyAge = 24 * time.Hour
	s.coordinator.identityMaxAge = time.Hour

	// Past the first-rotation threshold but well under the recurring one.
	later := requestcontext.WithTime(ctx, time.Now().Add(2*time.Hour))
	advice, err := s.coordinator.ShouldRotate(later, s.holder)
	s.Require().NoError(err)
	s.True(advice.ShouldRotate)
	s.Equal("identity has never rotated", advice.Reason)

	_, err = s.coordinator.Rotate(ctx, s.holder, RotateInput{
		IdentityRef: string(s.holder),
		Reason:      ReasonScheduled,
	})
	s.Require().NoError(err)

	advice, err = s.coordinator.ShouldRotate(later, s.holder)
	s.Require().NoError(err)
	s.False(advice.ShouldRotate)
}

func (s *CoordinatorSuite) TestRotateUnknownIdentity() {
	ghost := id.Identifier("did:key:nobody")
	_, err := s.coordinator.Rotate(context.Background(), ghost, RotateInput{
		IdentityRef: string(ghost),
		Reason:      ReasonUserRequested,
	})
	s.Require().Error(err)
	s.True(pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestStoreRejectsSequenceGaps(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	holder := id.Identifier("did:key:someone")

	ev := func(seq uint64) *Event {
		return &Event{
			ID:         id.NewRotationID(),
			Identifier: holder,
			Sequence:   seq,
			Reason:     ReasonScheduled,
			CreatedAt:  time.Now(),
		}
	}

	if err := store.Append(ctx, ev(2)); err == nil {
		t.Fatal("expected first rotation with sequence 2 to be rejected")
	}
	if err := store.Append(ctx, ev(1)); err != nil {
		t.Fatalf("append sequence 1: %v", err)
	}
	if err := store.Append(ctx, ev(1)); err == nil {
		t.Fatal("expected duplicate sequence to be rejected")
	}
	if err := store.Append(ctx, ev(3)); err == nil {
		t.Fatal("expected sequence gap to be rejected")
	}
	if err := store.Append(ctx, ev(2)); err != nil {
		t.Fatalf("append sequence 2: %v", err)
	}

	last, err := store.Last(ctx, holder)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last.Sequence != 2 {
		t.Fatalf("last sequence = %d, want 2", last.Sequence)
	}

	if _, err := store.Last(ctx, id.Identifier("did:key:fresh")); err != ErrNoRotations {
		t.Fatalf("expected ErrNoRotations, got %v", err)
	}
}
