package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travlr/internal/consent/models"
	id "travlr/pkg/domain"
)

func newTestRequest(t *testing.T, requester, holder id.Identifier) *models.Request {
	t.Helper()
	req, err := models.NewRequest(id.NewRequestID(), requester, holder, []string{"email", "name"}, "booking", time.Now(), time.Hour)
	require.NoError(t, err)
	return req
}

func TestInMemoryStore_RequestRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	req := newTestRequest(t, "did:key:req", "did:key:hold")
	require.NoError(t, s.SaveRequest(ctx, req))

	got, err := s.FindRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, models.StatusPending, got.Status)

	// Mutating the returned copy must not touch stored state.
	got.Status = models.StatusDenied
	got.RequestedFields[0] = "mutated"

	again, err := s.FindRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Equal(t, []string{"email", "name"}, again.RequestedFields)
}

func TestInMemoryStore_FindRequestNotFound(t *testing.T) {
	s := New()
	_, err := s.FindRequest(context.Background(), id.NewRequestID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_UpdateRequestMissing(t *testing.T) {
	s := New()
	req := newTestRequest(t, "did:key:req", "did:key:hold")
	assert.ErrorIs(t, s.UpdateRequest(context.Background(), req), ErrNotFound)
}

func TestInMemoryStore_ListRequestsByHolderOrdersByCreation(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		req, err := models.NewRequest(id.NewRequestID(), "did:key:req", "did:key:hold", []string{"email"}, "", base.Add(time.Duration(2-i)*time.Minute), time.Hour)
		require.NoError(t, err)
		require.NoError(t, s.SaveRequest(ctx, req))
	}
	other := newTestRequest(t, "did:key:req", "did:key:other")
	require.NoError(t, s.SaveRequest(ctx, other))

	got, err := s.ListRequestsByHolder(ctx, "did:key:hold")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].CreatedAt.Before(got[1].CreatedAt))
	assert.True(t, got[1].CreatedAt.Before(got[2].CreatedAt))
}

func TestInMemoryStore_GrantByRequestIndex(t *testing.T) {
	s := New()
	ctx := context.Background()

	req := newTestRequest(t, "did:key:req", "did:key:hold")
	grant := &models.Grant{
		ID:             id.NewGrantID(),
		RequestID:      req.ID,
		Requester:      req.Requester,
		Holder:         req.Holder,
		ApprovedFields: []string{"email"},
		Status:         models.StatusApproved,
		CreatedAt:      time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	require.NoError(t, s.SaveGrant(ctx, grant))

	byID, err := s.FindGrant(ctx, grant.ID)
	require.NoError(t, err)
	assert.Equal(t, grant.RequestID, byID.RequestID)

	byReq, err := s.FindGrantByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, byReq.ID)

	_, err = s.FindGrantByRequest(ctx, id.NewRequestID())
	assert.ErrorIs(t, err, ErrNotFound)
}
