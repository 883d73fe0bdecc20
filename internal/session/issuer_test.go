package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

func TestIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewIssuer()
	ctx := context.Background()
	reqID := id.NewRequestID()

	token, err := issuer.Issue(ctx, reqID, "did:key:holder")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	assert.NoError(t, issuer.Verify(ctx, reqID, token))
}

func TestIssuer_WrongTokenRejected(t *testing.T) {
	issuer := NewIssuer()
	ctx := context.Background()
	reqID := id.NewRequestID()

	_, err := issuer.Issue(ctx, reqID, "did:key:holder")
	require.NoError(t, err)

	err = issuer.Verify(ctx, reqID, "not-the-token")
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func TestIssuer_TokenBoundToRequest(t *testing.T) {
	issuer := NewIssuer()
	ctx := context.Background()

	first := id.NewRequestID()
	second := id.NewRequestID()

	tokenA, err := issuer.Issue(ctx, first, "did:key:holder")
	require.NoError(t, err)
	_, err = issuer.Issue(ctx, second, "did:key:holder")
	require.NoError(t, err)

	err = issuer.Verify(ctx, second, tokenA)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func TestIssuer_ReissueReplacesToken(t *testing.T) {
	issuer := NewIssuer()
	ctx := context.Background()
	reqID := id.NewRequestID()

	old, err := issuer.Issue(ctx, reqID, "did:key:holder")
	require.NoError(t, err)
	fresh, err := issuer.Issue(ctx, reqID, "did:key:holder")
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	assert.NoError(t, issuer.Verify(ctx, reqID, fresh))
	err = issuer.Verify(ctx, reqID, old)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func TestIssuer_Expiry(t *testing.T) {
	issuer := NewIssuer(WithTokenTTL(10 * time.Minute))
	reqID := id.NewRequestID()

	issuedAt := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	token, err := issuer.Issue(requestcontext.WithTime(context.Background(), issuedAt), reqID, "did:key:holder")
	require.NoError(t, err)

	still := requestcontext.WithTime(context.Background(), issuedAt.Add(9*time.Minute))
	assert.NoError(t, issuer.Verify(still, reqID, token))

	late := requestcontext.WithTime(context.Background(), issuedAt.Add(11*time.Minute))
	err = issuer.Verify(late, reqID, token)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeExpired))

	// The expired session is gone; later checks see no session at all.
	err = issuer.Verify(still, reqID, token)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))
}

func TestIssuer_Invalidate(t *testing.T) {
	issuer := NewIssuer()
	ctx := context.Background()
	reqID := id.NewRequestID()

	token, err := issuer.Issue(ctx, reqID, "did:key:holder")
	require.NoError(t, err)

	issuer.Invalidate(reqID)
	err = issuer.Verify(ctx, reqID, token)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUnauthorized))

	issuer.Invalidate(reqID)
}
