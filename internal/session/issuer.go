// Package session issues and verifies the short-lived bearer tokens handed to
// a requester when consent is approved. Tokens are opaque random strings; the
// issuer stores only a digest, so a leaked store never yields usable tokens.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"

	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

const tokenBytes = 32

// Session binds a token digest to the consent request it was minted for.
type Session struct {
	Digest    [sha256.Size]byte
	RequestID id.RequestID
	Holder    id.Identifier
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints and verifies session tokens in memory.
type Issuer struct {
	mu       sync.RWMutex
	byReq    map[id.RequestID]*Session
	tokenTTL time.Duration
}

type Option func(*Issuer)

// WithTokenTTL overrides the default one hour token lifetime.
func WithTokenTTL(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.tokenTTL = d
		}
	}
}

func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{
		byReq:    make(map[id.RequestID]*Session),
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue mints a fresh token for an approved request. Reissuing for the same
// request replaces the previous token.
func (i *Issuer) Issue(ctx context.Context, requestID id.RequestID, holder id.Identifier) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generating session token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := requestcontext.Now(ctx)
	i.mu.Lock()
	i.byReq[requestID] = &Session{
		Digest:    sha256.Sum256([]byte(token)),
		RequestID: requestID,
		Holder:    holder,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.tokenTTL),
	}
	i.mu.Unlock()

	return token, nil
}

// Verify checks a presented token against the session minted for requestID.
// Comparison over digests is constant time. Expired sessions are dropped on
// the spot.
func (i *Issuer) Verify(ctx context.Context, requestID id.RequestID, token string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	sess, ok := i.byReq[requestID]
	if !ok {
		return domainerrors.New(domainerrors.CodeUnauthorized, "no session for request")
	}
	if !sess.ExpiresAt.After(requestcontext.Now(ctx)) {
		delete(i.byReq, requestID)
		return domainerrors.New(domainerrors.CodeExpired, "session token expired")
	}

	presented := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(presented[:], sess.Digest[:]) != 1 {
		return domainerrors.New(domainerrors.CodeUnauthorized, "session token rejected")
	}
	return nil
}

// Invalidate drops the session for a request, typically on grant revocation.
// Unknown requests are a no-op.
func (i *Issuer) Invalidate(requestID id.RequestID) {
	i.mu.Lock()
	delete(i.byReq, requestID)
	i.mu.Unlock()
}

// InvalidateHolder drops every session minted for a holder's requests. It
// backs emergency key rotation, where tokens sealed under the retired key
// must die with it. Returns the number of sessions dropped.
func (i *Issuer) InvalidateHolder(holder id.Identifier) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	dropped := 0
	for reqID, sess := range i.byReq {
		if sess.Holder == holder {
			delete(i.byReq, reqID)
			dropped++
		}
	}
	return dropped
}
