package contextcard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travlr/internal/identity"
	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

type codecFixture struct {
	codec       *Codec
	provider    *identity.InMemoryProvider
	signer      identity.BoundSigner
	requesterID id.Identifier
	requester   []byte
}

func newCodecFixture(t *testing.T) *codecFixture {
	t.Helper()
	ctx := context.Background()

	codec, err := NewCodec()
	require.NoError(t, err)

	provider := identity.NewInMemoryProvider()
	holderID, err := provider.CreateIdentifier(ctx)
	require.NoError(t, err)
	requesterID, err := provider.CreateIdentifier(ctx)
	require.NoError(t, err)

	requesterKeys, err := provider.Resolve(ctx, requesterID)
	require.NoError(t, err)

	return &codecFixture{
		codec:       codec,
		provider:    provider,
		signer:      identity.BoundSigner{Provider: provider, Identifier: holderID},
		requesterID: requesterID,
		requester:   requesterKeys.Encryption,
	}
}

func (f *codecFixture) holderSigningKey(t *testing.T) []byte {
	t.Helper()
	keys, err := f.provider.Resolve(context.Background(), f.signer.Identifier)
	require.NoError(t, err)
	return keys.Signing
}

func TestCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newCodecFixture(t)

	fields := map[string]string{"name": "Ada", "email": "ada@example.org"}
	env, err := f.codec.Encode(ctx, fields, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Len(t, env.EphemeralPublicKey, 32)
	assert.Equal(t, "digest", env.HolderKeyDigest)
	assert.Equal(t, []string{"email", "name"}, env.FieldsIncluded, "field names ride in the clear, sorted")

	recipientPriv, err := f.provider.EncryptionPrivateKey(f.requesterID)
	require.NoError(t, err)

	got, err := f.codec.Decode(ctx, env, recipientPriv, f.holderSigningKey(t))
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}

func TestCodec_FreshEphemeralPerEnvelope(t *testing.T) {
	ctx := context.Background()
	f := newCodecFixture(t)

	fields := map[string]string{"name": "Ada"}
	a, err := f.codec.Encode(ctx, fields, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)
	b, err := f.codec.Encode(ctx, fields, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a.EphemeralPublicKey, b.EphemeralPublicKey)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestCodec_TamperedCiphertextRejectedBeforeDecryption(t *testing.T) {
	ctx := context.Background()
	f := newCodecFixture(t)

	env, err := f.codec.Encode(ctx, map[string]string{"name": "Ada"}, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)
	env.Ciphertext[0] ^= 0xff

	recipientPriv, err := f.provider.EncryptionPrivateKey(f.requesterID)
	require.NoError(t, err)

	_, err = f.codec.Decode(ctx, env, recipientPriv, f.holderSigningKey(t))
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeSignatureInvalid))
}

func TestCodec_WrongRecipientCannotOpen(t *testing.T) {
	ctx := context.Background()
	f := newCodecFixture(t)

	env, err := f.codec.Encode(ctx, map[string]string{"name": "Ada"}, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)

	intruderID, err := f.provider.CreateIdentifier(ctx)
	require.NoError(t, err)
	intruderPriv, err := f.provider.EncryptionPrivateKey(intruderID)
	require.NoError(t, err)

	_, err = f.codec.Decode(ctx, env, intruderPriv, f.holderSigningKey(t))
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeDecryptionFailed))
}

func TestCodec_ExpiredEnvelope(t *testing.T) {
	f := newCodecFixture(t)

	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	encodeCtx := requestcontext.WithTime(context.Background(), issued)
	env, err := f.codec.Encode(encodeCtx, map[string]string{"name": "Ada"}, f.requester, f.signer, "digest", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, issued.Add(time.Hour), env.ExpiresAt)

	recipientPriv, err := f.provider.EncryptionPrivateKey(f.requesterID)
	require.NoError(t, err)

	decodeCtx := requestcontext.WithTime(context.Background(), issued.Add(2*time.Hour))
	_, err = f.codec.Decode(decodeCtx, env, recipientPriv, f.holderSigningKey(t))
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeExpired))

	justBefore := requestcontext.WithTime(context.Background(), issued.Add(time.Hour-time.Second))
	_, err = f.codec.Decode(justBefore, env, recipientPriv, f.holderSigningKey(t))
	assert.NoError(t, err)
}

func TestCodec_EmptyFieldsRejected(t *testing.T) {
	f := newCodecFixture(t)

	_, err := f.codec.Encode(context.Background(), nil, f.requester, f.signer, "digest", time.Hour)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeInvalidRequest))
}
