// Package identity defines the port to the external identity provider. The
// consent engine only references identifiers and the signatures and keys it is
// handed; key-event logs, witness consensus, and credential anchoring are the
// provider's business.
package identity

import (
	"context"
	"crypto/ed25519"
	"time"

	id "travlr/pkg/domain"
)

// PublicKeys is the result of resolving an identifier to its current key state.
type PublicKeys struct {
	// Signing is the identity's current Ed25519 verification key.
	Signing ed25519.PublicKey
	// Encryption is the identity's current X25519 public key, 32 bytes.
	Encryption []byte
	// KeyDigest is the hex SHA-256 digest of the current signing key.
	KeyDigest string
	// Sequence is the number of rotations this identity has undergone.
	Sequence uint64
	// CreatedAt is when the identifier was first established.
	CreatedAt time.Time
}

// Provider is the consumed interface of the external identity substrate.
// All methods may touch the network and accept a context for cancellation.
type Provider interface {
	// CreateIdentifier establishes a fresh identity and returns its handle.
	CreateIdentifier(ctx context.Context) (id.Identifier, error)
	// Sign produces a signature over payload with the identity's current key.
	Sign(ctx context.Context, identifier id.Identifier, payload []byte) ([]byte, error)
	// Verify checks a signature against the identity's current key.
	Verify(ctx context.Context, identifier id.Identifier, payload, sig []byte) (bool, error)
	// RotateKeys replaces the identity's key pairs and returns the new key digest.
	RotateKeys(ctx context.Context, identifier id.Identifier) (string, error)
	// Resolve returns the identity's current public key state.
	Resolve(ctx context.Context, identifier id.Identifier) (*PublicKeys, error)
}

// Signer binds Sign to a single identifier, for collaborators that only ever
// sign as one identity (e.g. the envelope codec signing as the holder).
type Signer interface {
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}

// BoundSigner adapts a Provider into a Signer for one identifier.
type BoundSigner struct {
	Provider   Provider
	Identifier id.Identifier
}

func (b BoundSigner) Sign(ctx context.Context, payload []byte) ([]byte, error) {
	return b.Provider.Sign(ctx, b.Identifier, payload)
}
