package identity

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"

	id "travlr/pkg/domain"
	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

type keyMaterial struct {
	signingPub  ed25519.PublicKey
	signingPriv ed25519.PrivateKey
	encPriv     *ecdh.PrivateKey
	sequence    uint64
	createdAt   time.Time
}

// InMemoryProvider keeps key pairs in process memory. It backs development
// deployments and the test suites; production wires a remote provider behind
// the same interface.
type InMemoryProvider struct {
	mu   sync.RWMutex
	keys map[id.Identifier]*keyMaterial
}

func NewInMemoryProvider() *InMemoryProvider {
	return &InMemoryProvider{keys: make(map[id.Identifier]*keyMaterial)}
}

func (p *InMemoryProvider) CreateIdentifier(ctx context.Context) (id.Identifier, error) {
	signingPub, signingPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generating signing key")
	}
	encPriv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generating encryption key")
	}

	identifier := id.Identifier("did:key:" + uuid.NewString())

	p.mu.Lock()
	p.keys[identifier] = &keyMaterial{
		signingPub:  signingPub,
		signingPriv: signingPriv,
		encPriv:     encPriv,
		sequence:    0,
		createdAt:   requestcontext.Now(ctx),
	}
	p.mu.Unlock()

	return identifier, nil
}

func (p *InMemoryProvider) Sign(ctx context.Context, identifier id.Identifier, payload []byte) ([]byte, error) {
	p.mu.RLock()
	km, ok := p.keys[identifier]
	p.mu.RUnlock()
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "identifier not found")
	}
	return ed25519.Sign(km.signingPriv, payload), nil
}

func (p *InMemoryProvider) Verify(ctx context.Context, identifier id.Identifier, payload, sig []byte) (bool, error) {
	p.mu.RLock()
	km, ok := p.keys[identifier]
	p.mu.RUnlock()
	if !ok {
		return false, domainerrors.New(domainerrors.CodeNotFound, "identifier not found")
	}
	return ed25519.Verify(km.signingPub, payload, sig), nil
}

func (p *InMemoryProvider) RotateKeys(ctx context.Context, identifier id.Identifier) (string, error) {
	signingPub, signingPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generating signing key")
	}
	encPriv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generating encryption key")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	km, ok := p.keys[identifier]
	if !ok {
		return "", domainerrors.New(domainerrors.CodeNotFound, "identifier not found")
	}
	km.signingPub = signingPub
	km.signingPriv = signingPriv
	km.encPriv = encPriv
	km.sequence++

	return keyDigest(signingPub), nil
}

func (p *InMemoryProvider) Resolve(ctx context.Context, identifier id.Identifier) (*PublicKeys, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	km, ok := p.keys[identifier]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "identifier not found")
	}
	return &PublicKeys{
		Signing:    append(ed25519.PublicKey(nil), km.signingPub...),
		Encryption: append([]byte(nil), km.encPriv.PublicKey().Bytes()...),
		KeyDigest:  keyDigest(km.signingPub),
		Sequence:   km.sequence,
		CreatedAt:  km.createdAt,
	}, nil
}

// EncryptionPrivateKey exposes the X25519 private key. Only the owning
// identity's runtime should call this; the engine itself never does.
func (p *InMemoryProvider) EncryptionPrivateKey(identifier id.Identifier) (*ecdh.PrivateKey, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	km, ok := p.keys[identifier]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "identifier not found")
	}
	return km.encPriv, nil
}

func keyDigest(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:])
}
