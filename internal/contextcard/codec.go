// Package contextcard encodes approved credential fields into a sealed
// envelope only the requester can open. Confidentiality comes from an
// ephemeral X25519 agreement with the requester's encryption key and
// ChaCha20-Poly1305; authenticity comes from the holder's Ed25519 signature
// over the ciphertext and the ephemeral public key.
package contextcard

import (
	"context"
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"

	domainerrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

// EnvelopeVersion is bumped whenever the sealed layout changes.
const EnvelopeVersion = 1

// Envelope is the sealed card as it travels to the requester. Field values
// live only inside Ciphertext; everything else is routing and verification
// material.
type Envelope struct {
	Version            int       `json:"version" cbor:"1,keyasint"`
	EphemeralPublicKey []byte    `json:"ephemeralPublicKey" cbor:"2,keyasint"`
	Nonce              []byte    `json:"nonce" cbor:"3,keyasint"`
	Ciphertext         []byte    `json:"ciphertext" cbor:"4,keyasint"`
	Signature          []byte    `json:"signature" cbor:"5,keyasint"`
	HolderKeyDigest    string    `json:"holderKeyDigest" cbor:"6,keyasint"`
	IssuedAt           time.Time `json:"issuedAt" cbor:"7,keyasint"`
	ExpiresAt          time.Time `json:"expiresAt" cbor:"8,keyasint"`
	// FieldsIncluded lists the sealed field names in the clear so the
	// requester knows what the card carries before opening it. Values stay
	// inside Ciphertext.
	FieldsIncluded []string `json:"fieldsIncluded" cbor:"9,keyasint"`
}

// payload is the CBOR document inside the ciphertext.
type payload struct {
	Fields map[string]string `cbor:"1,keyasint"`
}

// Signer produces the holder's signature over the sealed material.
type Signer interface {
	Sign(ctx context.Context, payload []byte) ([]byte, error)
}

// Codec seals and opens envelopes.
type Codec struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

func NewCodec() (*Codec, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cbor encoder")
	}
	decMode, err := cbor.DecOptions{
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
	}.DecMode()
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cbor decoder")
	}
	return &Codec{encMode: encMode, decMode: decMode}, nil
}

// Encode seals the given fields for the requester's X25519 public key and
// signs the result through the holder's signer. A fresh ephemeral key pair is
// generated per envelope, so two envelopes over identical fields never share
// ciphertext.
func (c *Codec) Encode(ctx context.Context, fields map[string]string, requesterEncKey []byte, signer Signer, holderKeyDigest string, ttl time.Duration) (*Envelope, error) {
	if len(fields) == 0 {
		return nil, domainerrors.New(domainerrors.CodeInvalidRequest, "no fields to seal")
	}

	recipient, err := ecdh.X25519().NewPublicKey(requesterEncKey)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInvalidRequest, "invalid requester encryption key")
	}

	ephPriv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generating ephemeral key")
	}

	shared, err := ephPriv.ECDH(recipient)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "computing shared secret")
	}
	sealKey := sha256.Sum256(shared)

	aead, err := chacha20poly1305.NewX(sealKey[:])
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cipher")
	}

	plain, err := c.encMode.Marshal(payload{Fields: fields})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encoding card payload")
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generating nonce")
	}

	ephPub := ephPriv.PublicKey().Bytes()
	ciphertext := aead.Seal(nil, nonce, plain, ephPub)

	sig, err := signer.Sign(ctx, signedMaterial(ciphertext, ephPub))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "signing envelope")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	now := requestcontext.Now(ctx)
	return &Envelope{
		Version:            EnvelopeVersion,
		EphemeralPublicKey: ephPub,
		Nonce:              nonce,
		Ciphertext:         ciphertext,
		Signature:          sig,
		HolderKeyDigest:    holderKeyDigest,
		IssuedAt:           now,
		ExpiresAt:          now.Add(ttl),
		FieldsIncluded:     names,
	}, nil
}

// Decode verifies and opens an envelope with the recipient's X25519 private
// key and the holder's Ed25519 verification key. Verification order is fixed:
// version, expiry, signature, then decryption, so a tampered envelope is
// rejected before any cipher work.
func (c *Codec) Decode(ctx context.Context, env *Envelope, recipientPriv *ecdh.PrivateKey, holderSigningKey ed25519.PublicKey) (map[string]string, error) {
	if env.Version != EnvelopeVersion {
		return nil, domainerrors.New(domainerrors.CodeInvalidRequest, "unsupported envelope version")
	}
	if !env.ExpiresAt.After(requestcontext.Now(ctx)) {
		return nil, domainerrors.New(domainerrors.CodeExpired, "envelope expired")
	}
	if !ed25519.Verify(holderSigningKey, signedMaterial(env.Ciphertext, env.EphemeralPublicKey), env.Signature) {
		return nil, domainerrors.New(domainerrors.CodeSignatureInvalid, "envelope signature rejected")
	}

	ephPub, err := ecdh.X25519().NewPublicKey(env.EphemeralPublicKey)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeDecryptionFailed, "invalid ephemeral key")
	}
	shared, err := recipientPriv.ECDH(ephPub)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeDecryptionFailed, "computing shared secret")
	}
	sealKey := sha256.Sum256(shared)

	aead, err := chacha20poly1305.NewX(sealKey[:])
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "building cipher")
	}
	if len(env.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, domainerrors.New(domainerrors.CodeDecryptionFailed, "malformed nonce")
	}

	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, env.EphemeralPublicKey)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeDecryptionFailed, "opening envelope")
	}

	var p payload
	if err := c.decMode.Unmarshal(plain, &p); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeDecryptionFailed, "decoding card payload")
	}
	return p.Fields, nil
}

// signedMaterial is what the holder signs: the ciphertext bound to the
// ephemeral key it was sealed under.
func signedMaterial(ciphertext, ephemeralPub []byte) []byte {
	out := make([]byte, 0, len(ciphertext)+len(ephemeralPub))
	out = append(out, ciphertext...)
	return append(out, ephemeralPub...)
}
