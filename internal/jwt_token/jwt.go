// Package jwttoken issues and validates the API bearer tokens used by the
// transport layer. These are transport authentication only; the request-bound
// session tokens handed to requesters for envelope retrieval live in
// internal/session.
package jwttoken

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"travlr/internal/platform/middleware"
	dErrors "travlr/pkg/domain-errors"
)

// AccessTokenClaims represents the JWT claims for API access tokens.
type AccessTokenClaims struct {
	Identifier string `json:"identifier"`
	jwt.RegisteredClaims
}

// Service handles JWT creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

func NewService(signingKey string, issuer string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// GenerateToken mints a bearer token for the given identifier.
func (s *Service) GenerateToken(identifier string) (string, error) {
	if identifier == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identifier cannot be empty")
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token ID")
	}
	jti := hex.EncodeToString(b)
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		Identifier: identifier,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   identifier,
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign token")
	}
	return signed, nil
}

// ValidateToken parses and validates a bearer token, returning middleware
// claims on success.
func (s *Service) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing method")
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || claims.Identifier == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return &middleware.Claims{
		Identifier: claims.Identifier,
		JTI:        claims.ID,
	}, nil
}
