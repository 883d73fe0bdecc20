package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-key", "travlr", time.Minute)

	token, err := svc.GenerateToken("did:key:alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "did:key:alice", claims.Identifier)
	assert.NotEmpty(t, claims.JTI)
}

func TestGenerateRequiresIdentifier(t *testing.T) {
	svc := NewService("test-key", "travlr", time.Minute)

	_, err := svc.GenerateToken("")
	require.Error(t, err)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	minter := NewService("key-one", "travlr", time.Minute)
	verifier := NewService("key-two", "travlr", time.Minute)

	token, err := minter.GenerateToken("did:key:alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	minter := NewService("test-key", "someone-else", time.Minute)
	verifier := NewService("test-key", "travlr", time.Minute)

	token, err := minter.GenerateToken("did:key:alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-key", "travlr", -time.Minute)

	token, err := svc.GenerateToken("did:key:alice")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewService("test-key", "travlr", time.Minute)

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
}
