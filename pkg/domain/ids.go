// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "travlr/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a RequestID where a
// DelegationID is expected.
type (
	RequestID    uuid.UUID
	GrantID      uuid.UUID
	DelegationID uuid.UUID
	RotationID   uuid.UUID
)

// Identifier is the opaque handle to a cryptographic identity managed by the
// external identity provider. This system never inspects or mutates it, only
// references it.
type Identifier string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseUUID(s, "request ID")
	return RequestID(id), err
}

func ParseGrantID(s string) (GrantID, error) {
	id, err := parseUUID(s, "grant ID")
	return GrantID(id), err
}

func ParseDelegationID(s string) (DelegationID, error) {
	id, err := parseUUID(s, "delegation ID")
	return DelegationID(id), err
}

func ParseRotationID(s string) (RotationID, error) {
	id, err := parseUUID(s, "rotation ID")
	return RotationID(id), err
}

func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identifier cannot be empty")
	}
	return Identifier(s), nil
}

// New functions - generate fresh identifiers at creation points.

func NewRequestID() RequestID       { return RequestID(uuid.New()) }
func NewGrantID() GrantID           { return GrantID(uuid.New()) }
func NewDelegationID() DelegationID { return DelegationID(uuid.New()) }
func NewRotationID() RotationID     { return RotationID(uuid.New()) }

// String methods - for logging and debugging.

func (id RequestID) String() string    { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }
func (id DelegationID) String() string { return uuid.UUID(id).String() }
func (id RotationID) String() string   { return uuid.UUID(id).String() }
func (id Identifier) String() string   { return string(id) }

// IsNil checks - used for service-layer validation.

func (id RequestID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id DelegationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RotationID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id Identifier) IsNil() bool   { return id == "" }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here; use
// IsNil() at the service layer for business validation so store lookups can
// return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
