package models

import (
	"sort"
	"strings"
)

// Status is the lifecycle state of a consent request or grant.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusDenied, StatusExpired, StatusRevoked:
		return true
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
// Approved is not terminal: an approved request's grant can still be revoked.
func (s Status) IsTerminal() bool {
	return s == StatusDenied || s == StatusExpired || s == StatusRevoked
}

// NormalizeFields sorts and deduplicates field names, dropping empties.
// Signature payloads and subset checks both work over the normalized form.
func NormalizeFields(fields []string) []string {
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// IsFieldSubset reports whether every name in sub also appears in super.
func IsFieldSubset(sub, super []string) bool {
	allowed := make(map[string]struct{}, len(super))
	for _, f := range super {
		allowed[f] = struct{}{}
	}
	for _, f := range sub {
		if _, ok := allowed[f]; !ok {
			return false
		}
	}
	return true
}
