package main

import (
	"context"
	"time"

	consentmodels "travlr/internal/consent/models"
	consentservice "travlr/internal/consent/service"
	delegationservice "travlr/internal/delegation/service"
	id "travlr/pkg/domain"
)

// counterpartyLister answers who needs to hear about a key rotation: every
// identity on the other end of a live grant or delegation. Composed here so
// the rotation package stays decoupled from consent and delegation.
type counterpartyLister struct {
	consent     *consentservice.Service
	delegations *delegationservice.Service
}

func (l *counterpartyLister) Counterparties(ctx context.Context, identifier id.Identifier) ([]id.Identifier, error) {
	now := time.Now()
	seen := make(map[id.Identifier]struct{})

	grants, err := l.consent.ListGrantsForHolder(ctx, identifier)
	if err != nil {
		return nil, err
	}
	for _, g := range grants {
		if g.IsActive(now) {
			seen[g.Requester] = struct{}{}
		}
	}

	requests, err := l.consent.ListForRequester(ctx, identifier)
	if err != nil {
		return nil, err
	}
	for _, r := range requests {
		if r.Status == consentmodels.StatusApproved {
			seen[r.Holder] = struct{}{}
		}
	}

	given, err := l.delegations.ListForDelegator(ctx, identifier)
	if err != nil {
		return nil, err
	}
	held, err := l.delegations.ListForDelegate(ctx, identifier)
	if err != nil {
		return nil, err
	}
	for _, d := range append(given, held...) {
		if !d.IsActive(now) {
			continue
		}
		other := d.Delegate
		if other == identifier {
			other = d.Delegator
		}
		seen[other] = struct{}{}
	}
	delete(seen, identifier)

	out := make([]id.Identifier, 0, len(seen))
	for other := range seen {
		out = append(out, other)
	}
	return out, nil
}
