// Package handler exposes delegation management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"travlr/internal/delegation/models"
	"travlr/internal/delegation/service"
	"travlr/internal/platform/middleware"
	respond "travlr/internal/transport/http/json"
	"travlr/internal/transport/http/shared"
	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

// Service defines the delegation operations the handler dispatches to.
type Service interface {
	Create(ctx context.Context, caller id.Identifier, in service.CreateInput) (*models.Delegation, error)
	Get(ctx context.Context, caller id.Identifier, delegationID id.DelegationID) (*models.Delegation, error)
	ListForDelegator(ctx context.Context, delegator id.Identifier) ([]*models.Delegation, error)
	ListForDelegate(ctx context.Context, delegate id.Identifier) ([]*models.Delegation, error)
	Revoke(ctx context.Context, caller id.Identifier, delegationID id.DelegationID, signature []byte) (*models.Delegation, error)
	CheckPermission(ctx context.Context, delegationID id.DelegationID, fields []string) bool
}

// Handler handles delegation endpoints.
type Handler struct {
	logger     *slog.Logger
	delegation Service
}

// New creates a new delegation Handler.
func New(delegation Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, delegation: delegation}
}

// Register registers the delegation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/delegations", h.handleCreate)
	r.Get("/delegations", h.handleList)
	r.Get("/delegations/{delegationID}", h.handleGet)
	r.Post("/delegations/{delegationID}/revoke", h.handleRevoke)
	r.Post("/delegations/{delegationID}/check", h.handleCheck)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	var body CreateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	sig, err := body.DecodedSignature()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	d, err := h.delegation.Create(ctx, caller, service.CreateInput{
		Delegate:  id.Identifier(body.Delegate),
		Fields:    body.Fields,
		Reason:    body.Reason,
		TTL:       time.Duration(body.TTLSeconds) * time.Second,
		Signature: sig,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "delegation create failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, formatDelegation(d, requestcontext.Now(ctx)))
}

// handleList lists delegations for the caller. role=delegate lists authority
// held, anything else lists authority handed out.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	var (
		ds  []*models.Delegation
		err error
	)
	if r.URL.Query().Get("role") == "delegate" {
		ds, err = h.delegation.ListForDelegate(ctx, caller)
	} else {
		ds, err = h.delegation.ListForDelegator(ctx, caller)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, &ListResponse{Delegations: formatDelegations(ds, requestcontext.Now(ctx))})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	delegationID, err := id.ParseDelegationID(chi.URLParam(r, "delegationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	d, err := h.delegation.Get(ctx, caller, delegationID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, formatDelegation(d, requestcontext.Now(ctx)))
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	delegationID, err := id.ParseDelegationID(chi.URLParam(r, "delegationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body RevokeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	sig, err := body.DecodedSignature()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	d, err := h.delegation.Revoke(ctx, caller, delegationID, sig)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, formatDelegation(d, requestcontext.Now(ctx)))
}

// handleCheck answers whether the delegation currently covers the given
// fields. It always answers 200 with a verdict; the predicate has no error
// outcomes.
func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	delegationID, err := id.ParseDelegationID(chi.URLParam(r, "delegationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body CheckBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	allowed := h.delegation.CheckPermission(ctx, delegationID, body.Fields)
	respond.WriteJSON(w, http.StatusOK, &CheckResponse{Allowed: allowed})
}
