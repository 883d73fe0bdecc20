// Package handler exposes the consent lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"travlr/internal/consent/metrics"
	"travlr/internal/consent/models"
	"travlr/internal/consent/service"
	"travlr/internal/platform/middleware"
	respond "travlr/internal/transport/http/json"
	"travlr/internal/transport/http/shared"
	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
	"travlr/pkg/requestcontext"
)

// SessionTokenHeader carries the bearer for envelope retrieval.
const SessionTokenHeader = "X-Session-Token"

// Service defines the consent operations the handler dispatches to.
type Service interface {
	CreateRequest(ctx context.Context, requester id.Identifier, in service.CreateRequestInput) (*models.Request, error)
	Get(ctx context.Context, caller id.Identifier, requestID id.RequestID) (*models.Request, *models.Grant, error)
	ListForHolder(ctx context.Context, holder id.Identifier) ([]*models.Request, error)
	ListForRequester(ctx context.Context, requester id.Identifier) ([]*models.Request, error)
	ListGrantsForHolder(ctx context.Context, holder id.Identifier) ([]*models.Grant, error)
	Approve(ctx context.Context, caller id.Identifier, requestID id.RequestID, approvedFields []string, signature []byte) (*models.Grant, error)
	Deny(ctx context.Context, caller id.Identifier, requestID id.RequestID, reason string, signature []byte) (*models.Request, error)
	RevokeGrant(ctx context.Context, caller id.Identifier, grantID id.GrantID, signature []byte) (*models.Grant, error)
	Envelope(ctx context.Context, requestID id.RequestID, token string) (*models.Grant, error)
}

// Handler handles consent-related endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
	metrics *metrics.Metrics
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		consent: consent,
		metrics: metrics,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent/requests", h.handleCreateRequest)
	r.Get("/consent/requests", h.handleListRequests)
	r.Get("/consent/requests/{requestID}", h.handleGetRequest)
	r.Post("/consent/requests/{requestID}/approve", h.handleApprove)
	r.Post("/consent/requests/{requestID}/deny", h.handleDeny)
	r.Get("/consent/grants", h.handleListGrants)
	r.Post("/consent/grants/{grantID}/revoke", h.handleRevokeGrant)
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "failed to decode create request body",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	req, err := h.consent.CreateRequest(ctx, caller, service.CreateRequestInput{
		Holder: id.Identifier(body.Holder),
		Fields: body.Fields,
		Reason: body.Reason,
		TTL:    time.Duration(body.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create consent request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, formatRequest(req))
}

// handleListRequests lists the caller's requests. role=holder lists incoming
// petitions, anything else lists the caller's own outgoing ones. An optional
// status filter narrows the view; expiry is settled before filtering, so a
// stale pending request never shows up under status=pending.
func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	var (
		reqs []*models.Request
		err  error
	)
	if r.URL.Query().Get("role") == "holder" {
		reqs, err = h.consent.ListForHolder(ctx, caller)
	} else {
		reqs, err = h.consent.ListForRequester(ctx, caller)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if status := models.Status(r.URL.Query().Get("status")); status != "" {
		if !status.IsValid() {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown status filter"))
			return
		}
		filtered := reqs[:0]
		for _, req := range reqs {
			if req.Status == status {
				filtered = append(filtered, req)
			}
		}
		reqs = filtered
	}

	respond.WriteJSON(w, http.StatusOK, &ListResponse{Requests: formatRequests(reqs)})
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, grant, err := h.consent.Get(ctx, caller, requestID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := &StatusResponse{Request: formatRequest(req)}
	if grant != nil {
		resp.Grant = formatGrant(grant)
		// Only the requester collects the session token, and only while the
		// grant is live.
		if caller == req.Requester && grant.IsActive(requestcontext.Now(ctx)) {
			resp.SessionToken = grant.SessionToken
		}
	}
	respond.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.ObserveApproveLatency(time.Since(start).Seconds())
		}
	}()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body ApproveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	sig, err := decodeSignature(body.Signature)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	grant, err := h.consent.Approve(ctx, caller, requestID, body.ApprovedFields, sig)
	if err != nil {
		h.logger.WarnContext(ctx, "approve failed",
			"request_id", middleware.GetRequestID(ctx),
			"consent_request", requestID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatGrant(grant))
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body SignedBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	sig, err := decodeSignature(body.Signature)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, err := h.consent.Deny(ctx, caller, requestID, body.Reason, sig)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatRequest(req))
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	grants, err := h.consent.ListGrantsForHolder(ctx, caller)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, &GrantListResponse{Grants: formatGrants(grants)})
}

func (h *Handler) handleRevokeGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	grantID, err := id.ParseGrantID(chi.URLParam(r, "grantID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var body SignedBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}
	sig, err := decodeSignature(body.Signature)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	grant, err := h.consent.RevokeGrant(ctx, caller, grantID, sig)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, formatGrant(grant))
}

// HandleEnvelope serves the sealed card. It authenticates with the session
// token alone: the requester may fetch from a device that never logged in.
// The router mounts it outside bearer auth for that reason.
func (h *Handler) HandleEnvelope(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session token required"))
		return
	}

	grant, err := h.consent.Envelope(ctx, requestID, token)
	if err != nil {
		h.logger.WarnContext(ctx, "envelope retrieval failed",
			"request_id", middleware.GetRequestID(ctx),
			"consent_request", requestID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, &EnvelopeResponse{
		Holder:   string(grant.Holder),
		Fields:   grant.ApprovedFields,
		Envelope: grant.Envelope,
	})
}
