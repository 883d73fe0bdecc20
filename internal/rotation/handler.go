package rotation

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"travlr/internal/platform/middleware"
	respond "travlr/internal/transport/http/json"
	"travlr/internal/transport/http/shared"
	id "travlr/pkg/domain"
	dErrors "travlr/pkg/domain-errors"
)

// Handler exposes rotation over HTTP.
type Handler struct {
	logger      *slog.Logger
	coordinator *Coordinator
}

func NewHandler(coordinator *Coordinator, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, coordinator: coordinator}
}

// Register registers the rotation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/rotation", h.handleRotate)
	r.Get("/rotation/{identifier}/history", h.handleHistory)
	r.Get("/rotation/{identifier}/advice", h.handleAdvice)
}

// RotateBody carries a rotation request. IdentityRef is the caller's own
// identifier, or a delegation ID to rotate the delegate keys under it.
type RotateBody struct {
	IdentityRef string `json:"identityRef"`
	Reason      string `json:"reason"`
}

func (b *RotateBody) Validate() error {
	if b.IdentityRef == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identityRef is required")
	}
	if !ValidReason(b.Reason) {
		return dErrors.New(dErrors.CodeInvalidInput, "reason must be one of scheduled, user_requested, emergency")
	}
	return nil
}

// EventResponse is one rotation on the history. Continuity is base64 so a
// verifier can check the chain offline against the retired key.
type EventResponse struct {
	ID           string    `json:"id"`
	Identifier   string    `json:"identifier"`
	DelegationID *string   `json:"delegationId,omitempty"`
	Sequence     uint64    `json:"sequence"`
	OldKeyDigest string    `json:"oldKeyDigest"`
	NewKeyDigest string    `json:"newKeyDigest"`
	Reason       string    `json:"reason"`
	Continuity   string    `json:"continuity"`
	CreatedAt    time.Time `json:"createdAt"`
}

type HistoryResponse struct {
	Events []EventResponse `json:"events"`
}

type AdviceResponse struct {
	ShouldRotate bool   `json:"shouldRotate"`
	Reason       string `json:"reason,omitempty"`
	KeyAgeSecs   int64  `json:"keyAgeSeconds"`
}

func (h *Handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := id.Identifier(middleware.GetCaller(ctx))

	var body RotateBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := body.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	ev, err := h.coordinator.Rotate(ctx, caller, RotateInput{
		IdentityRef: body.IdentityRef,
		Reason:      body.Reason,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "rotation failed",
			"request_id", middleware.GetRequestID(ctx),
			"identity_ref", body.IdentityRef,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusCreated, formatEvent(ev))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier, err := id.ParseIdentifier(chi.URLParam(r, "identifier"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	events, err := h.coordinator.History(ctx, identifier)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, formatEvent(ev))
	}
	respond.WriteJSON(w, http.StatusOK, &HistoryResponse{Events: out})
}

func (h *Handler) handleAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identifier, err := id.ParseIdentifier(chi.URLParam(r, "identifier"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	advice, err := h.coordinator.ShouldRotate(ctx, identifier)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	respond.WriteJSON(w, http.StatusOK, &AdviceResponse{
		ShouldRotate: advice.ShouldRotate,
		Reason:       advice.Reason,
		KeyAgeSecs:   int64(advice.KeyAge / time.Second),
	})
}

func formatEvent(ev *Event) EventResponse {
	out := EventResponse{
		ID:           ev.ID.String(),
		Identifier:   ev.Identifier.String(),
		Sequence:     ev.Sequence,
		OldKeyDigest: ev.OldKeyDigest,
		NewKeyDigest: ev.NewKeyDigest,
		Reason:       ev.Reason,
		Continuity:   base64.StdEncoding.EncodeToString(ev.Continuity),
		CreatedAt:    ev.CreatedAt,
	}
	if ev.DelegationID != nil {
		s := ev.DelegationID.String()
		out.DelegationID = &s
	}
	return out
}
