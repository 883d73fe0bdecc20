// Package httptransport assembles the HTTP surface of the consent engine.
// Handlers live with their domains; this package only mounts them behind the
// shared middleware stack.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	consenthandler "travlr/internal/consent/handler"
	delegationhandler "travlr/internal/delegation/handler"
	"travlr/internal/notify"
	"travlr/internal/platform/health"
	"travlr/internal/platform/middleware"
	"travlr/internal/rotation"
	"travlr/pkg/requestcontext"
)

// Deps collects the mounted handlers and cross-cutting services.
type Deps struct {
	Consent    *consenthandler.Handler
	Delegation *delegationhandler.Handler
	Rotation   *rotation.Handler
	Notify     *notify.Handler
	Health     *health.Handler
	Auth       middleware.TokenValidator
	Logger     *slog.Logger
}

// NewRouter wires all endpoints with middleware. Health probes and the sealed
// card endpoint stay outside bearer auth: the former for orchestrators, the
// latter because it authenticates with the grant's own session token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(requestcontext.Middleware)
	r.Use(middleware.Logger(d.Logger))

	d.Health.Register(r)

	// Session-token routes. The requester's device may never hold a bearer
	// token; the header check lives in the handler.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/consent/data/{requestID}", d.Consent.HandleEnvelope)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.Auth, d.Logger))
		// No Timeout wrapper here: the stream holds its connection open.
		d.Notify.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(d.Auth, d.Logger))

		d.Consent.Register(r)
		d.Delegation.Register(r)
		d.Rotation.Register(r)
	})

	return r
}
