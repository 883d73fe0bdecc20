package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator validates API bearer tokens and returns the caller's identifier.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the claims we expect from the token validator.
type Claims struct {
	Identifier string
	JTI        string
}

type contextKeyCaller struct{}

// GetCaller retrieves the authenticated caller identifier from the context.
func GetCaller(ctx context.Context) string {
	caller, ok := ctx.Value(contextKeyCaller{}).(string)
	if !ok {
		return ""
	}
	return caller
}

// WithCaller injects a caller identifier into a context, for tests and
// internal dispatch that bypass the HTTP middleware chain.
func WithCaller(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, contextKeyCaller{}, identifier)
}

// RequireAuth validates the Authorization bearer token and stores the caller
// identifier in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "missing bearer token",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "invalid bearer token",
					"request_id", GetRequestID(ctx),
					"error", err,
				)
				writeUnauthorized(w)
				return
			}

			ctx = WithCaller(ctx, claims.Identifier)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"valid bearer token required"}`))
}
