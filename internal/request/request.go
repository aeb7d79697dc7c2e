package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/webboard/webboard-api/internal/models"
)

type contextKey string

const identityContextKey contextKey = "identity"

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithIdentity returns a context with the authenticated identity attached.
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the identity from the request context, or nil if missing or wrong type.
func IdentityFromContext(r *http.Request) *models.Identity {
	id, _ := r.Context().Value(identityContextKey).(*models.Identity)
	return id
}
