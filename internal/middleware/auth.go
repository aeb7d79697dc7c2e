package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/webboard/webboard-api/internal/request"
	"github.com/webboard/webboard-api/internal/services/session"
	"go.uber.org/zap"
)

// Auth creates the authentication gate applied to every protected route. It
// validates the bearer session token once and attaches the caller's identity
// to the request context; handlers never re-check credentials themselves.
func Auth(codec *session.Codec, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := session.BearerToken(r)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "No token provided", "")
				return
			}

			identity, err := codec.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrNotConfigured):
					logger.Error("session_secret_not_configured")
					respondError(w, http.StatusInternalServerError, "Authentication not configured", "JWT_SECRET not set")
				default:
					logger.Debug("session_token_rejected", zap.Error(err))
					respondError(w, http.StatusUnauthorized, "Invalid or expired token", "")
				}
				return
			}

			ctx := request.WithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{"error": message}
	if details != "" {
		response["details"] = details
	}

	_ = json.NewEncoder(w).Encode(response)
}
