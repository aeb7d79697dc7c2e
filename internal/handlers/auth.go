package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/request"
	"github.com/webboard/webboard-api/internal/services/google"
	"github.com/webboard/webboard-api/internal/services/session"
	"go.uber.org/zap"
)

// CredentialVerifier validates an external identity assertion and extracts
// the caller's identity. Implemented by google.Verifier.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*models.Identity, error)
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	verifier CredentialVerifier
	codec    *session.Codec
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(verifier CredentialVerifier, codec *session.Codec, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		verifier: verifier,
		codec:    codec,
		logger:   logger,
	}
}

// RegisterRoutes registers the public login route. Verify is registered
// separately behind the auth gate.
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/login", h.Login).Methods("POST")
}

// LoginRequest carries the identity assertion from the provider.
type LoginRequest struct {
	Assertion string `json:"assertion"`
}

// Login verifies a Google Sign-In credential and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	identity, err := h.verifier.Verify(r.Context(), req.Assertion)
	if err != nil {
		switch {
		case errors.Is(err, google.ErrMissingCredential):
			respondJSONError(w, http.StatusBadRequest, "Missing credential", "")
		case errors.Is(err, google.ErrNotConfigured):
			h.logger.Error("google_client_id_not_configured")
			respondJSONError(w, http.StatusInternalServerError, "Authentication not configured", "GOOGLE_CLIENT_ID not set")
		case errors.Is(err, google.ErrInvalidCredential):
			h.logger.Debug("credential_rejected", zap.Error(err))
			respondJSONError(w, http.StatusUnauthorized, "Authentication failed", "Invalid credential")
		default:
			// Provider key fetch failures and the like
			h.logger.Error("credential_verification_failed", zap.Error(err))
			respondJSONError(w, http.StatusInternalServerError, "Authentication failed", "Could not verify credential")
		}
		return
	}

	token, err := h.codec.Issue(identity, time.Now())
	if err != nil {
		if errors.Is(err, session.ErrNotConfigured) {
			h.logger.Error("session_secret_not_configured")
			respondJSONError(w, http.StatusInternalServerError, "Authentication not configured", "JWT_SECRET not set")
			return
		}
		h.logger.Error("session_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Authentication failed", "")
		return
	}

	h.logger.Info("user_logged_in", zap.String("subject_id", identity.SubjectID))

	respondJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"identity": identity,
	})
}

// Verify confirms the caller's session token is valid. The auth gate has
// already validated it by the time this runs.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthenticated", "")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"valid":    true,
		"identity": identity,
	})
}
