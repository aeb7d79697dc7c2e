package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/request"
	"github.com/webboard/webboard-api/internal/services/session"
	"go.uber.org/zap"
)

func TestAuth_ValidToken(t *testing.T) {
	t.Parallel()

	codec := session.NewCodec("test-secret")
	identity := &models.Identity{SubjectID: "u1", Email: "u1@example.com"}
	token, err := codec.Issue(identity, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var seen *models.Identity
	handler := Auth(codec, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.IdentityFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/drawings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if seen == nil {
		t.Fatal("Expected identity in context")
	}
	if seen.SubjectID != "u1" {
		t.Errorf("Expected subject u1, got %q", seen.SubjectID)
	}
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	codec := session.NewCodec("test-secret")
	expiredToken, err := codec.Issue(&models.Identity{SubjectID: "u1"}, time.Now().Add(-8*24*time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		codec      *session.Codec
		wantStatus int
	}{
		{name: "no header", codec: codec, wantStatus: http.StatusUnauthorized},
		{name: "malformed header", authHeader: "Bearer", codec: codec, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", authHeader: "Bearer not.a.jwt", codec: codec, wantStatus: http.StatusUnauthorized},
		{name: "expired token", authHeader: "Bearer " + expiredToken, codec: codec, wantStatus: http.StatusUnauthorized},
		{name: "no secret configured", authHeader: "Bearer " + expiredToken, codec: session.NewCodec(""), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			handler := Auth(tt.codec, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/drawings", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if called {
				t.Error("Expected inner handler not to be called")
			}
		})
	}
}
