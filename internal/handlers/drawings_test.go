package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/request"
	"github.com/webboard/webboard-api/internal/storage"
	"go.uber.org/zap"
)

func identityFor(sub string) *models.Identity {
	return &models.Identity{
		SubjectID: sub,
		Email:     sub + "@example.com",
		Name:      "User " + sub,
	}
}

// newDrawingRouter builds a /drawings router. When identity is non-nil it is
// injected into every request context, standing in for the auth gate.
func newDrawingRouter(store storage.DrawingStore, identity *models.Identity) *mux.Router {
	h := NewDrawingHandler(store, zap.NewNop())
	r := mux.NewRouter()
	sub := r.PathPrefix("/drawings").Subrouter()
	if identity != nil {
		sub.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, rq *http.Request) {
				next.ServeHTTP(w, rq.WithContext(request.WithIdentity(rq.Context(), identity)))
			})
		})
	}
	h.RegisterRoutes(sub)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(buf)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createDrawing(t *testing.T, router *mux.Router, title string, payload any) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/drawings", map[string]any{
		"title":   title,
		"payload": payload,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201 creating drawing, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ID      string `json:"id"`
		Success bool   `json:"success"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode create response: %v", err)
	}
	if !resp.Success || resp.ID == "" {
		t.Fatalf("Expected success with id, got %+v", resp)
	}
	return resp.ID
}

func TestCreateDrawing(t *testing.T) {
	t.Parallel()

	router := newDrawingRouter(newMemStore(), identityFor("u1"))
	id := createDrawing(t, router, "sketch", map[string]any{"strokes": []int{1, 2, 3}})
	if id == "" {
		t.Fatal("Expected a drawing id")
	}
}

func TestCreateDrawing_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "empty title", body: map[string]any{"title": "", "payload": map[string]any{"a": 1}}},
		{name: "missing title", body: map[string]any{"payload": map[string]any{"a": 1}}},
		{name: "missing payload", body: map[string]any{"title": "sketch"}},
		{name: "null payload", body: map[string]any{"title": "sketch", "payload": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newDrawingRouter(newMemStore(), identityFor("u1"))
			rec := doJSON(t, router, http.MethodPost, "/drawings", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateDrawing_Unauthenticated(t *testing.T) {
	t.Parallel()

	router := newDrawingRouter(newMemStore(), nil)
	rec := doJSON(t, router, http.MethodPost, "/drawings", map[string]any{
		"title":   "sketch",
		"payload": map[string]any{"a": 1},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestListDrawings_NewestFirst(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := newDrawingRouter(store, identityFor("u1"))

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, createDrawing(t, router, fmt.Sprintf("sketch-%d", i), map[string]any{"n": i}))
	}

	rec := doJSON(t, router, http.MethodGet, "/drawings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var summaries []models.DrawingSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to decode list response: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("Expected 3 drawings, got %d", len(summaries))
	}

	// Newest first: creation order reversed
	for i, s := range summaries {
		wantID := ids[len(ids)-1-i]
		if s.ID != wantID {
			t.Errorf("Position %d: expected id %s, got %s", i, wantID, s.ID)
		}
	}
	for i := 1; i < len(summaries); i++ {
		if summaries[i].CreatedAt.After(summaries[i-1].CreatedAt) {
			t.Errorf("List not ordered by createdAt descending at position %d", i)
		}
	}
}

func TestListDrawings_Empty(t *testing.T) {
	t.Parallel()

	router := newDrawingRouter(newMemStore(), identityFor("u1"))
	rec := doJSON(t, router, http.MethodGet, "/drawings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("Expected empty JSON array, got %q", got)
	}
}

func TestGetDrawing_PayloadRoundTrip(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := newDrawingRouter(store, identityFor("u1"))

	payload := map[string]any{
		"strokes": []map[string]any{
			{"color": "#ff0000", "points": []int{1, 2, 3, 4}},
			{"color": "#00ff00", "points": []int{5, 6}},
		},
		"background": "white",
	}
	id := createDrawing(t, router, "sketch", payload)

	rec := doJSON(t, router, http.MethodGet, "/drawings/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got struct {
		ID      string          `json:"id"`
		Title   string          `json:"title"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to decode get response: %v", err)
	}
	if got.ID != id {
		t.Errorf("Expected id %s, got %s", id, got.ID)
	}
	if got.Title != "sketch" {
		t.Errorf("Expected title sketch, got %q", got.Title)
	}

	want, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	var wantNorm, gotNorm any
	if err := json.Unmarshal(want, &wantNorm); err != nil {
		t.Fatalf("Failed to normalize expected payload: %v", err)
	}
	if err := json.Unmarshal(got.Payload, &gotNorm); err != nil {
		t.Fatalf("Failed to normalize returned payload: %v", err)
	}
	if fmt.Sprintf("%v", wantNorm) != fmt.Sprintf("%v", gotNorm) {
		t.Errorf("Payload did not round-trip: want %v, got %v", wantNorm, gotNorm)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ownerRouter := newDrawingRouter(store, identityFor("owner"))
	otherRouter := newDrawingRouter(store, identityFor("other"))

	id := createDrawing(t, ownerRouter, "private sketch", map[string]any{"a": 1})

	// Another user cannot see it
	rec := doJSON(t, otherRouter, http.MethodGet, "/drawings/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign get, got %d", rec.Code)
	}

	// Another user's list does not contain it
	rec = doJSON(t, otherRouter, http.MethodGet, "/drawings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var summaries []models.DrawingSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("Expected empty list for other user, got %d items", len(summaries))
	}

	// Another user's delete reports success but removes nothing
	rec = doJSON(t, otherRouter, http.MethodDelete, "/drawings/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for foreign delete, got %d", rec.Code)
	}
	rec = doJSON(t, ownerRouter, http.MethodGet, "/drawings/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected drawing to survive foreign delete, got %d", rec.Code)
	}
}

func TestDeleteDrawing_Idempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	router := newDrawingRouter(store, identityFor("u1"))
	id := createDrawing(t, router, "sketch", map[string]any{"a": 1})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodDelete, "/drawings/"+id, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("Delete attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodGet, "/drawings/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestDrawings_StoreErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failWith error
	}{
		{name: "backend failure", failWith: errors.New("connection refused")},
		{name: "store not configured", failWith: storage.ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMemStore()
			store.failWith = tt.failWith
			router := newDrawingRouter(store, identityFor("u1"))

			rec := doJSON(t, router, http.MethodGet, "/drawings", nil)
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("Expected 500, got %d", rec.Code)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if _, ok := body["error"]; !ok {
				t.Error("Expected structured error body")
			}
		})
	}
}
