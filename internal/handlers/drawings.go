package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/webboard/webboard-api/internal/request"
	"github.com/webboard/webboard-api/internal/storage"
	"go.uber.org/zap"
)

// MaxTitleLength is the maximum length for a drawing title
const MaxTitleLength = 200

// DrawingHandler handles drawing CRUD requests. It holds no state of its own;
// every operation reads the caller's identity from the request context and
// goes straight to the store.
type DrawingHandler struct {
	store    storage.DrawingStore
	logger   *zap.Logger
	validate *validator.Validate
}

// NewDrawingHandler creates a new drawing handler
func NewDrawingHandler(store storage.DrawingStore, logger *zap.Logger) *DrawingHandler {
	return &DrawingHandler{
		store:    store,
		logger:   logger,
		validate: validator.New(),
	}
}

// RegisterRoutes registers drawing routes on the given router.
// The router should already have the /drawings prefix and the auth gate.
func (h *DrawingHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.CreateDrawing).Methods("POST")
	r.HandleFunc("", h.ListDrawings).Methods("GET")
	r.HandleFunc("/{id}", h.GetDrawing).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteDrawing).Methods("DELETE")
}

// CreateDrawingRequest represents a create drawing request
type CreateDrawingRequest struct {
	Title   string          `json:"title" validate:"required,min=1,max=200"`
	Payload json.RawMessage `json:"payload"`
}

// CreateDrawing stores a new drawing owned by the caller.
func (h *DrawingHandler) CreateDrawing(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthenticated", "")
		return
	}

	var req CreateDrawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Missing title or payload", "title must be 1-200 characters")
		return
	}
	if len(req.Payload) == 0 || bytes.Equal(req.Payload, []byte("null")) {
		respondJSONError(w, http.StatusBadRequest, "Missing title or payload", "payload must not be empty")
		return
	}

	drawing, err := h.store.Insert(r.Context(), identity.SubjectID, identity.Email, req.Title, req.Payload)
	if err != nil {
		h.respondStoreError(w, "Failed to save drawing", err)
		return
	}

	h.logger.Info("drawing_created",
		zap.String("drawing_id", drawing.ID),
		zap.String("owner_id", identity.SubjectID),
	)

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":      drawing.ID,
		"success": true,
	})
}

// ListDrawings returns summaries of the caller's drawings, newest first.
func (h *DrawingHandler) ListDrawings(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthenticated", "")
		return
	}

	summaries, err := h.store.ListByOwner(r.Context(), identity.SubjectID)
	if err != nil {
		h.respondStoreError(w, "Failed to list drawings", err)
		return
	}

	respondJSON(w, http.StatusOK, summaries)
}

// GetDrawing returns one of the caller's drawings in full. A drawing owned by
// someone else is reported as not found, so its existence never leaks.
func (h *DrawingHandler) GetDrawing(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthenticated", "")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing drawing id", "")
		return
	}

	drawing, err := h.store.GetByOwner(r.Context(), identity.SubjectID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Drawing not found", "")
			return
		}
		h.respondStoreError(w, "Failed to load drawing", err)
		return
	}

	respondJSON(w, http.StatusOK, drawing)
}

// DeleteDrawing removes one of the caller's drawings. Deleting a drawing that
// does not exist, or that belongs to someone else, still reports success.
func (h *DrawingHandler) DeleteDrawing(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthenticated", "")
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		respondJSONError(w, http.StatusBadRequest, "Missing drawing id", "")
		return
	}

	if err := h.store.DeleteByOwner(r.Context(), identity.SubjectID, id); err != nil {
		h.respondStoreError(w, "Failed to delete drawing", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// respondStoreError logs the full store error and returns a generic 500.
func (h *DrawingHandler) respondStoreError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, storage.ErrNotConfigured) {
		h.logger.Error("storage_not_configured")
		respondJSONError(w, http.StatusInternalServerError, "Storage not configured", "")
		return
	}
	h.logger.Error("store_operation_failed", zap.Error(err))
	respondJSONError(w, http.StatusInternalServerError, message, "storage backend error")
}
