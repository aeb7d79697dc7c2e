// Package giststore stores drawings as private GitHub gists. It is the
// degraded, non-authoritative alternate to the Postgres backend: ownership is
// a tag match on the gist description rather than an indexed equality
// constraint, and listing is a linear scan over the token's gists. It must
// only be selected deliberately via STORAGE_BACKEND=gist.
package giststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/storage"
)

const (
	defaultBaseURL    = "https://api.github.com"
	descriptionPrefix = "WebBoard Drawing - "
	drawingFileName   = "drawing.json"
)

// Store implements storage.DrawingStore on top of the GitHub gists API.
type Store struct {
	token   string
	baseURL string
	client  *http.Client
}

// New creates a gist-backed store authenticated with token.
func New(token string) *Store {
	return &Store{
		token:   token,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL overrides the GitHub API base URL. Used in tests.
func (s *Store) WithBaseURL(url string) *Store {
	s.baseURL = strings.TrimRight(url, "/")
	return s
}

var _ storage.DrawingStore = (*Store)(nil)

// gistFile mirrors the files entry of the gists API.
type gistFile struct {
	Content string `json:"content"`
}

type gist struct {
	ID          string              `json:"id"`
	Description string              `json:"description"`
	Files       map[string]gistFile `json:"files"`
	CreatedAt   time.Time           `json:"created_at"`
}

// drawingDocument is the drawing.json payload stored inside each gist.
type drawingDocument struct {
	Title      string          `json:"title"`
	OwnerID    string          `json:"ownerId"`
	OwnerEmail string          `json:"ownerEmail"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// description encodes the owner tag the way the listing scan expects it.
func description(ownerID, title string) string {
	return fmt.Sprintf("%s%s (User: %s)", descriptionPrefix, title, ownerID)
}

// parseDescription extracts the title and owner tag from a gist description.
// Returns ok=false for gists that are not WebBoard drawings.
func parseDescription(desc string) (title, ownerID string, ok bool) {
	if !strings.HasPrefix(desc, descriptionPrefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(desc, descriptionPrefix)
	idx := strings.LastIndex(rest, " (User: ")
	if idx < 0 || !strings.HasSuffix(rest, ")") {
		return "", "", false
	}
	title = rest[:idx]
	ownerID = strings.TrimSuffix(rest[idx+len(" (User: "):], ")")
	if ownerID == "" {
		return "", "", false
	}
	return title, ownerID, true
}

// Insert stores the drawing as a new private gist.
func (s *Store) Insert(ctx context.Context, ownerID, ownerEmail, title string, payload json.RawMessage) (*models.Drawing, error) {
	if s.token == "" {
		return nil, storage.ErrNotConfigured
	}

	now := time.Now().UTC()
	doc := drawingDocument{
		Title:      title,
		OwnerID:    ownerID,
		OwnerEmail: ownerEmail,
		Payload:    payload,
		CreatedAt:  now,
	}
	content, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal drawing document: %w", err)
	}

	body := map[string]any{
		"description": description(ownerID, title),
		"public":      false,
		"files": map[string]any{
			drawingFileName: map[string]string{"content": string(content)},
		},
	}

	var created gist
	if err := s.do(ctx, http.MethodPost, "/gists", body, http.StatusCreated, &created); err != nil {
		return nil, fmt.Errorf("failed to create gist: %w", err)
	}

	createdAt := created.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	return &models.Drawing{
		ID:         created.ID,
		OwnerID:    ownerID,
		OwnerEmail: ownerEmail,
		Title:      title,
		Payload:    payload,
		CreatedAt:  createdAt,
	}, nil
}

// ListByOwner scans the token's gists for drawings tagged with ownerID,
// newest first. Linear in the total number of gists.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*models.DrawingSummary, error) {
	if s.token == "" {
		return nil, storage.ErrNotConfigured
	}

	var gists []gist
	if err := s.do(ctx, http.MethodGet, "/gists?per_page=100", nil, http.StatusOK, &gists); err != nil {
		return nil, fmt.Errorf("failed to list gists: %w", err)
	}

	summaries := []*models.DrawingSummary{}
	for _, g := range gists {
		title, owner, ok := parseDescription(g.Description)
		if !ok || owner != ownerID {
			continue
		}
		summaries = append(summaries, &models.DrawingSummary{
			ID:        g.ID,
			Title:     title,
			CreatedAt: g.CreatedAt,
		})
	}

	// The gists API returns newest first already; keep the guarantee explicit
	// against out-of-order pages.
	for i := 1; i < len(summaries); i++ {
		for j := i; j > 0 && summaries[j].CreatedAt.After(summaries[j-1].CreatedAt); j-- {
			summaries[j], summaries[j-1] = summaries[j-1], summaries[j]
		}
	}

	return summaries, nil
}

// GetByOwner fetches the gist and re-checks the owner tag, both on the
// description and inside the stored document, before returning it.
func (s *Store) GetByOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	if s.token == "" {
		return nil, storage.ErrNotConfigured
	}

	g, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	_, owner, ok := parseDescription(g.Description)
	if !ok || owner != ownerID {
		return nil, storage.ErrNotFound
	}

	file, ok := g.Files[drawingFileName]
	if !ok {
		return nil, storage.ErrNotFound
	}

	var doc drawingDocument
	if err := json.Unmarshal([]byte(file.Content), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse drawing document: %w", err)
	}
	if doc.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = g.CreatedAt
	}

	return &models.Drawing{
		ID:         g.ID,
		OwnerID:    doc.OwnerID,
		OwnerEmail: doc.OwnerEmail,
		Title:      doc.Title,
		Payload:    doc.Payload,
		CreatedAt:  createdAt,
	}, nil
}

// DeleteByOwner deletes the gist if the owner tag matches. A missing gist or
// a foreign owner tag is a silent no-op.
func (s *Store) DeleteByOwner(ctx context.Context, ownerID, id string) error {
	if s.token == "" {
		return storage.ErrNotConfigured
	}

	g, err := s.fetch(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	if _, owner, ok := parseDescription(g.Description); !ok || owner != ownerID {
		return nil
	}

	if err := s.do(ctx, http.MethodDelete, "/gists/"+id, nil, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to delete gist: %w", err)
	}
	return nil
}

// fetch retrieves a single gist, mapping 404 to storage.ErrNotFound.
func (s *Store) fetch(ctx context.Context, id string) (*gist, error) {
	var g gist
	if err := s.do(ctx, http.MethodGet, "/gists/"+id, nil, http.StatusOK, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// do performs one gists API call. A 404 response maps to storage.ErrNotFound;
// any other unexpected status is a store error.
func (s *Store) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gists API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return storage.ErrNotFound
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("gists API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gists API response: %w", err)
		}
	}
	return nil
}
