// Package storage defines the drawing store contract shared by the Postgres
// and gist backends. Every operation takes the owner as a mandatory filter;
// no method ever looks a drawing up by id alone.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/webboard/webboard-api/internal/models"
)

// ErrNotFound is returned when a drawing does not exist for the given owner.
// A drawing owned by someone else is indistinguishable from one that does not
// exist.
var ErrNotFound = errors.New("drawing not found")

// ErrNotConfigured is returned by a store whose backend configuration is
// missing.
var ErrNotConfigured = errors.New("storage not configured")

// DrawingStore is the owner-scoped persistence interface for drawings.
type DrawingStore interface {
	// Insert stores a new drawing for ownerID and returns it with the
	// store-assigned id and creation time filled in.
	Insert(ctx context.Context, ownerID, ownerEmail, title string, payload json.RawMessage) (*models.Drawing, error)

	// ListByOwner returns summaries of ownerID's drawings, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.DrawingSummary, error)

	// GetByOwner returns the full drawing, or ErrNotFound when it is absent
	// or owned by someone else.
	GetByOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error)

	// DeleteByOwner removes the drawing if ownerID owns it. Zero matches is
	// not an error; delete is idempotent.
	DeleteByOwner(ctx context.Context, ownerID, id string) error
}

// Unconfigured is a DrawingStore placeholder used when the selected backend
// is missing its connection configuration. Every call fails with
// ErrNotConfigured, which handlers surface as a 500 per request instead of
// crashing the process at startup.
type Unconfigured struct{}

func (Unconfigured) Insert(ctx context.Context, ownerID, ownerEmail, title string, payload json.RawMessage) (*models.Drawing, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListByOwner(ctx context.Context, ownerID string) ([]*models.DrawingSummary, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) GetByOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) DeleteByOwner(ctx context.Context, ownerID, id string) error {
	return ErrNotConfigured
}
