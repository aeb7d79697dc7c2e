package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/storage"
)

// DrawingRepository is the canonical Postgres drawing store. Every query
// filters by owner_id alongside the drawing id.
type DrawingRepository struct {
	db *DB
}

// NewDrawingRepository creates a new drawing repository
func NewDrawingRepository(db *DB) *DrawingRepository {
	return &DrawingRepository{db: db}
}

var _ storage.DrawingStore = (*DrawingRepository)(nil)

// Insert stores a new drawing and returns it with id and created_at assigned.
func (r *DrawingRepository) Insert(ctx context.Context, ownerID, ownerEmail, title string, payload json.RawMessage) (*models.Drawing, error) {
	query := `
		INSERT INTO drawings (id, owner_id, owner_email, title, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	drawing := &models.Drawing{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		OwnerEmail: ownerEmail,
		Title:      title,
		Payload:    payload,
	}

	err := r.db.QueryRowContext(ctx, query,
		drawing.ID,
		drawing.OwnerID,
		drawing.OwnerEmail,
		drawing.Title,
		[]byte(payload),
		time.Now().UTC(),
	).Scan(&drawing.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to insert drawing: %w", err)
	}

	return drawing, nil
}

// ListByOwner returns summaries of the owner's drawings, newest first.
func (r *DrawingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.DrawingSummary, error) {
	query := `
		SELECT id, title, created_at
		FROM drawings
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drawings: %w", err)
	}
	defer rows.Close()

	summaries := []*models.DrawingSummary{}
	for rows.Next() {
		s := &models.DrawingSummary{}
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan drawing summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drawings: %w", err)
	}

	return summaries, nil
}

// GetByOwner returns the full drawing, or storage.ErrNotFound when absent or
// owned by a different caller.
func (r *DrawingRepository) GetByOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	// Non-UUID ids cannot exist in this backend.
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrNotFound
	}

	query := `
		SELECT id, owner_id, owner_email, title, payload, created_at
		FROM drawings
		WHERE id = $1 AND owner_id = $2
	`

	drawing := &models.Drawing{}
	var payload []byte

	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&drawing.ID,
		&drawing.OwnerID,
		&drawing.OwnerEmail,
		&drawing.Title,
		&payload,
		&drawing.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drawing: %w", err)
	}

	drawing.Payload = json.RawMessage(payload)
	return drawing, nil
}

// DeleteByOwner removes the drawing if owned by the caller. Zero rows matched
// is success; delete is idempotent.
func (r *DrawingRepository) DeleteByOwner(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	query := `DELETE FROM drawings WHERE id = $1 AND owner_id = $2`

	if _, err := r.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return fmt.Errorf("failed to delete drawing: %w", err)
	}

	return nil
}
