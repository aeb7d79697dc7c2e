package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/webboard/webboard-api/internal/models"
	"github.com/webboard/webboard-api/internal/storage"
)

// memStore is an in-memory DrawingStore with the same ownership semantics as
// the real backends. Used by handler tests.
type memStore struct {
	mu       sync.Mutex
	drawings map[string]*models.Drawing
	nextID   int
	now      time.Time

	failWith error // when set, every call fails with this error
}

func newMemStore() *memStore {
	return &memStore{
		drawings: make(map[string]*models.Drawing),
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

var _ storage.DrawingStore = (*memStore)(nil)

func (m *memStore) Insert(ctx context.Context, ownerID, ownerEmail, title string, payload json.RawMessage) (*models.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	m.nextID++
	m.now = m.now.Add(time.Minute)
	d := &models.Drawing{
		ID:         fmt.Sprintf("drawing-%d", m.nextID),
		OwnerID:    ownerID,
		OwnerEmail: ownerEmail,
		Title:      title,
		Payload:    append(json.RawMessage(nil), payload...),
		CreatedAt:  m.now,
	}
	m.drawings[d.ID] = d
	return d, nil
}

func (m *memStore) ListByOwner(ctx context.Context, ownerID string) ([]*models.DrawingSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	summaries := []*models.DrawingSummary{}
	for _, d := range m.drawings {
		if d.OwnerID != ownerID {
			continue
		}
		summaries = append(summaries, &models.DrawingSummary{
			ID:        d.ID,
			Title:     d.Title,
			CreatedAt: d.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (m *memStore) GetByOwner(ctx context.Context, ownerID, id string) (*models.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	d, ok := m.drawings[id]
	if !ok || d.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return d, nil
}

func (m *memStore) DeleteByOwner(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return m.failWith
	}

	d, ok := m.drawings[id]
	if ok && d.OwnerID == ownerID {
		delete(m.drawings, id)
	}
	return nil
}
