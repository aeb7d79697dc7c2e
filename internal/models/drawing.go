package models

import (
	"encoding/json"
	"time"
)

// Drawing is a stored drawing. OwnerID is set once at creation from the
// authenticated caller and never changes; every read and delete is filtered
// by id AND owner. The owner fields are deliberately excluded from JSON:
// only the owner can fetch a drawing, so responses never need to restate
// who owns it.
type Drawing struct {
	ID         string          `json:"id"`
	OwnerID    string          `json:"-"`
	OwnerEmail string          `json:"-"`
	Title      string          `json:"title"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// DrawingSummary is the listing projection of a drawing (no payload).
type DrawingSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}
