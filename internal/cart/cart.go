package cart

import (
	"context"
	"time"
)

// Line is one product+quantity pairing in a user's in-progress selection.
// Unique per (user, product); destroyed on removal, clear, or checkout.
type Line struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Qty       int       `json:"qty"`
	AddedAt   time.Time `json:"added_at"`
}

// Item is a line joined with current catalog data, as returned to clients.
type Item struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int    `json:"unit_price_cents"`
	ImageURL       string `json:"image_url,omitempty"`
	Qty            int    `json:"qty"`
}

type Store interface {
	// Upsert adds qty to an existing (user, product) line or creates it.
	Upsert(ctx context.Context, userID, productID string, qty int) error
	// Remove deletes the line; absent lines are a no-op, not an error.
	Remove(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
	// List returns the user's lines in insertion order.
	List(ctx context.Context, userID string) ([]Line, error)
}
