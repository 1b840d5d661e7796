package catalog

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("catalog: not found")

type Product struct {
	ID         string    `json:"id"`
	SKU        string    `json:"sku"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	Stock      int       `json:"stock"`
	Available  bool      `json:"available"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Kit is a named bundle of products sold as one selection. It carries no
// price of its own: checkout expands it to product lines priced at current
// product prices.
type Kit struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Available bool      `json:"available"`
	Items     []KitItem `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

type KitItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Store is the authoritative price/availability source for cart and checkout.
type Store interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	// GetProducts returns the subset of ids that exist, keyed by id.
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetKit(ctx context.Context, id string) (*Kit, error)
	ListKits(ctx context.Context) ([]Kit, error)
}
