package cart

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/acougue-online/storefront/internal/auth"
	"github.com/acougue-online/storefront/internal/catalog"
)

// Service owns cart mutation rules. Mutations hard-fail without a user;
// listing soft-fails to an empty result so anonymous visitors can render an
// empty cart.
type Service struct {
	Store   Store
	Catalog catalog.Store
	Logger  *zap.Logger
}

// AddItem upserts a line for an existing product. A non-positive quantity is
// equivalent to removing the line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) error {
	if userID == "" {
		return auth.ErrUnauthenticated
	}
	if qty <= 0 {
		return s.Store.Remove(ctx, userID, productID)
	}
	if _, err := s.Catalog.GetProduct(ctx, productID); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	if err := s.Store.Upsert(ctx, userID, productID, qty); err != nil {
		return fmt.Errorf("add to cart: %w", err)
	}
	s.Logger.Debug("cart line upserted",
		zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("qty", qty))
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) error {
	if userID == "" {
		return auth.ErrUnauthenticated
	}
	if err := s.Store.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("remove from cart: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return auth.ErrUnauthenticated
	}
	if err := s.Store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Items returns cart lines joined with current product data. Lines whose
// product has disappeared from the catalog are omitted.
func (s *Service) Items(ctx context.Context, userID string) ([]Item, error) {
	if userID == "" {
		return []Item{}, nil
	}
	lines, err := s.Store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	if len(lines) == 0 {
		return []Item{}, nil
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	prods, err := s.Catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	out := make([]Item, 0, len(lines))
	for _, l := range lines {
		p, ok := prods[l.ProductID]
		if !ok {
			s.Logger.Warn("cart line references missing product",
				zap.String("user_id", userID), zap.String("product_id", l.ProductID))
			continue
		}
		out = append(out, Item{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			ImageURL:       p.ImageURL,
			Qty:            l.Qty,
		})
	}
	return out, nil
}
