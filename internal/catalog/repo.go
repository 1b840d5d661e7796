package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acougue-online/storefront/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := postgres.Q(ctx, r.DB).QueryRow(ctx, `
		SELECT id, sku, name, price_cents, stock, available, image_url, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.Available, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	if len(ids) == 0 {
		return map[string]Product{}, nil
	}
	rows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT id, sku, name, price_cents, stock, available, image_url, created_at, updated_at
		FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.Available, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT id, sku, name, price_cents, stock, available, image_url, created_at, updated_at
		FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.PriceCents, &p.Stock, &p.Available, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetKit(ctx context.Context, id string) (*Kit, error) {
	var k Kit
	err := postgres.Q(ctx, r.DB).QueryRow(ctx, `
		SELECT id, name, available, created_at FROM kits WHERE id=$1`, id).
		Scan(&k.ID, &k.Name, &k.Available, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT product_id, qty FROM kit_items WHERE kit_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it KitItem
		if err := rows.Scan(&it.ProductID, &it.Qty); err != nil {
			return nil, err
		}
		k.Items = append(k.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *Repo) ListKits(ctx context.Context) ([]Kit, error) {
	rows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT id, name, available, created_at FROM kits ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*Kit{}
	var order []string
	for rows.Next() {
		var k Kit
		if err := rows.Scan(&k.ID, &k.Name, &k.Available, &k.CreatedAt); err != nil {
			return nil, err
		}
		byID[k.ID] = &k
		order = append(order, k.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return []Kit{}, nil
	}

	itemRows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT kit_id, product_id, qty FROM kit_items WHERE kit_id = ANY($1::uuid[])`, order)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var kitID string
		var it KitItem
		if err := itemRows.Scan(&kitID, &it.ProductID, &it.Qty); err != nil {
			return nil, err
		}
		byID[kitID].Items = append(byID[kitID].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	out := make([]Kit, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}
