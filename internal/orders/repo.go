package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acougue-online/storefront/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, o *Order) error {
	q := postgres.Q(ctx, r.DB)
	_, err := q.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, status, total_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.TotalCents, o.CreatedAt)
	if postgres.IsUniqueViolation(err, "orders_order_number_key") {
		return fmt.Errorf("order number %s: %w", o.OrderNumber, ErrDuplicateOrderNumber)
	}
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, name, unit_price_cents, qty)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, o.ID, it.ProductID, it.Name, it.UnitPriceCents, it.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	q := postgres.Q(ctx, r.DB)
	var o Order
	err := q.QueryRow(ctx, `
		SELECT id, order_number, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, name, unit_price_cents, qty
		FROM order_items WHERE order_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Qty); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	q := postgres.Q(ctx, r.DB)
	rows, err := q.Query(ctx, `
		SELECT id, order_number, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]*Order{}
	var order []string
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Items = []OrderItem{}
		byID[o.ID] = &o
		order = append(order, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return []Order{}, nil
	}

	itemRows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, name, unit_price_cents, qty
		FROM order_items WHERE order_id = ANY($1::uuid[])`, order)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it OrderItem
		if err := itemRows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.UnitPriceCents, &it.Qty); err != nil {
			return nil, err
		}
		byID[it.OrderID].Items = append(byID[it.OrderID].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	out := make([]Order, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	ct, err := postgres.Q(ctx, r.DB).Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, from, to)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
