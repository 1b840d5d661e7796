package cart

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acougue-online/storefront/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Upsert(ctx context.Context, userID, productID string, qty int) error {
	_, err := postgres.Q(ctx, r.DB).Exec(ctx, `
		INSERT INTO cart_items(user_id, product_id, qty)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		userID, productID, qty)
	return err
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) error {
	_, err := postgres.Q(ctx, r.DB).Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID)
	return err
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := postgres.Q(ctx, r.DB).Exec(ctx, `
		DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

func (r *Repo) List(ctx context.Context, userID string) ([]Line, error) {
	rows, err := postgres.Q(ctx, r.DB).Query(ctx, `
		SELECT user_id, product_id, qty, created_at
		FROM cart_items WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.UserID, &l.ProductID, &l.Qty, &l.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
