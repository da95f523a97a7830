package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"somnicart/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, userID string) (*domain.RemoteCartRecord, error) {
	const q = `
SELECT user_id, items, shopify_cart_id, updated_at
FROM carts
WHERE user_id = $1
`
	return scanRecord(r.pool.QueryRow(ctx, q, userID))
}

func (r *postgresRepo) Upsert(ctx context.Context, in UpsertInput) (*domain.RemoteCartRecord, error) {
	items, err := json.Marshal(domain.CloneLines(in.Lines))
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	const q = `
INSERT INTO carts (user_id, items, shopify_cart_id, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (user_id) DO UPDATE
SET items = EXCLUDED.items,
    shopify_cart_id = EXCLUDED.shopify_cart_id,
    updated_at = now()
RETURNING user_id, items, shopify_cart_id, updated_at
`
	return scanRecord(r.pool.QueryRow(ctx, q, in.UserID, items, in.RemoteCartHandle))
}

func (r *postgresRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (*domain.RemoteCartRecord, error) {
	var (
		rec    domain.RemoteCartRecord
		items  []byte
		handle *string
	)
	if err := row.Scan(&rec.UserID, &items, &handle, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &rec.Lines); err != nil {
			return nil, fmt.Errorf("decode items for %s: %w", rec.UserID, err)
		}
	}
	rec.Lines = domain.CloneLines(rec.Lines)
	rec.RemoteCartHandle = handle
	return &rec, nil
}
