package repository

import (
	"context"
	"errors"
	"time"

	"lead_intake_backend/platform/db"

	"github.com/jackc/pgx/v5"
)

// KeyExists reports whether an idempotency key has already been claimed.
func (r *Repository) KeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM idempotency_keys WHERE key = $1)`, key).Scan(&exists)
	return exists, err
}

// ClaimKey records the key. It returns false when another writer claimed it
// first; the surrounding transaction stays usable in that case.
func (r *Repository) ClaimKey(ctx context.Context, key string) (bool, error) {
	var id string
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO idempotency_keys (key) VALUES ($1)
		ON CONFLICT (key) DO NOTHING
		RETURNING id::text
	`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteKeysBefore removes keys claimed before the cutoff and reports how many went.
func (r *Repository) DeleteKeysBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
