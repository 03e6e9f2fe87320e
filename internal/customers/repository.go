package customers

import (
	"context"
	"errors"

	"lead_intake_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerColumns = `id, name, primary_email, primary_phone, status, created_at, updated_at`

// Repository persists customers in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a customer repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Customer, error) {
	return r.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *Repository) FindByPhone(ctx context.Context, phone string) (Customer, error) {
	return r.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE primary_phone = $1`, phone)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (Customer, error) {
	return r.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE lower(primary_email) = lower($1)`, email)
}

// Insert creates a customer unless the phone or email is already taken.
// It reports false, without error, when a unique index rejected the row.
func (r *Repository) Insert(ctx context.Context, identity Identity) (Customer, bool, error) {
	customer, err := r.getOne(ctx, `
		INSERT INTO customers (name, primary_email, primary_phone, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING `+customerColumns,
		nullable(identity.Name), nullable(identity.Email), nullable(identity.Phone), string(StatusProspect))
	if errors.Is(err, ErrNotFound) {
		return Customer{}, false, nil
	}
	if err != nil {
		return Customer{}, false, err
	}
	return customer, true, nil
}

// Enrich fills empty columns only; present values are never overwritten.
func (r *Repository) Enrich(ctx context.Context, id uuid.UUID, e Enrichment) (Customer, error) {
	return r.getOne(ctx, `
		UPDATE customers SET
			primary_email = COALESCE(primary_email, $2),
			primary_phone = COALESCE(primary_phone, $3),
			name = COALESCE(name, $4),
			updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, e.Email, e.Phone, e.Name)
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (Customer, error) {
	var c Customer
	err := db.Conn(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.Name,
		&c.PrimaryEmail,
		&c.PrimaryPhone,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrNotFound
	}
	if err != nil {
		return Customer{}, err
	}
	return c, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
