// Package repository persists leads, opportunities and idempotency keys.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// ErrOpportunityNotFound is returned when a lead has no opportunity yet.
var ErrOpportunityNotFound = errors.New("opportunity not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}
