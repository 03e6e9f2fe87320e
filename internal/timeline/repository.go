package timeline

import (
	"context"
	"encoding/json"

	"lead_intake_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists contact events in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a contact event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, entry Entry) (Event, error) {
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return Event{}, err
	}

	var subject *string
	if entry.Subject != "" {
		subject = &entry.Subject
	}

	// meta is not re-read: the caller already holds it as a Go value.
	event := Event{Meta: entry.Meta}
	err = db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO contact_events (customer_id, lead_id, channel, direction, subject, body, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, customer_id, lead_id, channel, direction, subject, body, created_at
	`, entry.CustomerID, entry.LeadID, string(entry.Channel), string(entry.Direction), subject, entry.Body, metaJSON).Scan(
		&event.ID,
		&event.CustomerID,
		&event.LeadID,
		&event.Channel,
		&event.Direction,
		&event.Subject,
		&event.Body,
		&event.CreatedAt,
	)
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

func (r *Repository) List(ctx context.Context, filter Filter, limit int) ([]Event, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, customer_id, lead_id, channel, direction, subject, body, meta, created_at
		FROM contact_events
		WHERE ($1::uuid IS NOT NULL AND customer_id = $1)
		   OR ($2::uuid IS NOT NULL AND lead_id = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, filter.CustomerID, filter.LeadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// rowScanner is satisfied by pgx.Rows and pgx.Row.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(s rowScanner) (Event, error) {
	var event Event
	var rawMeta []byte
	if err := s.Scan(
		&event.ID,
		&event.CustomerID,
		&event.LeadID,
		&event.Channel,
		&event.Direction,
		&event.Subject,
		&event.Body,
		&rawMeta,
		&event.CreatedAt,
	); err != nil {
		return Event{}, err
	}
	event.Meta = map[string]any{}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &event.Meta); err != nil {
			return Event{}, err
		}
	}
	return event, nil
}
