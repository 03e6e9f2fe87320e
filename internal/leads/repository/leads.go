package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const leadColumns = `id, source, status, customer_id, name, email, phone, raw_payload, missing_fields, qualification_notes, created_at, updated_at`

// Create inserts the lead and fills in its id and timestamps.
func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	payload, missing, err := encodeLead(lead)
	if err != nil {
		return err
	}

	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO leads (source, status, customer_id, name, email, phone, raw_payload, missing_fields, qualification_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, string(lead.Source), string(lead.Status), lead.CustomerID, lead.Name, lead.Email, lead.Phone,
		payload, missing, lead.QualificationNotes).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return r.getOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
}

// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return r.getOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id)
}

// LatestNeedsInfoForCustomer returns the customer's newest lead still waiting on information.
func (r *Repository) LatestNeedsInfoForCustomer(ctx context.Context, customerID uuid.UUID) (domain.Lead, error) {
	return r.getOne(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE customer_id = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, customerID, string(domain.StatusNeedsInfo))
}

// Update writes every mutable column of the lead and refreshes updated_at.
func (r *Repository) Update(ctx context.Context, lead *domain.Lead) error {
	payload, missing, err := encodeLead(lead)
	if err != nil {
		return err
	}

	err = db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE leads SET
			status = $2,
			customer_id = $3,
			name = $4,
			email = $5,
			phone = $6,
			raw_payload = $7,
			missing_fields = $8,
			qualification_notes = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, lead.ID, string(lead.Status), lead.CustomerID, lead.Name, lead.Email, lead.Phone,
		payload, missing, lead.QualificationNotes).Scan(&lead.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ListInbox returns open leads (NEW and NEEDS_INFO), newest first, with the total count.
func (r *Repository) ListInbox(ctx context.Context, limit, offset int) ([]domain.Lead, int, error) {
	conn := db.Conn(ctx, r.pool)
	open := []string{string(domain.StatusNew), string(domain.StatusNeedsInfo)}

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE status = ANY($1)`, open).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = ANY($1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, open, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}

	return items, total, nil
}

func (r *Repository) getOne(ctx context.Context, query string, args ...any) (domain.Lead, error) {
	lead, err := scanLead(db.Conn(ctx, r.pool).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead    domain.Lead
		source  string
		status  string
		payload []byte
		missing []string
	)
	if err := row.Scan(
		&lead.ID,
		&source,
		&status,
		&lead.CustomerID,
		&lead.Name,
		&lead.Email,
		&lead.Phone,
		&payload,
		&missing,
		&lead.QualificationNotes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return domain.Lead{}, err
	}

	lead.Source = domain.Source(source)
	lead.Status = domain.Status(status)

	lead.RawPayload = domain.Payload{}
	if len(payload) > 0 {
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&lead.RawPayload); err != nil {
			return domain.Lead{}, err
		}
	}

	lead.MissingFields = make([]domain.MissingField, 0, len(missing))
	for _, field := range missing {
		lead.MissingFields = append(lead.MissingFields, domain.MissingField(field))
	}

	return lead, nil
}

func encodeLead(lead *domain.Lead) ([]byte, []string, error) {
	raw := lead.RawPayload
	if raw == nil {
		raw = domain.Payload{}
	}
	payload, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, err
	}

	missing := make([]string, 0, len(lead.MissingFields))
	for _, field := range lead.MissingFields {
		missing = append(missing, string(field))
	}
	return payload, missing, nil
}
