package repository

import (
	"context"
	"errors"

	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const opportunityColumns = `id, customer_id, lead_id, stage, value_estimate, created_at, updated_at`

// CreateOpportunity inserts an opportunity and fills in its id and timestamps.
func (r *Repository) CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	stage := opp.Stage
	if stage == "" {
		stage = domain.StageNew
	}
	opp.Stage = stage

	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO opportunities (customer_id, lead_id, stage, value_estimate)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, opp.CustomerID, opp.LeadID, string(stage), opp.ValueEstimate).Scan(&opp.ID, &opp.CreatedAt, &opp.UpdatedAt)
}

// LatestOpportunityForLead returns the newest opportunity created from the lead.
func (r *Repository) LatestOpportunityForLead(ctx context.Context, leadID uuid.UUID) (domain.Opportunity, error) {
	var (
		opp   domain.Opportunity
		stage string
	)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+opportunityColumns+`
		FROM opportunities
		WHERE lead_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, leadID).Scan(
		&opp.ID,
		&opp.CustomerID,
		&opp.LeadID,
		&stage,
		&opp.ValueEstimate,
		&opp.CreatedAt,
		&opp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Opportunity{}, ErrOpportunityNotFound
	}
	if err != nil {
		return domain.Opportunity{}, err
	}
	opp.Stage = domain.Stage(stage)
	return opp, nil
}
