package repository

import (
	"context"

	"lead_intake_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// LeadReader loads leads.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	LatestNeedsInfoForCustomer(ctx context.Context, customerID uuid.UUID) (domain.Lead, error)
	ListInbox(ctx context.Context, limit, offset int) ([]domain.Lead, int, error)
}

// LeadWriter persists lead mutations.
type LeadWriter interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
}

// IdempotencyStore guards webhook deliveries.
type IdempotencyStore interface {
	KeyExists(ctx context.Context, key string) (bool, error)
	ClaimKey(ctx context.Context, key string) (bool, error)
}

// OpportunityStore persists opportunities.
type OpportunityStore interface {
	CreateOpportunity(ctx context.Context, opp *domain.Opportunity) error
	LatestOpportunityForLead(ctx context.Context, leadID uuid.UUID) (domain.Opportunity, error)
}

var (
	_ LeadReader       = (*Repository)(nil)
	_ LeadWriter       = (*Repository)(nil)
	_ IdempotencyStore = (*Repository)(nil)
	_ OpportunityStore = (*Repository)(nil)
)
