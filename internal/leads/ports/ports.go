// Package ports defines the interfaces the leads context needs from other
// modules. Implementations are composed in cmd and never imported here.
package ports

import (
	"context"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/timeline"

	"github.com/google/uuid"
)

// CustomerResolver finds or creates the customer behind contact details.
type CustomerResolver interface {
	ResolveOrCreate(ctx context.Context, identity customers.Identity) (customers.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (customers.Customer, error)
}

// EventLogger appends contact events.
type EventLogger interface {
	Log(ctx context.Context, entry timeline.Entry) (timeline.Event, error)
}

// TimelineReader lists contact events.
type TimelineReader interface {
	Timeline(ctx context.Context, filter timeline.Filter, limit int) ([]timeline.Event, error)
}

// Transactor runs fn inside one database transaction carried by ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ChaseStarter schedules the outreach cadence for a lead.
type ChaseStarter interface {
	StartChase(ctx context.Context, leadID uuid.UUID) error
}

// EventPublisher publishes domain events after a unit of work commits.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}
