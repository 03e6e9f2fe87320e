// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_intake_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published after a new lead has been committed.
type LeadCreated struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	CustomerID    *uuid.UUID `json:"customerId,omitempty"`
	Source        string     `json:"source"`
	Status        string     `json:"status"`
	MissingFields []string   `json:"missingFields"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published after a committed status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	From   string    `json:"from"`
	To     string    `json:"to"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadChaseDue is published by the job worker when a chase phase fires.
type LeadChaseDue struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Phase  string    `json:"phase"`
}

func (e LeadChaseDue) EventName() string { return "leads.chase.due" }
