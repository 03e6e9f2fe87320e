// Package transport holds the JSON request and response shapes of the leads
// HTTP API.
package transport

import (
	"time"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/management"
	"lead_intake_backend/internal/timeline"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Source  string         `json:"source" validate:"required,lead_source"`
	Name    string         `json:"name,omitempty" validate:"omitempty,max=200"`
	Email   string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string         `json:"phone,omitempty" validate:"omitempty,phonelike"`
	Payload map[string]any `json:"payload,omitempty"`
}

type UpdateLeadRequest struct {
	Name               *string        `json:"name,omitempty" validate:"omitempty,max=200"`
	Email              *string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone              *string        `json:"phone,omitempty" validate:"omitempty,phonelike"`
	RawPayload         map[string]any `json:"rawPayload,omitempty"`
	QualificationNotes *string        `json:"qualificationNotes,omitempty" validate:"omitempty,max=4000"`
}

func (r UpdateLeadRequest) Patch() management.Patch {
	return management.Patch{
		Name:               r.Name,
		Email:              r.Email,
		Phone:              r.Phone,
		RawPayload:         r.RawPayload,
		QualificationNotes: r.QualificationNotes,
	}
}

type DisqualifyRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=4000"`
}

type InboxQuery struct {
	Limit  int `form:"limit" validate:"min=0"`
	Offset int `form:"offset" validate:"min=0"`
}

// Response DTOs
type LeadResponse struct {
	ID                 uuid.UUID      `json:"id"`
	Source             domain.Source  `json:"source"`
	Status             domain.Status  `json:"status"`
	CustomerID         *uuid.UUID     `json:"customerId"`
	Name               *string        `json:"name"`
	Email              *string        `json:"email"`
	Phone              *string        `json:"phone"`
	RawPayload         map[string]any `json:"rawPayload"`
	MissingFields      []string       `json:"missingFields"`
	QualificationNotes *string        `json:"qualificationNotes,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// IntakeResponse answers a webhook delivery. A duplicate carries only Status
// and Message; the lead fields are set for a new lead.
type IntakeResponse struct {
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	LeadID         *uuid.UUID `json:"leadId,omitempty"`
	LeadStatus     string     `json:"leadStatus,omitempty"`
	MissingFields  *[]string  `json:"missingFields,omitempty"`
	IdempotencyKey string     `json:"idempotencyKey"`
}

const (
	IntakeStatusCreated   = "created"
	IntakeStatusDuplicate = "duplicate"

	msgDuplicateDelivery = "lead already received"
)

type CustomerSummary struct {
	ID     uuid.UUID        `json:"id"`
	Name   *string          `json:"name"`
	Email  *string          `json:"email"`
	Phone  *string          `json:"phone"`
	Status customers.Status `json:"status"`
}

type OpportunityResponse struct {
	ID            uuid.UUID    `json:"id"`
	CustomerID    uuid.UUID    `json:"customerId"`
	LeadID        *uuid.UUID   `json:"leadId,omitempty"`
	Stage         domain.Stage `json:"stage"`
	ValueEstimate *float64     `json:"valueEstimate,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type LeadDetailResponse struct {
	Lead        LeadResponse             `json:"lead"`
	Customer    *CustomerSummary         `json:"customer,omitempty"`
	Timeline    []timeline.EventResponse `json:"timeline"`
	Opportunity *OpportunityResponse     `json:"opportunity,omitempty"`
}

type QualifyResponse struct {
	Lead        LeadResponse        `json:"lead"`
	Opportunity OpportunityResponse `json:"opportunity"`
	Created     bool                `json:"created"`
}

type RequestInfoResponse struct {
	Lead           LeadResponse `json:"lead"`
	ChaseScheduled bool         `json:"chaseScheduled"`
}

type InboxResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
