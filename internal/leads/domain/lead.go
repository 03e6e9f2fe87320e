package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Lead is a single expressed interest, tied to zero or one customer.
type Lead struct {
	ID                 uuid.UUID
	Source             Source
	Status             Status
	CustomerID         *uuid.UUID
	Name               *string
	Email              *string
	Phone              *string
	RawPayload         Payload
	MissingFields      []MissingField
	QualificationNotes *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Recompute is the only place missing fields are written. It recomputes them
// from the lead's current data and derives the resulting status, returning
// the status the lead had before.
func (l *Lead) Recompute() Status {
	previous := l.Status
	l.MissingFields = ComputeMissing(*l)
	l.Status = DeriveStatus(previous, l.MissingFields)
	return previous
}

// NeedsInfo reports whether the lead is waiting on information from the contact.
func (l *Lead) NeedsInfo() bool {
	return l.Status == StatusNeedsInfo
}

// PhoneNumber returns the lead's canonical phone, or "".
func (l *Lead) PhoneNumber() string {
	if l.Phone == nil {
		return ""
	}
	return *l.Phone
}

// Opportunity is the sales-pipeline object created when a lead qualifies.
type Opportunity struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	LeadID        *uuid.UUID
	Stage         Stage
	ValueEstimate *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Stage is an opportunity's position in the sales pipeline.
type Stage string

const (
	StageNew      Stage = "new"
	StageQuoting  Stage = "quoting"
	StageFollowup Stage = "followup"
	StageWon      Stage = "won"
	StageLost     Stage = "lost"
)

// Optional returns nil for blank values so absent identity fields stay NULL.
func Optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
