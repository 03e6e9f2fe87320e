// Package customers resolves and stores the person behind one or more leads.
package customers

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Status is the lifecycle state of a customer.
type Status string

const (
	StatusProspect Status = "PROSPECT"
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Customer is the identity anchor for a person.
type Customer struct {
	ID           uuid.UUID
	Name         *string
	PrimaryEmail *string
	PrimaryPhone *string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the set of identifying details known about a contact.
type Identity struct {
	Email string
	Phone string
	Name  string
}

// Enrichment fills fields that are currently empty. Nil fields are left alone.
type Enrichment struct {
	Email *string
	Phone *string
	Name  *string
}

func (e Enrichment) empty() bool {
	return e.Email == nil && e.Phone == nil && e.Name == nil
}
