// Package timeline is the append-only contact event log shared by every
// lead and customer workflow.
package timeline

import (
	"time"

	"github.com/google/uuid"
)

// Channel is the medium an interaction happened on.
type Channel string

const (
	ChannelSMS        Channel = "sms"
	ChannelEmail      Channel = "email"
	ChannelPhone      Channel = "phone"
	ChannelNote       Channel = "note"
	ChannelSystem     Channel = "system"
	ChannelAutomation Channel = "automation"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelEmail, ChannelPhone, ChannelNote, ChannelSystem, ChannelAutomation:
		return true
	}
	return false
}

// Direction tells whether an interaction came in, went out, or stayed internal.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
	DirectionInternal Direction = "internal"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionInternal:
		return true
	}
	return false
}

// Event is one immutable timeline record.
type Event struct {
	ID         uuid.UUID
	CustomerID *uuid.UUID
	LeadID     *uuid.UUID
	Channel    Channel
	Direction  Direction
	Subject    *string
	Body       string
	Meta       map[string]any
	CreatedAt  time.Time
}

// Entry is the input for appending an event.
type Entry struct {
	CustomerID *uuid.UUID
	LeadID     *uuid.UUID
	Channel    Channel
	Direction  Direction
	Subject    string
	Body       string
	Meta       map[string]any
}

// Filter selects events attached to a customer, a lead, or either.
type Filter struct {
	CustomerID *uuid.UUID
	LeadID     *uuid.UUID
}
