package timeline

import (
	"time"

	"github.com/google/uuid"
)

// EventResponse is the JSON shape of an event.
type EventResponse struct {
	ID         uuid.UUID      `json:"id"`
	CustomerID *uuid.UUID     `json:"customerId,omitempty"`
	LeadID     *uuid.UUID     `json:"leadId,omitempty"`
	Channel    Channel        `json:"channel"`
	Direction  Direction      `json:"direction"`
	Subject    *string        `json:"subject,omitempty"`
	Body       string         `json:"body"`
	Meta       map[string]any `json:"meta"`
	CreatedAt  time.Time      `json:"createdAt"`
}

func ToResponses(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		meta := e.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		out = append(out, EventResponse{
			ID:         e.ID,
			CustomerID: e.CustomerID,
			LeadID:     e.LeadID,
			Channel:    e.Channel,
			Direction:  e.Direction,
			Subject:    e.Subject,
			Body:       e.Body,
			Meta:       meta,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
