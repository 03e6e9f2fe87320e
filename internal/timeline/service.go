package timeline

import (
	"context"

	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/sanitize"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Store is the persistence the timeline service needs.
type Store interface {
	Insert(ctx context.Context, entry Entry) (Event, error)
	List(ctx context.Context, filter Filter, limit int) ([]Event, error)
}

// Service appends and reads contact events.
type Service struct {
	store Store
}

// NewService creates a timeline service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Log appends an event. Storage failures propagate unchanged so the caller's
// unit of work aborts with them.
func (s *Service) Log(ctx context.Context, entry Entry) (Event, error) {
	if !entry.Channel.Valid() {
		return Event{}, apperr.Validation("unknown contact channel: " + string(entry.Channel))
	}
	if !entry.Direction.Valid() {
		return Event{}, apperr.Validation("unknown contact direction: " + string(entry.Direction))
	}

	entry.Body = sanitize.Text(entry.Body)
	entry.Subject = sanitize.Text(entry.Subject)
	if entry.Meta == nil {
		entry.Meta = map[string]any{}
	}

	return s.store.Insert(ctx, entry)
}

// Timeline returns events matching either id in filter, newest first.
func (s *Service) Timeline(ctx context.Context, filter Filter, limit int) ([]Event, error) {
	if filter.CustomerID == nil && filter.LeadID == nil {
		return nil, apperr.Validation("customer or lead id is required")
	}
	return s.store.List(ctx, filter, clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
