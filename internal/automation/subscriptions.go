package automation

import (
	"context"

	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/leads/domain"
)

// RegisterHandlers subscribes the service to lead lifecycle events. New
// leads that already need information get a chase when autoChase is on;
// due chase phases from the job worker run the chase body.
func (s *Service) RegisterHandlers(bus events.Bus, autoChase bool) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCreated)
		if !ok || !autoChase || e.Status != string(domain.StatusNeedsInfo) {
			return nil
		}
		return s.StartChase(ctx, e.LeadID)
	}))

	bus.Subscribe(events.LeadChaseDue{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadChaseDue)
		if !ok {
			return nil
		}
		_, err := s.RunChase(ctx, e.LeadID, e.Phase)
		return err
	}))
}
