// Package intake turns webhook deliveries and manual entries into leads.
// Each delivery is guarded by an idempotency key so retries never create a
// second lead.
package intake

import (
	"context"
	"fmt"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"
	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/sanitize"
)

// Repository is the persistence intake needs.
type Repository interface {
	repository.IdempotencyStore
	repository.LeadWriter
}

// Result describes one webhook delivery. Lead is nil for duplicates.
type Result struct {
	Lead           *domain.Lead
	Duplicate      bool
	IdempotencyKey string
}

// ManualInput is a lead entered by staff. Explicit contact fields win over
// the payload aliases.
type ManualInput struct {
	Source  string
	Name    string
	Email   string
	Phone   string
	Payload domain.Payload
}

// Deps wires the intake service.
type Deps struct {
	Repo       Repository
	Tx         ports.Transactor
	Customers  ports.CustomerResolver
	Events     ports.EventLogger
	Publisher  ports.EventPublisher
	Normalizer *phone.Normalizer
	Metrics    *metrics.Metrics
	Log        *logger.Logger
}

// Service runs the intake pipeline.
type Service struct {
	repo       Repository
	tx         ports.Transactor
	customers  ports.CustomerResolver
	events     ports.EventLogger
	publisher  ports.EventPublisher
	normalizer *phone.Normalizer
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// New creates the intake service.
func New(deps Deps) *Service {
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = phone.NewNormalizer("")
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:       deps.Repo,
		tx:         deps.Tx,
		customers:  deps.Customers,
		events:     deps.Events,
		publisher:  deps.Publisher,
		normalizer: normalizer,
		metrics:    deps.Metrics,
		log:        log,
	}
}

// IntakeFromWebhook records one webhook delivery. A delivery whose key was
// already claimed returns a duplicate result and touches nothing.
func (s *Service) IntakeFromWebhook(ctx context.Context, source domain.Source, payload domain.Payload, externalID string) (Result, error) {
	key := domain.IdempotencyKey(source, payload, externalID)

	exists, err := s.repo.KeyExists(ctx, key)
	if err != nil {
		s.metrics.IncIntake(string(source), "error")
		return Result{}, err
	}
	if exists {
		s.metrics.IncIntake(string(source), "duplicate")
		return Result{Duplicate: true, IdempotencyKey: key}, nil
	}

	var (
		lead      domain.Lead
		duplicate bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		claimed, err := s.repo.ClaimKey(ctx, key)
		if err != nil {
			return err
		}
		if !claimed {
			duplicate = true
			return nil
		}

		contact := domain.ExtractContact(payload)
		lead, err = s.create(ctx, source, contact, payload)
		if err != nil {
			return err
		}

		return s.logEvent(ctx, lead, fmt.Sprintf("Lead received from %s", source), map[string]any{
			"source":          string(source),
			"idempotency_key": key,
		})
	})
	if err != nil {
		s.metrics.IncIntake(string(source), "error")
		return Result{}, err
	}
	if duplicate {
		s.metrics.IncIntake(string(source), "duplicate")
		return Result{Duplicate: true, IdempotencyKey: key}, nil
	}

	s.metrics.IncIntake(string(source), "created")
	s.published(ctx, lead)
	return Result{Lead: &lead, IdempotencyKey: key}, nil
}

// CreateManual records a staff-entered lead. It skips the idempotency gate.
func (s *Service) CreateManual(ctx context.Context, in ManualInput) (domain.Lead, error) {
	source, err := domain.ParseSource(in.Source)
	if err != nil {
		return domain.Lead{}, apperr.Validation(err.Error())
	}

	payload := in.Payload
	if payload == nil {
		payload = domain.Payload{}
	}

	contact := domain.ExtractContact(payload)
	if v := sanitize.Text(in.Name); v != "" {
		contact.Name = v
	}
	if v := sanitize.Email(in.Email); v != "" {
		contact.Email = v
	}
	if v := in.Phone; v != "" {
		contact.Phone = v
	}

	var lead domain.Lead
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		lead, err = s.create(ctx, source, contact, payload)
		if err != nil {
			return err
		}
		return s.logEvent(ctx, lead, fmt.Sprintf("Lead created manually from %s", source), map[string]any{
			"source": string(source),
		})
	})
	if err != nil {
		s.metrics.IncIntake(string(source), "error")
		return domain.Lead{}, err
	}

	s.metrics.IncIntake(string(source), "created")
	s.published(ctx, lead)
	return lead, nil
}

func (s *Service) create(ctx context.Context, source domain.Source, contact domain.Contact, payload domain.Payload) (domain.Lead, error) {
	canonical := s.normalizer.Normalize(contact.Phone)
	email := sanitize.Email(contact.Email)
	name := sanitize.Text(contact.Name)

	customer, err := s.customers.ResolveOrCreate(ctx, customers.Identity{Email: email, Phone: canonical, Name: name})
	if err != nil {
		return domain.Lead{}, err
	}

	lead := domain.Lead{
		Source:     source,
		CustomerID: &customer.ID,
		Name:       domain.Optional(name),
		Email:      domain.Optional(email),
		Phone:      domain.Optional(canonical),
		RawPayload: payload.Clone(),
	}
	lead.Recompute()

	if err := s.repo.Create(ctx, &lead); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (s *Service) logEvent(ctx context.Context, lead domain.Lead, body string, meta map[string]any) error {
	_, err := s.events.Log(ctx, timeline.Entry{
		CustomerID: lead.CustomerID,
		LeadID:     &lead.ID,
		Channel:    timeline.ChannelSystem,
		Direction:  timeline.DirectionInternal,
		Body:       body,
		Meta:       meta,
	})
	return err
}

// published announces a committed lead. Subscribers such as the chase
// scheduler react asynchronously; their failures never undo the intake.
func (s *Service) published(ctx context.Context, lead domain.Lead) {
	if s.publisher == nil {
		return
	}
	missing := make([]string, 0, len(lead.MissingFields))
	for _, f := range lead.MissingFields {
		missing = append(missing, string(f))
	}
	s.publisher.Publish(ctx, events.LeadCreated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		CustomerID:    lead.CustomerID,
		Source:        string(lead.Source),
		Status:        string(lead.Status),
		MissingFields: missing,
	})
	s.log.Debug("intake: lead created", "leadId", lead.ID, "status", lead.Status)
}
