// Package inbound applies a customer's SMS reply to their open lead.
package inbound

import (
	"context"
	"errors"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/postcode"

	"github.com/google/uuid"
)

// Repository is the persistence the reply handler needs.
type Repository interface {
	LatestNeedsInfoForCustomer(ctx context.Context, customerID uuid.UUID) (domain.Lead, error)
	repository.LeadWriter
}

// Reply is one inbound message as delivered by the provider.
type Reply struct {
	From      string
	Body      string
	MessageID string
}

// Outcome describes what the reply changed.
type Outcome struct {
	LeadID        uuid.UUID
	CustomerID    uuid.UUID
	Status        domain.Status
	MissingFields []domain.MissingField
	Extracted     map[string]string
	LeadCreated   bool
}

// Deps wires the reply handler.
type Deps struct {
	Repo       Repository
	Tx         ports.Transactor
	Customers  ports.CustomerResolver
	Events     ports.EventLogger
	Publisher  ports.EventPublisher
	Normalizer *phone.Normalizer
}

// Service handles inbound replies.
type Service struct {
	repo       Repository
	tx         ports.Transactor
	customers  ports.CustomerResolver
	events     ports.EventLogger
	publisher  ports.EventPublisher
	normalizer *phone.Normalizer
}

// New creates the reply handler.
func New(deps Deps) *Service {
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = phone.NewNormalizer("")
	}
	return &Service{
		repo:       deps.Repo,
		tx:         deps.Tx,
		customers:  deps.Customers,
		events:     deps.Events,
		publisher:  deps.Publisher,
		normalizer: normalizer,
	}
}

// HandleReply attaches the reply to the sender's newest NEEDS_INFO lead,
// creating one when none is open, and captures any postcode it contains.
// The inbound message is always logged.
func (s *Service) HandleReply(ctx context.Context, reply Reply) (Outcome, error) {
	from := s.normalizer.Normalize(reply.From)
	if from == "" {
		return Outcome{}, apperr.Validation("sender phone number is required")
	}

	var (
		out      Outcome
		previous domain.Status
		current  domain.Status
		leadID   uuid.UUID
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.ResolveOrCreate(ctx, customers.Identity{Phone: from})
		if err != nil {
			return err
		}

		lead, created, err := s.openLead(ctx, customer, from)
		if err != nil {
			return err
		}
		previous = lead.Status

		extracted := map[string]string{}
		if domain.Contains(lead.MissingFields, domain.MissingPostcode) {
			if code := postcode.Extract(reply.Body); code != "" {
				if lead.RawPayload == nil {
					lead.RawPayload = domain.Payload{}
				}
				lead.RawPayload.Merge(map[string]any{domain.PayloadPostcode: code})
				extracted[domain.PayloadPostcode] = code
				lead.Recompute()
				if err := s.repo.Update(ctx, &lead); err != nil {
					return err
				}
			}
		}

		if _, err := s.events.Log(ctx, timeline.Entry{
			CustomerID: &customer.ID,
			LeadID:     &lead.ID,
			Channel:    timeline.ChannelSMS,
			Direction:  timeline.DirectionInbound,
			Body:       reply.Body,
			Meta: map[string]any{
				"message_sid": reply.MessageID,
				"from":        from,
			},
		}); err != nil {
			return err
		}

		leadID = lead.ID
		current = lead.Status
		out = Outcome{
			LeadID:        lead.ID,
			CustomerID:    customer.ID,
			Status:        lead.Status,
			MissingFields: lead.MissingFields,
			Extracted:     extracted,
			LeadCreated:   created,
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if previous != current && s.publisher != nil {
		s.publisher.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			From:      string(previous),
			To:        string(current),
		})
	}
	return out, nil
}

func (s *Service) openLead(ctx context.Context, customer customers.Customer, from string) (domain.Lead, bool, error) {
	lead, err := s.repo.LatestNeedsInfoForCustomer(ctx, customer.ID)
	if err == nil {
		return lead, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, false, err
	}

	phoneNumber := from
	if customer.PrimaryPhone != nil && *customer.PrimaryPhone != "" {
		phoneNumber = *customer.PrimaryPhone
	}
	lead = domain.Lead{
		Source:     domain.SourceOther,
		CustomerID: &customer.ID,
		Name:       customer.Name,
		Email:      customer.PrimaryEmail,
		Phone:      &phoneNumber,
		RawPayload: domain.Payload{},
	}
	lead.Recompute()
	if err := s.repo.Create(ctx, &lead); err != nil {
		return domain.Lead{}, false, err
	}

	if _, err := s.events.Log(ctx, timeline.Entry{
		CustomerID: &customer.ID,
		LeadID:     &lead.ID,
		Channel:    timeline.ChannelSystem,
		Direction:  timeline.DirectionInternal,
		Body:       "Lead created from inbound sms",
		Meta:       map[string]any{"source": string(domain.SourceOther)},
	}); err != nil {
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}
