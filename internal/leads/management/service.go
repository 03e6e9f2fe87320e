// Package management handles reading and moving leads through their
// lifecycle once they exist: detail, partial update, qualify, disqualify,
// request-info and the open inbox.
package management

import (
	"context"
	"errors"
	"fmt"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInboxLimit = 100
	MaxInboxLimit     = 1000
	detailEventLimit  = 50
)

// Repository defines the data access interface needed by the management service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.OpportunityStore
}

// Deps wires the management service.
type Deps struct {
	Repo       Repository
	Tx         ports.Transactor
	Customers  ports.CustomerResolver
	Events     ports.EventLogger
	Timeline   ports.TimelineReader
	Chase      ports.ChaseStarter
	Publisher  ports.EventPublisher
	Normalizer *phone.Normalizer
	Log        *logger.Logger
}

// Service handles lead management operations.
type Service struct {
	repo       Repository
	tx         ports.Transactor
	customers  ports.CustomerResolver
	events     ports.EventLogger
	timeline   ports.TimelineReader
	chase      ports.ChaseStarter
	publisher  ports.EventPublisher
	normalizer *phone.Normalizer
	log        *logger.Logger
}

// New creates a new lead management service.
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
		timeline:   deps.Timeline,
		chase:      deps.Chase,
		publisher:  deps.Publisher,
		normalizer: normalizer,
		log:        log,
	}
}

// Detail is a lead with everything shown next to it.
type Detail struct {
	Lead        domain.Lead
	Customer    *customers.Customer
	Timeline    []timeline.Event
	Opportunity *domain.Opportunity
}

// Get loads a lead with its customer, recent timeline and opportunity.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Detail, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	detail := Detail{Lead: lead, Timeline: []timeline.Event{}}
	g, gctx := errgroup.WithContext(ctx)

	if lead.CustomerID != nil {
		g.Go(func() error {
			c, err := s.customers.Get(gctx, *lead.CustomerID)
			if errors.Is(err, customers.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			detail.Customer = &c
			return nil
		})
	}

	g.Go(func() error {
		items, err := s.timeline.Timeline(gctx, timeline.Filter{LeadID: &lead.ID}, detailEventLimit)
		if err != nil {
			return err
		}
		detail.Timeline = items
		return nil
	})

	g.Go(func() error {
		opp, err := s.repo.LatestOpportunityForLead(gctx, lead.ID)
		if errors.Is(err, repository.ErrOpportunityNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		detail.Opportunity = &opp
		return nil
	})

	if err := g.Wait(); err != nil {
		return Detail{}, err
	}
	return detail, nil
}

// Patch is a partial lead update. Nil fields are left alone. A nil value
// inside RawPayload removes that key.
type Patch struct {
	Name               *string
	Email              *string
	Phone              *string
	RawPayload         map[string]any
	QualificationNotes *string
}

// Update applies a partial patch and refreshes missing fields. Qualified and
// disqualified leads keep their status whatever the patch contains.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (domain.Lead, error) {
	var (
		lead     domain.Lead
		previous domain.Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		lead, err = s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			lead.Name = domain.Optional(sanitize.Text(*patch.Name))
		}
		if patch.Email != nil {
			lead.Email = domain.Optional(sanitize.Email(*patch.Email))
		}
		if patch.Phone != nil {
			lead.Phone = domain.Optional(s.normalizer.Normalize(*patch.Phone))
		}
		if patch.RawPayload != nil {
			if lead.RawPayload == nil {
				lead.RawPayload = domain.Payload{}
			}
			lead.RawPayload.Merge(patch.RawPayload)
		}
		if patch.QualificationNotes != nil {
			lead.QualificationNotes = domain.Optional(sanitize.Text(*patch.QualificationNotes))
		}

		previous = lead.Recompute()
		if err := s.repo.Update(ctx, &lead); err != nil {
			return err
		}

		if previous != lead.Status {
			return s.logSystem(ctx, lead, fmt.Sprintf("Lead status changed from %s to %s", previous, lead.Status), map[string]any{
				"from": string(previous),
				"to":   string(lead.Status),
			})
		}
		return nil
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.statusChanged(ctx, lead.ID, previous, lead.Status)
	return lead, nil
}

// QualifyResult is the qualified lead and its opportunity.
type QualifyResult struct {
	Lead        domain.Lead
	Opportunity domain.Opportunity
	Created     bool
}

// Qualify moves a complete lead to QUALIFIED and opens an opportunity in one
// transaction. Qualifying an already qualified lead returns its opportunity.
func (s *Service) Qualify(ctx context.Context, id uuid.UUID) (QualifyResult, error) {
	var (
		result   QualifyResult
		previous domain.Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lead, err := s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = lead.Status

		if lead.Status == domain.StatusQualified {
			opp, err := s.repo.LatestOpportunityForLead(ctx, lead.ID)
			if err == nil {
				result = QualifyResult{Lead: lead, Opportunity: opp}
				return nil
			}
			if !errors.Is(err, repository.ErrOpportunityNotFound) {
				return err
			}
		}

		if err := domain.CanQualify(lead); err != nil {
			return transitionError(err, lead)
		}

		if lead.CustomerID == nil {
			customer, err := s.customers.ResolveOrCreate(ctx, customers.Identity{
				Email: deref(lead.Email),
				Phone: lead.PhoneNumber(),
				Name:  deref(lead.Name),
			})
			if err != nil {
				return err
			}
			lead.CustomerID = &customer.ID
		}

		opp := domain.Opportunity{CustomerID: *lead.CustomerID, LeadID: &lead.ID, Stage: domain.StageNew}
		if err := s.repo.CreateOpportunity(ctx, &opp); err != nil {
			return err
		}

		lead.Status = domain.StatusQualified
		lead.MissingFields = domain.ComputeMissing(lead)
		if err := s.repo.Update(ctx, &lead); err != nil {
			return err
		}

		if err := s.logSystem(ctx, lead, "Lead qualified and moved to sales", map[string]any{
			"opportunity_id": opp.ID.String(),
		}); err != nil {
			return err
		}

		result = QualifyResult{Lead: lead, Opportunity: opp, Created: true}
		return nil
	})
	if err != nil {
		return QualifyResult{}, err
	}

	s.statusChanged(ctx, result.Lead.ID, previous, result.Lead.Status)
	return result, nil
}

// Disqualify closes a lead that will not be pursued.
func (s *Service) Disqualify(ctx context.Context, id uuid.UUID, notes string) (domain.Lead, error) {
	var (
		lead     domain.Lead
		previous domain.Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		lead, err = s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous = lead.Status

		if err := domain.CanDisqualify(lead); err != nil {
			return transitionError(err, lead)
		}
		if lead.Status == domain.StatusDisqualified {
			return nil
		}

		lead.Status = domain.StatusDisqualified
		if cleaned := sanitize.Text(notes); cleaned != "" {
			lead.QualificationNotes = &cleaned
		}
		if err := s.repo.Update(ctx, &lead); err != nil {
			return err
		}

		meta := map[string]any{}
		if lead.QualificationNotes != nil {
			meta["notes"] = *lead.QualificationNotes
		}
		return s.logSystem(ctx, lead, "Lead disqualified", meta)
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.statusChanged(ctx, lead.ID, previous, lead.Status)
	return lead, nil
}

// RequestInfoResult reports whether outreach was started.
type RequestInfoResult struct {
	Lead           domain.Lead
	ChaseScheduled bool
}

// RequestInfo recomputes missing fields and, when any are missing, puts the
// lead in NEEDS_INFO and starts the chase. A complete lead is left as is.
func (s *Service) RequestInfo(ctx context.Context, id uuid.UUID) (RequestInfoResult, error) {
	var (
		lead     domain.Lead
		previous domain.Status
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		lead, err = s.loadForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if err := domain.CanRequestInfo(lead); err != nil {
			return transitionError(err, lead)
		}

		previous = lead.Recompute()
		if err := s.repo.Update(ctx, &lead); err != nil {
			return err
		}

		if !lead.NeedsInfo() {
			return nil
		}
		return s.logSystem(ctx, lead, "Additional information requested", map[string]any{
			"missing_fields": missingStrings(lead.MissingFields),
		})
	})
	if err != nil {
		return RequestInfoResult{}, err
	}

	s.statusChanged(ctx, lead.ID, previous, lead.Status)

	if !lead.NeedsInfo() || s.chase == nil {
		return RequestInfoResult{Lead: lead}, nil
	}
	if err := s.chase.StartChase(ctx, lead.ID); err != nil {
		return RequestInfoResult{}, fmt.Errorf("request info: start chase: %w", err)
	}
	return RequestInfoResult{Lead: lead, ChaseScheduled: true}, nil
}

// InboxPage is one page of open leads.
type InboxPage struct {
	Items  []domain.Lead
	Total  int
	Limit  int
	Offset int
}

// Inbox lists NEW and NEEDS_INFO leads, newest first.
func (s *Service) Inbox(ctx context.Context, limit, offset int) (InboxPage, error) {
	switch {
	case limit == 0:
		limit = DefaultInboxLimit
	case limit < 1 || limit > MaxInboxLimit:
		return InboxPage{}, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", MaxInboxLimit))
	}
	if offset < 0 {
		return InboxPage{}, apperr.Validation("offset must not be negative")
	}

	items, total, err := s.repo.ListInbox(ctx, limit, offset)
	if err != nil {
		return InboxPage{}, err
	}
	return InboxPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func (s *Service) loadForUpdate(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByIDForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func (s *Service) logSystem(ctx context.Context, lead domain.Lead, body string, meta map[string]any) error {
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

func (s *Service) statusChanged(ctx context.Context, id uuid.UUID, from, to domain.Status) {
	if from == to || s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		From:      string(from),
		To:        string(to),
	})
}

func transitionError(err error, lead domain.Lead) error {
	var te *domain.TransitionError
	if !errors.As(err, &te) {
		return err
	}
	return apperr.Validation(te.Error()).WithDetails(map[string]any{
		"status":        string(lead.Status),
		"missingFields": missingStrings(domain.ComputeMissing(lead)),
	})
}

func missingStrings(fields []domain.MissingField) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, string(f))
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
