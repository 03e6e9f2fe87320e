// Package automation schedules and runs the SMS chase cadence for leads that
// are waiting on information.
package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_intake_backend/internal/comms"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/scheduler"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"

	"github.com/google/uuid"
)

// DefaultFollowupDelay applies when no delay is configured.
const DefaultFollowupDelay = 4 * time.Hour

// LeadReader reloads the lead a chase is for.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Messenger sends the chase SMS.
type Messenger interface {
	SendToLead(ctx context.Context, leadID uuid.UUID, body string) (comms.SendResult, error)
}

// Skip reasons reported by RunChase.
const (
	SkipLeadGone        = "lead_not_found"
	SkipNotNeedsInfo    = "not_needs_info"
	SkipNoPhone         = "no_phone"
	SkipNothingMissing  = "no_missing_fields"
	SkipUndialablePhone = "undialable_phone"
)

// Schedule reports which chase phases were newly enqueued. A phase that was
// already queued reports false.
type Schedule struct {
	LeadID     uuid.UUID `json:"leadId"`
	Immediate  bool      `json:"immediate"`
	Followup   bool      `json:"followup"`
	FollowupAt time.Time `json:"followupAt"`
}

// ChaseResult describes one chase job run.
type ChaseResult struct {
	LeadID     uuid.UUID         `json:"leadId"`
	Phase      string            `json:"phase"`
	SkipReason string            `json:"skipReason,omitempty"`
	Message    string            `json:"message,omitempty"`
	Send       *comms.SendResult `json:"send,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Skipped reports whether the guard stopped the job before sending.
func (r ChaseResult) Skipped() bool {
	return r.SkipReason != ""
}

// Deps wires the automation service.
type Deps struct {
	Leads         LeadReader
	Enqueuer      scheduler.ChaseEnqueuer
	Messenger     Messenger
	Events        ports.EventLogger
	FollowupDelay time.Duration
	Metrics       *metrics.Metrics
	Log           *logger.Logger
}

type Service struct {
	leads         LeadReader
	enqueuer      scheduler.ChaseEnqueuer
	messenger     Messenger
	events        ports.EventLogger
	followupDelay time.Duration
	metrics       *metrics.Metrics
	log           *logger.Logger
	now           func() time.Time
}

func New(deps Deps) *Service {
	delay := deps.FollowupDelay
	if delay <= 0 {
		delay = DefaultFollowupDelay
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		leads:         deps.Leads,
		enqueuer:      deps.Enqueuer,
		messenger:     deps.Messenger,
		events:        deps.Events,
		followupDelay: delay,
		metrics:       deps.Metrics,
		log:           log,
		now:           time.Now,
	}
}

// StartChase enqueues both chase phases. Re-invoking it never duplicates the
// cadence.
func (s *Service) StartChase(ctx context.Context, leadID uuid.UUID) error {
	_, err := s.Schedule(ctx, leadID)
	return err
}

// Schedule enqueues the immediate and follow-up jobs under deterministic task
// ids and records the outcome on the lead's timeline.
func (s *Service) Schedule(ctx context.Context, leadID uuid.UUID) (Schedule, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Schedule{}, apperr.NotFound("lead not found")
		}
		return Schedule{}, err
	}

	out := Schedule{LeadID: lead.ID, FollowupAt: s.now().Add(s.followupDelay)}

	id := lead.ID.String()
	out.Immediate, err = s.enqueuer.EnqueueLeadChase(ctx, scheduler.LeadChasePayload{LeadID: id, Phase: scheduler.PhaseImmediate}, 0)
	if err != nil {
		return Schedule{}, fmt.Errorf("enqueue immediate chase: %w", err)
	}
	out.Followup, err = s.enqueuer.EnqueueLeadChase(ctx, scheduler.LeadChasePayload{LeadID: id, Phase: scheduler.PhaseFollowup}, s.followupDelay)
	if err != nil {
		return Schedule{}, fmt.Errorf("enqueue followup chase: %w", err)
	}

	if _, err := s.events.Log(ctx, timeline.Entry{
		CustomerID: lead.CustomerID,
		LeadID:     &lead.ID,
		Channel:    timeline.ChannelAutomation,
		Direction:  timeline.DirectionInternal,
		Body:       "Chase scheduled",
		Meta: map[string]any{
			"immediate":   out.Immediate,
			"followup":    out.Followup,
			"followup_at": out.FollowupAt.UTC().Format(time.RFC3339),
		},
	}); err != nil {
		return Schedule{}, err
	}

	s.log.WithContext(ctx).Info("chase scheduled", "leadId", lead.ID, "immediate", out.Immediate, "followup", out.Followup)
	return out, nil
}

// RunChase is the body of a chase job. The status guard makes replays and
// stale follow-ups harmless. Provider failures are reported in the result,
// not as an error, so the job is not retried into a duplicate send.
func (s *Service) RunChase(ctx context.Context, leadID uuid.UUID, phase string) (ChaseResult, error) {
	result := ChaseResult{LeadID: leadID, Phase: phase}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.skip(result, SkipLeadGone), nil
		}
		s.metrics.IncChase(phase, "error")
		return result, err
	}

	missing := domain.ComputeMissing(lead)
	switch {
	case !lead.NeedsInfo():
		return s.skip(result, SkipNotNeedsInfo), nil
	case lead.PhoneNumber() == "":
		return s.skip(result, SkipNoPhone), nil
	case len(missing) == 0:
		return s.skip(result, SkipNothingMissing), nil
	}

	result.Message = ComposeChaseMessage(missing)
	sent, err := s.messenger.SendToLead(ctx, lead.ID, result.Message)
	switch {
	case err == nil:
		result.Send = &sent
		s.metrics.IncChase(phase, "sent")
		return result, nil
	case apperr.Is(err, apperr.KindValidation):
		return s.skip(result, SkipUndialablePhone), nil
	case apperr.Is(err, apperr.KindProvider):
		result.Send = &sent
		result.Error = err.Error()
		s.metrics.IncChase(phase, "failed")
		s.log.WithContext(ctx).Warn("chase send failed", "leadId", lead.ID, "phase", phase, "error", err)
		return result, nil
	case sent.ProviderMessageID != "":
		// Delivered but not recorded. Retrying would text the lead again.
		result.Send = &sent
		result.Error = err.Error()
		s.metrics.IncChase(phase, "sent")
		s.log.WithContext(ctx).Error("chase sent but not recorded", "leadId", lead.ID, "phase", phase, "error", err)
		return result, nil
	default:
		s.metrics.IncChase(phase, "error")
		return result, err
	}
}

func (s *Service) skip(result ChaseResult, reason string) ChaseResult {
	result.SkipReason = reason
	s.metrics.IncChase(result.Phase, "skipped")
	s.log.Info("chase skipped", "leadId", result.LeadID, "phase", result.Phase, "reason", reason)
	return result
}
