// Package comms sends outbound SMS to leads and receives provider webhooks.
package comms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"
	"lead_intake_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadReader loads the lead a message is addressed to.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

// Sender delivers one message through the SMS provider.
type Sender interface {
	Send(ctx context.Context, to, body string) (sms.Message, error)
}

// SendResult reports what the provider did with a message.
type SendResult struct {
	LeadID            uuid.UUID `json:"leadId"`
	To                string    `json:"to"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	ProviderStatus    string    `json:"providerStatus,omitempty"`
	Error             string    `json:"error,omitempty"`
	EventID           uuid.UUID `json:"eventId"`
}

// Sent reports whether the provider accepted the message.
func (r SendResult) Sent() bool {
	return r.Error == ""
}

// Deps wires the comms service.
type Deps struct {
	Leads   LeadReader
	Sender  Sender
	Events  ports.EventLogger
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

type Service struct {
	leads   LeadReader
	sender  Sender
	events  ports.EventLogger
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		leads:   deps.Leads,
		sender:  deps.Sender,
		events:  deps.Events,
		metrics: deps.Metrics,
		log:     log,
	}
}

// SendToLead texts the lead's canonical phone. The outbound event is logged
// whether or not the provider accepted the message; a rejected send is a
// Provider error carrying the result.
func (s *Service) SendToLead(ctx context.Context, leadID uuid.UUID, body string) (SendResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return SendResult{}, apperr.Validation("message body is required")
	}

	lead, err := s.leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return SendResult{}, apperr.NotFound("lead not found")
		}
		return SendResult{}, err
	}

	to := lead.PhoneNumber()
	if to == "" {
		return SendResult{}, apperr.Validation("lead has no phone number")
	}
	if !phone.Dialable(to) {
		return SendResult{}, apperr.Validation("lead phone number is not dialable").WithDetails(map[string]string{"phone": to})
	}

	result := SendResult{LeadID: lead.ID, To: to}
	msg, sendErr := s.send(ctx, to, body)
	if sendErr != nil {
		result.Error = sendErr.Error()
		s.log.WithContext(ctx).Warn("sms send failed", "leadId", lead.ID, "error", sendErr)
	} else {
		result.ProviderMessageID = msg.ID
		result.ProviderStatus = msg.Status
	}

	event, err := s.events.Log(ctx, timeline.Entry{
		CustomerID: lead.CustomerID,
		LeadID:     &lead.ID,
		Channel:    timeline.ChannelSMS,
		Direction:  timeline.DirectionOutbound,
		Body:       body,
		Meta: map[string]any{
			"provider_message_id": result.ProviderMessageID,
			"provider_status":     result.ProviderStatus,
			"error":               nullable(result.Error),
			"region":              phone.Region(to),
		},
	})
	if err != nil {
		if result.Sent() {
			// The message is out; only the timeline row is missing.
			s.metrics.IncSMS("sent")
			s.log.WithContext(ctx).Error("sms sent but not recorded", "leadId", lead.ID, "providerMessageId", result.ProviderMessageID, "error", err)
		}
		return result, fmt.Errorf("log outbound sms: %w", err)
	}
	result.EventID = event.ID

	if sendErr != nil {
		s.metrics.IncSMS("failed")
		return result, apperr.Provider("sms send failed", sendErr).WithDetails(result)
	}
	s.metrics.IncSMS("sent")
	return result, nil
}

func (s *Service) send(ctx context.Context, to, body string) (sms.Message, error) {
	if s.sender == nil {
		return sms.Message{}, sms.ErrDisabled
	}
	return s.sender.Send(ctx, to, body)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
