package comms

import (
	"context"
	"errors"
	"testing"

	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"

	"github.com/google/uuid"
)

type stubLeads map[uuid.UUID]domain.Lead

func (s stubLeads) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := s[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

type stubSender struct {
	msg  sms.Message
	err  error
	sent []string
}

func (s *stubSender) Send(_ context.Context, to, body string) (sms.Message, error) {
	s.sent = append(s.sent, to+"|"+body)
	return s.msg, s.err
}

type memEvents struct {
	entries []timeline.Entry
	err     error
}

func (m *memEvents) Log(_ context.Context, entry timeline.Entry) (timeline.Event, error) {
	if m.err != nil {
		return timeline.Event{}, m.err
	}
	m.entries = append(m.entries, entry)
	return timeline.Event{ID: uuid.New(), Channel: entry.Channel, Direction: entry.Direction, Body: entry.Body, Meta: entry.Meta}, nil
}

func leadWithPhone(phoneNumber string) domain.Lead {
	customerID := uuid.New()
	return domain.Lead{
		ID:         uuid.New(),
		Source:     domain.SourceWebsite,
		Status:     domain.StatusNeedsInfo,
		CustomerID: &customerID,
		Phone:      domain.Optional(phoneNumber),
	}
}

func TestSendToLeadLogsOutboundEvent(t *testing.T) {
	lead := leadWithPhone("+447400123456")
	sender := &stubSender{msg: sms.Message{ID: "SM1", Status: "queued"}}
	events := &memEvents{}
	svc := New(Deps{Leads: stubLeads{lead.ID: lead}, Sender: sender, Events: events})

	result, err := svc.SendToLead(context.Background(), lead.ID, "  hello  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if !result.Sent() || result.ProviderMessageID != "SM1" || result.To != "+447400123456" {
		t.Fatalf("result = %+v", result)
	}
	if len(sender.sent) != 1 || sender.sent[0] != "+447400123456|hello" {
		t.Fatalf("sent = %v", sender.sent)
	}
	if len(events.entries) != 1 {
		t.Fatalf("events = %d, want 1", len(events.entries))
	}
	entry := events.entries[0]
	if entry.Channel != timeline.ChannelSMS || entry.Direction != timeline.DirectionOutbound {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.Meta["provider_message_id"] != "SM1" || entry.Meta["region"] != "GB" || entry.Meta["error"] != nil {
		t.Fatalf("meta = %v", entry.Meta)
	}
	if entry.CustomerID == nil || *entry.CustomerID != *lead.CustomerID {
		t.Fatal("event must be attached to the lead's customer")
	}
}

func TestSendToLeadProviderFailureStillLogs(t *testing.T) {
	lead := leadWithPhone("+447400123456")
	events := &memEvents{}
	svc := New(Deps{
		Leads:  stubLeads{lead.ID: lead},
		Sender: &stubSender{err: errors.New("twilio returned 503")},
		Events: events,
	})

	result, err := svc.SendToLead(context.Background(), lead.ID, "hello")
	if !apperr.Is(err, apperr.KindProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if result.Sent() || result.Error == "" {
		t.Fatalf("result = %+v", result)
	}
	if len(events.entries) != 1 || events.entries[0].Meta["error"] != "twilio returned 503" {
		t.Fatalf("expected failed send to be logged, got %+v", events.entries)
	}
}

func TestSendToLeadDeliveredButUnlogged(t *testing.T) {
	lead := leadWithPhone("+447400123456")
	storageErr := errors.New("db down")
	svc := New(Deps{
		Leads:  stubLeads{lead.ID: lead},
		Sender: &stubSender{msg: sms.Message{ID: "SM1", Status: "queued"}},
		Events: &memEvents{err: storageErr},
	})

	result, err := svc.SendToLead(context.Background(), lead.ID, "hello")
	if !errors.Is(err, storageErr) || apperr.GetKind(err) != apperr.KindUnknown {
		t.Fatalf("err = %v, want wrapped storage error", err)
	}
	if !result.Sent() || result.ProviderMessageID != "SM1" {
		t.Fatalf("result = %+v, want delivered message id", result)
	}
}

func TestSendToLeadDisabledProvider(t *testing.T) {
	lead := leadWithPhone("+447400123456")
	var client *sms.Client
	svc := New(Deps{Leads: stubLeads{lead.ID: lead}, Sender: client, Events: &memEvents{}})

	_, err := svc.SendToLead(context.Background(), lead.ID, "hello")
	if !apperr.Is(err, apperr.KindProvider) || !errors.Is(err, sms.ErrDisabled) {
		t.Fatalf("err = %v, want provider error wrapping ErrDisabled", err)
	}
}

func TestSendToLeadRejects(t *testing.T) {
	noPhone := leadWithPhone("")
	shortPhone := leadWithPhone("+4412")
	leads := stubLeads{noPhone.ID: noPhone, shortPhone.ID: shortPhone}

	cases := []struct {
		name   string
		leadID uuid.UUID
		body   string
		kind   apperr.Kind
	}{
		{"unknown lead", uuid.New(), "hi", apperr.KindNotFound},
		{"no phone", noPhone.ID, "hi", apperr.KindValidation},
		{"undialable phone", shortPhone.ID, "hi", apperr.KindValidation},
		{"empty body", noPhone.ID, "   ", apperr.KindValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events := &memEvents{}
			sender := &stubSender{}
			svc := New(Deps{Leads: leads, Sender: sender, Events: events})

			_, err := svc.SendToLead(context.Background(), tc.leadID, tc.body)
			if !apperr.Is(err, tc.kind) {
				t.Fatalf("err = %v, want %s", err, tc.kind)
			}
			if len(sender.sent) != 0 || len(events.entries) != 0 {
				t.Fatal("rejected sends must not reach the provider or the log")
			}
		})
	}
}
