package comms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"lead_intake_backend/internal/leads/inbound"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type webhookConfig struct {
	validate bool
	baseURL  string
}

func (c webhookConfig) GetTwilioAuthToken() string     { return "secret" }
func (c webhookConfig) GetTwilioWebhookValidate() bool { return c.validate }
func (c webhookConfig) GetPublicBaseURL() string       { return c.baseURL }

type recordingReplies struct {
	replies []inbound.Reply
}

func (r *recordingReplies) HandleReply(_ context.Context, reply inbound.Reply) (inbound.Outcome, error) {
	r.replies = append(r.replies, reply)
	return inbound.Outcome{}, nil
}

type stubMessenger struct {
	calls int
}

func (s *stubMessenger) SendToLead(_ context.Context, leadID uuid.UUID, _ string) (SendResult, error) {
	s.calls++
	return SendResult{LeadID: leadID, ProviderMessageID: "SM1"}, nil
}

func newTestEngine(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.POST("/api/v1/comms/sms/send", h.SendSMS)
	engine.POST("/api/v1/comms/webhooks/twilio/sms", h.TwilioInbound)
	return engine
}

func inboundForm() url.Values {
	return url.Values{
		"From":       {"+447400123456"},
		"Body":       {"my postcode is SW1A 1AA"},
		"MessageSid": {"SM42"},
	}
}

func postForm(engine *gin.Engine, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/comms/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestTwilioInboundAcceptsSignedRequest(t *testing.T) {
	replies := &recordingReplies{}
	cfg := webhookConfig{validate: true, baseURL: "https://leads.example.com"}
	engine := newTestEngine(NewHandler(&stubMessenger{}, replies, cfg, validator.New(), nil))

	form := inboundForm()
	signature := sms.Signature("secret", "https://leads.example.com/api/v1/comms/webhooks/twilio/sms", form)
	rec := postForm(engine, form, signature)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<Response></Response>") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if len(replies.replies) != 1 || replies.replies[0].MessageID != "SM42" || replies.replies[0].From != "+447400123456" {
		t.Fatalf("replies = %+v", replies.replies)
	}
}

func TestTwilioInboundRejectsBadSignature(t *testing.T) {
	replies := &recordingReplies{}
	cfg := webhookConfig{validate: true, baseURL: "https://leads.example.com"}
	engine := newTestEngine(NewHandler(&stubMessenger{}, replies, cfg, validator.New(), nil))

	rec := postForm(engine, inboundForm(), "bm90LWEtc2lnbmF0dXJl")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(replies.replies) != 0 {
		t.Fatal("unsigned reply must not be processed")
	}
}

func TestTwilioInboundSkipsValidationWhenDisabled(t *testing.T) {
	replies := &recordingReplies{}
	engine := newTestEngine(NewHandler(&stubMessenger{}, replies, webhookConfig{}, validator.New(), nil))

	rec := postForm(engine, inboundForm(), "")

	if rec.Code != http.StatusOK || len(replies.replies) != 1 {
		t.Fatalf("status = %d, replies = %d", rec.Code, len(replies.replies))
	}
}

func TestSendSMSValidatesBody(t *testing.T) {
	messenger := &stubMessenger{}
	engine := newTestEngine(NewHandler(messenger, &recordingReplies{}, webhookConfig{}, validator.New(), nil))

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"missing body", `{"leadId":"` + uuid.NewString() + `"}`, http.StatusBadRequest},
		{"ok", `{"leadId":"` + uuid.NewString() + `","body":"hello"}`, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/comms/sms/send", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}

	if messenger.calls != 1 {
		t.Fatalf("calls = %d, want 1", messenger.calls)
	}
}
