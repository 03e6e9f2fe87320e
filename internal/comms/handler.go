package comms

import (
	"context"
	"net/http"

	"lead_intake_backend/internal/leads/inbound"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/httpkit"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	signatureHeader = "X-Twilio-Signature"
	emptyTwiML      = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
)

// ReplyHandler applies an inbound SMS to the sender's lead.
type ReplyHandler interface {
	HandleReply(ctx context.Context, reply inbound.Reply) (inbound.Outcome, error)
}

// LeadMessenger sends an SMS to a lead.
type LeadMessenger interface {
	SendToLead(ctx context.Context, leadID uuid.UUID, body string) (SendResult, error)
}

type SendSMSRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
	Body   string    `json:"body" validate:"required,min=1,max=1600"`
}

type Handler struct {
	svc     LeadMessenger
	replies ReplyHandler
	cfg     config.WebhookConfig
	val     *validator.Validator
	log     *logger.Logger
}

func NewHandler(svc LeadMessenger, replies ReplyHandler, cfg config.WebhookConfig, val *validator.Validator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, replies: replies, cfg: cfg, val: val, log: log}
}

func (h *Handler) SendSMS(c *gin.Context) {
	var req SendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.svc.SendToLead(c.Request.Context(), req.LeadID, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// TwilioInbound receives an inbound SMS. Twilio only needs a 2xx with TwiML;
// an empty document means "no auto-reply".
func (h *Handler) TwilioInbound(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if h.cfg.GetTwilioWebhookValidate() {
		fullURL := h.publicURL(c)
		if !sms.VerifySignature(h.cfg.GetTwilioAuthToken(), fullURL, c.Request.PostForm, c.GetHeader(signatureHeader)) {
			h.log.WithContext(c.Request.Context()).Warn("twilio signature rejected", "url", fullURL)
			httpkit.HandleError(c, apperr.SignatureInvalid("invalid twilio signature"))
			return
		}
	}

	reply := inbound.Reply{
		From:      c.Request.PostForm.Get("From"),
		Body:      c.Request.PostForm.Get("Body"),
		MessageID: c.Request.PostForm.Get("MessageSid"),
	}
	if _, err := h.replies.HandleReply(c.Request.Context(), reply); httpkit.HandleError(c, err) {
		return
	}

	c.Data(http.StatusOK, "application/xml", []byte(emptyTwiML))
}

// publicURL rebuilds the URL Twilio signed. Behind a proxy the request host
// differs from the public one, so PUBLIC_BASE_URL wins when set.
func (h *Handler) publicURL(c *gin.Context) string {
	if base := h.cfg.GetPublicBaseURL(); base != "" {
		return base + c.Request.URL.RequestURI()
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
