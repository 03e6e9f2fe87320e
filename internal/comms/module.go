package comms

import (
	apphttp "lead_intake_backend/internal/http"
)

// Module is the comms bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(svc *Service, handler *Handler) *Module {
	return &Module{handler: handler, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "comms"
}

// Service exposes the sender for the automation module.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts comms routes. The provider webhook sits behind the
// webhook rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/comms")
	group.POST("/sms/send", m.handler.SendSMS)

	webhooks := group.Group("/webhooks", ctx.WebhookRateLimit)
	webhooks.POST("/twilio/sms", m.handler.TwilioInbound)
}

var _ apphttp.Module = (*Module)(nil)
