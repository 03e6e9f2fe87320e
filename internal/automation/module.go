package automation

import (
	apphttp "lead_intake_backend/internal/http"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

func NewModule(svc *Service) *Module {
	return &Module{handler: NewHandler(svc), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Service exposes the chase starter for the leads module.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/automation")
	group.POST("/leads/:id/chase", m.handler.StartChase)
}

var _ apphttp.Module = (*Module)(nil)
