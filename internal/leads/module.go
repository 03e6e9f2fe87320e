// Package leads provides the lead intake and qualification bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"lead_intake_backend/internal/events"
	apphttp "lead_intake_backend/internal/http"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/handler"
	"lead_intake_backend/internal/leads/inbound"
	"lead_intake_backend/internal/leads/intake"
	"lead_intake_backend/internal/leads/management"
	"lead_intake_backend/internal/leads/ports"
	"lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"
	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

// Deps carries what the leads module needs from the rest of the process.
type Deps struct {
	Repo       *repository.Repository
	Tx         ports.Transactor
	Customers  ports.CustomerResolver
	Events     ports.EventLogger
	Timeline   ports.TimelineReader
	Chase      ports.ChaseStarter
	Bus        events.Bus
	Normalizer *phone.Normalizer
	Metrics    *metrics.Metrics
	Validator  *validator.Validator
	Log        *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	intake     *intake.Service
	management *management.Service
	inbound    *inbound.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(deps Deps) (*Module, error) {
	if err := deps.Validator.RegisterValidation("lead_source", func(fl govalidator.FieldLevel) bool {
		_, err := domain.ParseSource(fl.Field().String())
		return err == nil
	}); err != nil {
		return nil, err
	}

	// Create focused services (vertical slices)
	intakeSvc := intake.New(intake.Deps{
		Repo:       deps.Repo,
		Tx:         deps.Tx,
		Customers:  deps.Customers,
		Events:     deps.Events,
		Publisher:  deps.Bus,
		Normalizer: deps.Normalizer,
		Metrics:    deps.Metrics,
		Log:        deps.Log,
	})
	mgmtSvc := management.New(management.Deps{
		Repo:       deps.Repo,
		Tx:         deps.Tx,
		Customers:  deps.Customers,
		Events:     deps.Events,
		Timeline:   deps.Timeline,
		Chase:      deps.Chase,
		Publisher:  deps.Bus,
		Normalizer: deps.Normalizer,
		Log:        deps.Log,
	})
	inboundSvc := inbound.New(inbound.Deps{
		Repo:       deps.Repo,
		Tx:         deps.Tx,
		Customers:  deps.Customers,
		Events:     deps.Events,
		Publisher:  deps.Bus,
		Normalizer: deps.Normalizer,
	})

	return &Module{
		handler:    handler.New(intakeSvc, mgmtSvc, deps.Validator),
		intake:     intakeSvc,
		management: mgmtSvc,
		inbound:    inboundSvc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// IntakeService returns the intake pipeline for external use.
func (m *Module) IntakeService() *intake.Service {
	return m.intake
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// InboundService returns the SMS reply handler for the comms webhook.
func (m *Module) InboundService() *inbound.Service {
	return m.inbound
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	leadsGroup.POST("/webhook/:source", ctx.WebhookRateLimit, m.handler.Webhook)
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
