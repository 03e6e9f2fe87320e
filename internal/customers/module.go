package customers

import (
	apphttp "lead_intake_backend/internal/http"
	"lead_intake_backend/platform/phone"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the customers bounded context module implementing http.Module.
type Module struct {
	handler  *Handler
	resolver *Resolver
}

// NewModule wires the Postgres-backed resolver and its read API.
func NewModule(pool *pgxpool.Pool, normalizer *phone.Normalizer, timelineReader TimelineReader) *Module {
	resolver := NewResolver(NewRepository(pool), normalizer)
	return &Module{
		handler:  NewHandler(resolver, timelineReader),
		resolver: resolver,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "customers"
}

// Resolver returns the customer resolver for the leads module.
func (m *Module) Resolver() *Resolver {
	return m.resolver
}

// RegisterRoutes mounts customer routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/customers/:id", m.handler.GetByID)
}

var _ apphttp.Module = (*Module)(nil)
