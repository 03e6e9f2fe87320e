package http

import (
	"context"

	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"
)

// HealthChecker backs /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is everything the router needs, assembled in cmd/api.
type App struct {
	Config config.HTTPConfig
	Logger *logger.Logger
	// Health may be nil, in which case /api/health always reports ok.
	Health HealthChecker
	// Metrics may be nil, which disables the middleware and /metrics.
	Metrics *metrics.Metrics
	Modules []Module
}
