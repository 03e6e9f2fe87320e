package events

import (
	platformevents "lead_intake_backend/platform/events"
	"lead_intake_backend/platform/logger"
)

// InMemoryBus is the process-local bus cmd/api and cmd/scheduler wire up.
type InMemoryBus = platformevents.InMemoryBus

var _ Bus = (*InMemoryBus)(nil)

// NewInMemoryBus returns a bus that logs asynchronous handler failures on log.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
