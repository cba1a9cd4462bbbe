package events

import (
	platformevents "fieldops_backend/platform/events"
	"fieldops_backend/platform/logger"
)

// InMemoryBus aliases the platform bus so modules only import internal/events.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the process-local event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
