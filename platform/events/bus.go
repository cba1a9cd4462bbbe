package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"fieldops_backend/platform/logger"
)

// asyncHandlerTimeout bounds async handler execution so a stuck handler
// cannot leak goroutines forever.
const asyncHandlerTimeout = 30 * time.Second

// InMemoryBus is a process-local event bus. Handlers registered for an
// event name receive every published event of that name.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers asynchronously. Handler
// errors are logged, never propagated to the publisher.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()

			// Detach from the request context so in-flight handlers
			// survive the HTTP response.
			handlerCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncHandlerTimeout)
			defer cancel()

			if err := h.Handle(handlerCtx, event); err != nil && b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err.Error(),
				)
			}
		}(handler)
	}
}

// PublishSync dispatches the event and waits for every handler. Handler
// errors are joined and returned.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			errs = append(errs, err)
			if b.log != nil {
				b.log.Error("event handler failed",
					"event", event.EventName(),
					"error", err.Error(),
				)
			}
		}
	}

	return errors.Join(errs...)
}

// Wait blocks until all async handlers have finished. Used during shutdown.
func (b *InMemoryBus) Wait() {
	b.wg.Wait()
}
