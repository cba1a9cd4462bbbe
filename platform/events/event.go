// Package events provides the in-process event bus modules use to talk to
// each other without importing one another. Domain event types live with
// the modules; only the plumbing is here.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName uniquely identifies the event type, e.g. "interventions.assigned".
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish dispatches asynchronously; handler errors are logged, not returned.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler inline and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the name an Event reports via EventName.
	Subscribe(eventName string, handler Handler)
}
