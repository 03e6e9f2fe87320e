// Package events is the in-process publish/subscribe plumbing shared by the
// lead modules. Event types themselves live in internal/events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is anything published on a Bus. EventName is the subscription key.
type Event interface {
	EventName() string
	EventID() uuid.UUID
	OccurredAt() time.Time
}

// BaseEvent carries the identity and timestamp every event shares. Embed it
// and implement EventName.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler reacts to one event. A returned error is logged by Publish and
// returned by PublishSync.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function act as a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to the handlers subscribed to their name.
type Bus interface {
	// Publish is fire-and-forget; handlers run after the caller returns.
	Publish(ctx context.Context, event Event)
	// PublishSync runs handlers inline and reports their joined errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
