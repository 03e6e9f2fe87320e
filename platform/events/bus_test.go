package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"lead_intake_backend/platform/logger"
)

type pinged struct{ BaseEvent }

func (pinged) EventName() string { return "test.pinged" }

func TestPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	boom := errors.New("boom")

	var calls int
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls++
		return boom
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))

	err := bus.PublishSync(context.Background(), pinged{NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("PublishSync error = %v, want boom", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want every handler to run", calls)
	}
}

func TestPublishRecoversPanicsAndIgnoresCancellation(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())

	var ran atomic.Int32
	bus.Subscribe("test.pinged", HandlerFunc(func(context.Context, Event) error {
		panic("kaboom")
	}))
	bus.Subscribe("test.pinged", HandlerFunc(func(ctx context.Context, _ Event) error {
		if ctx.Err() == nil {
			ran.Add(1)
		}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pinged{NewBaseEvent()})
	bus.Wait()

	if ran.Load() != 1 {
		t.Fatal("handler must run with a live context after the publisher's context is cancelled")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.Nop())
	if err := bus.PublishSync(context.Background(), pinged{NewBaseEvent()}); err != nil {
		t.Fatalf("PublishSync without handlers = %v", err)
	}
}
