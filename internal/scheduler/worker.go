package scheduler

import (
	"context"
	"fmt"

	"lead_intake_backend/internal/events"
	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes lead:chase tasks and turns each into a LeadChaseDue event.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, bus events.Bus, log *logger.Logger) (*Worker, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	w := &Worker{bus: bus, log: log}
	w.server = asynq.NewServer(conn.redis, asynq.Config{
		Concurrency: conn.concurrency,
		Queues:      map[string]int{conn.queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			w.log.WithContext(ctx).Error("scheduler: task failed",
				"type", task.Type(), "retry", retried, "maxRetry", maxRetry, "error", err)
		}),
	})

	w.mux = asynq.NewServeMux()
	w.mux.Use(withTaskID)
	w.mux.HandleFunc(TaskLeadChase, w.handleLeadChase)

	return w, nil
}

// Run blocks until ctx is cancelled, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// withTaskID puts the asynq task id where logger.WithContext finds it.
func withTaskID(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		if id, ok := asynq.GetTaskID(ctx); ok {
			ctx = context.WithValue(ctx, logger.TaskIDKey, id)
		}
		return next.ProcessTask(ctx, task)
	})
}

// handleLeadChase hands the phase to the chase subscribers synchronously so
// that storage failures come back as task errors and asynq retries them.
// Malformed payloads can never succeed and skip retries.
func (w *Worker) handleLeadChase(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseLeadChasePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("invalid lead id %q: %w", payload.LeadID, asynq.SkipRetry)
	}
	if !ValidPhase(payload.Phase) {
		return fmt.Errorf("unknown chase phase %q: %w", payload.Phase, asynq.SkipRetry)
	}

	return w.bus.PublishSync(ctx, events.LeadChaseDue{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		Phase:     payload.Phase,
	})
}
