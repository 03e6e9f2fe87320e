package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_intake_backend/internal/automation"
	"lead_intake_backend/internal/comms"
	"lead_intake_backend/internal/events"
	leadrepo "lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/scheduler"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/db"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	// Chase jobs run here, so their counters live in this process.
	jobMetrics := metrics.New()

	leadRepo := leadrepo.New(pool)
	timelineSvc := timeline.NewService(timeline.NewRepository(pool))
	commsSvc := comms.New(comms.Deps{
		Leads:   leadRepo,
		Sender:  sms.NewClient(cfg, log),
		Events:  timelineSvc,
		Metrics: jobMetrics,
		Log:     log,
	})
	automationSvc := automation.New(automation.Deps{
		Leads:         leadRepo,
		Enqueuer:      client,
		Messenger:     commsSvc,
		Events:        timelineSvc,
		FollowupDelay: cfg.GetChaseFollowupDelay(),
		Metrics:       jobMetrics,
		Log:           log,
	})
	// Auto-chase on intake belongs to the API process; the worker only runs
	// due phases.
	automationSvc.RegisterHandlers(eventBus, false)

	worker, err := scheduler.NewWorker(cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}
	keyCleanup := scheduler.NewIdempotencyKeyCleanup(leadRepo, log, cfg.GetIdempotencyCleanupInterval(), cfg.GetIdempotencyKeyRetention())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A worker that stops on its own takes the rest of the process down.
		defer stop()
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		keyCleanup.Run(gctx)
		return nil
	})
	if addr := cfg.GetSchedulerMetricsAddr(); addr != "" {
		srv := &http.Server{Addr: addr, Handler: jobMetrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("scheduler metrics listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
	}
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
