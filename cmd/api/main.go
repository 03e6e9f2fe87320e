package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_intake_backend/internal/automation"
	"lead_intake_backend/internal/comms"
	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	apphttp "lead_intake_backend/internal/http"
	"lead_intake_backend/internal/http/router"
	"lead_intake_backend/internal/leads"
	"lead_intake_backend/internal/leads/ports"
	leadrepo "lead_intake_backend/internal/leads/repository"
	"lead_intake_backend/internal/scheduler"
	"lead_intake_backend/internal/sms"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/config"
	"lead_intake_backend/platform/db"
	"lead_intake_backend/platform/logger"
	"lead_intake_backend/platform/metrics"
	"lead_intake_backend/platform/phone"
	"lead_intake_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	chaseClient, closeScheduler := initChaseScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	appMetrics := metrics.New()
	val := validator.New()
	normalizer := phone.NewNormalizer(cfg.GetDefaultRegion())
	txm := db.NewTxManager(pool)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	timelineSvc := timeline.NewService(timeline.NewRepository(pool))
	customersModule := customers.NewModule(pool, normalizer, timelineSvc)
	leadRepo := leadrepo.New(pool)

	commsSvc := comms.New(comms.Deps{
		Leads:   leadRepo,
		Sender:  sms.NewClient(cfg, log),
		Events:  timelineSvc,
		Metrics: appMetrics,
		Log:     log,
	})
	if !cfg.IsTwilioEnabled() {
		log.Warn("TWILIO_ACCOUNT_SID not configured; outbound sms disabled")
	}

	automationSvc := automation.New(automation.Deps{
		Leads:         leadRepo,
		Enqueuer:      chaseClient,
		Messenger:     commsSvc,
		Events:        timelineSvc,
		FollowupDelay: cfg.GetChaseFollowupDelay(),
		Metrics:       appMetrics,
		Log:           log,
	})

	// Without Redis there is no chase: management skips it and intake does
	// not auto-start one.
	var chase ports.ChaseStarter
	if chaseClient != nil {
		chase = automationSvc
		automationSvc.RegisterHandlers(eventBus, cfg.GetAutoChase())
	}

	leadsModule, err := leads.NewModule(leads.Deps{
		Repo:       leadRepo,
		Tx:         txm,
		Customers:  customersModule.Resolver(),
		Events:     timelineSvc,
		Timeline:   timelineSvc,
		Chase:      chase,
		Bus:        eventBus,
		Normalizer: normalizer,
		Metrics:    appMetrics,
		Validator:  val,
		Log:        log,
	})
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	commsModule := comms.NewModule(commsSvc, comms.NewHandler(commsSvc, leadsModule.InboundService(), cfg, val, log))

	eventBus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		if e, ok := event.(events.LeadStatusChanged); ok {
			appMetrics.IncTransition(e.To)
		}
		return nil
	}))

	modules := []apphttp.Module{
		leadsModule,
		customersModule,
		commsModule,
	}
	if chaseClient != nil {
		modules = append(modules, automation.NewModule(automationSvc))
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  db.NewPoolAdapter(pool),
		Metrics: appMetrics,
		Modules: modules,
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initChaseScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead chase scheduling disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize chase scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
