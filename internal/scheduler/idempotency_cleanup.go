package scheduler

import (
	"context"
	"time"

	"lead_intake_backend/platform/logger"
)

const (
	defaultKeyCleanupInterval = time.Hour
	defaultKeyRetention       = 30 * 24 * time.Hour
)

// KeyPruner deletes idempotency keys claimed before a cutoff.
type KeyPruner interface {
	DeleteKeysBefore(ctx context.Context, before time.Time) (int64, error)
}

// IdempotencyKeyCleanup periodically removes old idempotency keys. Deliveries
// older than the retention window are no longer deduplicated.
type IdempotencyKeyCleanup struct {
	repo      KeyPruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewIdempotencyKeyCleanup(repo KeyPruner, log *logger.Logger, interval, retention time.Duration) *IdempotencyKeyCleanup {
	if interval <= 0 {
		interval = defaultKeyCleanupInterval
	}
	if retention <= 0 {
		retention = defaultKeyRetention
	}

	return &IdempotencyKeyCleanup{
		repo:      repo,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (c *IdempotencyKeyCleanup) Run(ctx context.Context) {
	if c == nil || c.repo == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *IdempotencyKeyCleanup) cleanup(ctx context.Context) {
	deleted, err := c.repo.DeleteKeysBefore(ctx, c.now().Add(-c.retention))
	if err != nil {
		c.log.Warn("idempotency key cleanup failed", "error", err)
		return
	}

	if deleted > 0 {
		c.log.Info("idempotency key cleanup deleted expired keys", "deleted", deleted)
	}
}
