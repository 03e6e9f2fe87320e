package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"lead_intake_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue       = "default"
	defaultConcurrency = 10
	chaseMaxRetry      = 5
)

// ChaseEnqueuer schedules chase phases.
type ChaseEnqueuer interface {
	EnqueueLeadChase(ctx context.Context, payload LeadChasePayload, delay time.Duration) (bool, error)
}

// Client enqueues chase phases on the asynq queue.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ ChaseEnqueuer = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: asynq.NewClient(conn.redis), queue: conn.queue}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueLeadChase schedules one chase phase under its deterministic task id.
// It reports false, without error, when that phase is already scheduled.
func (c *Client) EnqueueLeadChase(ctx context.Context, payload LeadChasePayload, delay time.Duration) (bool, error) {
	if c == nil || c.client == nil {
		return false, fmt.Errorf("scheduler client not configured")
	}
	if !ValidPhase(payload.Phase) {
		return false, fmt.Errorf("unknown chase phase %q", payload.Phase)
	}

	task, err := NewLeadChaseTask(payload)
	if err != nil {
		return false, err
	}

	opts := []asynq.Option{
		asynq.Queue(c.queue),
		asynq.TaskID(ChaseTaskID(payload.Phase, payload.LeadID)),
		asynq.MaxRetry(chaseMaxRetry),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	_, err = c.client.EnqueueContext(ctx, task, opts...)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("enqueue %s: %w", ChaseTaskID(payload.Phase, payload.LeadID), err)
	}
	return true, nil
}

// connection is the Redis target and queue settings the client and worker
// share.
type connection struct {
	redis       asynq.RedisClientOpt
	queue       string
	concurrency int
}

func connect(cfg config.SchedulerConfig) (connection, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return connection{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return connection{}, err
	}

	conn := connection{redis: opt, queue: cfg.GetAsynqQueueName(), concurrency: cfg.GetAsynqConcurrency()}
	if conn.queue == "" {
		conn.queue = defaultQueue
	}
	if conn.concurrency < 1 {
		conn.concurrency = defaultConcurrency
	}
	return conn, nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	tlsConfig := opt.TLSConfig
	switch {
	case tlsConfig != nil && tlsInsecure:
		tlsConfig = tlsConfig.Clone()
		tlsConfig.InsecureSkipVerify = true
	case tlsConfig == nil && tlsInsecure:
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
