package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"lead_intake_backend/internal/events"
	"lead_intake_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 0 }

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestEnqueueLeadChaseDeduplicatesByTaskID(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()
	leadID := uuid.NewString()
	payload := LeadChasePayload{LeadID: leadID, Phase: PhaseImmediate}

	first, err := client.EnqueueLeadChase(ctx, payload, 0)
	if err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	second, err := client.EnqueueLeadChase(ctx, payload, 0)
	if err != nil {
		t.Fatalf("second enqueue must not fail: %v", err)
	}
	if !first || second {
		t.Fatalf("first=%v second=%v, want true then false", first, second)
	}

	if !mr.Exists("asynq:{default}:t:chase_immediate_" + leadID) {
		t.Fatal("task must be stored under its deterministic id")
	}
}

func TestEnqueueLeadChaseSchedulesFollowup(t *testing.T) {
	client, mr := newTestClient(t)
	leadID := uuid.NewString()

	scheduled, err := client.EnqueueLeadChase(context.Background(), LeadChasePayload{LeadID: leadID, Phase: PhaseFollowup}, 4*time.Hour)
	if err != nil || !scheduled {
		t.Fatalf("followup enqueue: scheduled=%v err=%v", scheduled, err)
	}

	members, err := mr.ZMembers("asynq:{default}:scheduled")
	if err != nil {
		t.Fatalf("scheduled set: %v", err)
	}
	if len(members) != 1 || members[0] != "chase_followup_"+leadID {
		t.Fatalf("scheduled = %v", members)
	}
}

func TestEnqueueLeadChaseRejectsUnknownPhase(t *testing.T) {
	client, _ := newTestClient(t)
	if _, err := client.EnqueueLeadChase(context.Background(), LeadChasePayload{LeadID: uuid.NewString(), Phase: "weekly"}, 0); err == nil {
		t.Fatal("expected an error for an unknown phase")
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("expected an error without REDIS_URL")
	}
}

func TestChaseTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewLeadChaseTask(LeadChasePayload{LeadID: "abc", Phase: PhaseFollowup})
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskLeadChase {
		t.Fatalf("type = %q", task.Type())
	}
	payload, err := ParseLeadChasePayload(task)
	if err != nil || payload.LeadID != "abc" || payload.Phase != PhaseFollowup {
		t.Fatalf("payload = %+v, err = %v", payload, err)
	}
	if ChaseTaskID(PhaseImmediate, "abc") != "chase_immediate_abc" {
		t.Fatal("unexpected task id format")
	}
}

func TestHandleLeadChasePublishesAndPropagatesErrors(t *testing.T) {
	bus := events.NewInMemoryBus(logger.Nop())
	storeDown := errors.New("store down")

	var got events.LeadChaseDue
	bus.Subscribe(events.LeadChaseDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = e.(events.LeadChaseDue)
		return storeDown
	}))

	w := &Worker{bus: bus, log: logger.Nop()}
	leadID := uuid.New()
	task, _ := NewLeadChaseTask(LeadChasePayload{LeadID: leadID.String(), Phase: PhaseImmediate})

	if err := w.handleLeadChase(context.Background(), task); !errors.Is(err, storeDown) {
		t.Fatalf("err = %v, want subscriber error for retry", err)
	}
	if got.LeadID != leadID || got.Phase != PhaseImmediate {
		t.Fatalf("published %+v", got)
	}

	bad := asynq.NewTask(TaskLeadChase, []byte(`{"leadId":"nope"}`))
	if err := w.handleLeadChase(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload: err = %v, want SkipRetry", err)
	}

	weekly, _ := NewLeadChaseTask(LeadChasePayload{LeadID: leadID.String(), Phase: "weekly"})
	if err := w.handleLeadChase(context.Background(), weekly); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("unknown phase: err = %v, want SkipRetry", err)
	}
}

type fakePruner struct {
	before time.Time
	err    error
}

func (p *fakePruner) DeleteKeysBefore(_ context.Context, before time.Time) (int64, error) {
	p.before = before
	return 3, p.err
}

func TestIdempotencyKeyCleanupUsesRetention(t *testing.T) {
	pruner := &fakePruner{}
	cleanup := NewIdempotencyKeyCleanup(pruner, logger.Nop(), 0, 48*time.Hour)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cleanup.now = func() time.Time { return now }

	cleanup.cleanup(context.Background())

	if want := now.Add(-48 * time.Hour); !pruner.before.Equal(want) {
		t.Fatalf("cutoff = %s, want %s", pruner.before, want)
	}
	if cleanup.interval != defaultKeyCleanupInterval {
		t.Fatalf("interval = %s, want default", cleanup.interval)
	}

	pruner.err = errors.New("db down")
	cleanup.cleanup(context.Background())
}
