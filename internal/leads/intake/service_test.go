package intake

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/events"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"

	"github.com/google/uuid"
)

type memRepo struct {
	keys      map[string]bool
	leads     []domain.Lead
	stolenKey string
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{keys: map[string]bool{}}
}

func (r *memRepo) KeyExists(_ context.Context, key string) (bool, error) {
	return r.keys[key], nil
}

func (r *memRepo) ClaimKey(_ context.Context, key string) (bool, error) {
	if key == r.stolenKey {
		r.keys[key] = true
	}
	if r.keys[key] {
		return false, nil
	}
	r.keys[key] = true
	return true, nil
}

func (r *memRepo) Create(_ context.Context, lead *domain.Lead) error {
	if r.createErr != nil {
		return r.createErr
	}
	lead.ID = uuid.New()
	lead.CreatedAt = time.Now()
	lead.UpdatedAt = lead.CreatedAt
	r.leads = append(r.leads, *lead)
	return nil
}

func (r *memRepo) Update(_ context.Context, lead *domain.Lead) error {
	for i := range r.leads {
		if r.leads[i].ID == lead.ID {
			r.leads[i] = *lead
			return nil
		}
	}
	return errors.New("not found")
}

type memEvents struct {
	entries []timeline.Entry
}

func (m *memEvents) Log(_ context.Context, entry timeline.Entry) (timeline.Event, error) {
	m.entries = append(m.entries, entry)
	return timeline.Event{ID: uuid.New(), Body: entry.Body, Meta: entry.Meta}, nil
}

// snapshotTx restores the in-memory state when the unit of work fails.
type snapshotTx struct {
	repo   *memRepo
	events *memEvents
}

func (tx snapshotTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	keys := make(map[string]bool, len(tx.repo.keys))
	for k, v := range tx.repo.keys {
		keys[k] = v
	}
	leads := append([]domain.Lead(nil), tx.repo.leads...)
	entries := append([]timeline.Entry(nil), tx.events.entries...)

	if err := fn(ctx); err != nil {
		tx.repo.keys = keys
		tx.repo.leads = leads
		tx.events.entries = entries
		return err
	}
	return nil
}

type stubCustomers struct {
	identities []customers.Identity
	id         uuid.UUID
}

func (s *stubCustomers) ResolveOrCreate(_ context.Context, identity customers.Identity) (customers.Customer, error) {
	s.identities = append(s.identities, identity)
	return customers.Customer{ID: s.id, Status: customers.StatusProspect}, nil
}

func (s *stubCustomers) Get(context.Context, uuid.UUID) (customers.Customer, error) {
	return customers.Customer{ID: s.id}, nil
}

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.published = append(p.published, event)
}

type fixture struct {
	svc       *Service
	repo      *memRepo
	events    *memEvents
	customers *stubCustomers
	publisher *recordingPublisher
}

func newFixture() fixture {
	repo := newMemRepo()
	evts := &memEvents{}
	cust := &stubCustomers{id: uuid.New()}
	pub := &recordingPublisher{}
	svc := New(Deps{
		Repo:      repo,
		Tx:        snapshotTx{repo: repo, events: evts},
		Customers: cust,
		Events:    evts,
		Publisher: pub,
	})
	return fixture{svc: svc, repo: repo, events: evts, customers: cust, publisher: pub}
}

func TestIntakeFromWebhookCreatesLeadNeedingInfo(t *testing.T) {
	f := newFixture()
	payload := domain.Payload{"full_name": "Jane Doe", "phone_number": "07400 123456", "postcode": "SW1A 1AA"}

	res, err := f.svc.IntakeFromWebhook(context.Background(), domain.SourceFacebook, payload, "fb-1")
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if res.Duplicate || res.Lead == nil {
		t.Fatalf("expected a created lead, got %+v", res)
	}

	lead := res.Lead
	if lead.Status != domain.StatusNeedsInfo {
		t.Fatalf("status = %s, want NEEDS_INFO", lead.Status)
	}
	want := []domain.MissingField{domain.MissingProductInterest, domain.MissingTimeframe}
	if !reflect.DeepEqual(lead.MissingFields, want) {
		t.Fatalf("missing = %v, want %v", lead.MissingFields, want)
	}
	if lead.PhoneNumber() != "+447400123456" {
		t.Fatalf("phone = %q, want canonical", lead.PhoneNumber())
	}
	if lead.CustomerID == nil || *lead.CustomerID != f.customers.id {
		t.Fatal("lead must be linked to the resolved customer")
	}
	if got := f.customers.identities[0]; got.Phone != "+447400123456" || got.Name != "Jane Doe" {
		t.Fatalf("resolver identity = %+v", got)
	}

	if len(f.events.entries) != 1 {
		t.Fatalf("events = %d, want 1", len(f.events.entries))
	}
	entry := f.events.entries[0]
	if entry.Body != "Lead received from facebook" || entry.Channel != timeline.ChannelSystem || entry.Direction != timeline.DirectionInternal {
		t.Fatalf("unexpected event %+v", entry)
	}
	if entry.Meta["idempotency_key"] != "facebook:fb-1" || entry.Meta["source"] != "facebook" {
		t.Fatalf("unexpected meta %v", entry.Meta)
	}

	if len(f.publisher.published) != 1 {
		t.Fatalf("published = %d, want 1", len(f.publisher.published))
	}
	created, ok := f.publisher.published[0].(events.LeadCreated)
	if !ok || created.Status != string(domain.StatusNeedsInfo) || created.LeadID != lead.ID {
		t.Fatalf("unexpected published event %+v", f.publisher.published[0])
	}
}

func TestIntakeFromWebhookDeduplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	payload := domain.Payload{"name": "Sam", "email": "sam@example.com"}

	first, err := f.svc.IntakeFromWebhook(ctx, domain.SourceWebsite, payload, "")
	if err != nil || first.Duplicate {
		t.Fatalf("first delivery: %+v, %v", first, err)
	}

	reordered := domain.Payload{"email": "sam@example.com", "name": "Sam"}
	second, err := f.svc.IntakeFromWebhook(ctx, domain.SourceWebsite, reordered, "")
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate || second.Lead != nil {
		t.Fatalf("expected duplicate, got %+v", second)
	}
	if second.IdempotencyKey != first.IdempotencyKey {
		t.Fatalf("keys differ: %q vs %q", first.IdempotencyKey, second.IdempotencyKey)
	}
	if len(f.repo.leads) != 1 || len(f.events.entries) != 1 {
		t.Fatalf("leads=%d events=%d, want exactly one of each", len(f.repo.leads), len(f.events.entries))
	}
}

func TestIntakeFromWebhookLostClaimRaceIsDuplicate(t *testing.T) {
	f := newFixture()
	f.repo.stolenKey = "instagram:ig-9"

	res, err := f.svc.IntakeFromWebhook(context.Background(), domain.SourceInstagram, domain.Payload{"name": "x"}, "ig-9")
	if err != nil {
		t.Fatalf("lost race must not be an error: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("lost race must report duplicate")
	}
	if len(f.repo.leads) != 0 || len(f.publisher.published) != 0 {
		t.Fatal("lost race must not create or publish anything")
	}
}

func TestIntakeFromWebhookRollsBackKeyOnFailure(t *testing.T) {
	f := newFixture()
	f.repo.createErr = errors.New("insert failed")

	if _, err := f.svc.IntakeFromWebhook(context.Background(), domain.SourceWebsite, domain.Payload{"name": "x"}, "w-1"); err == nil {
		t.Fatal("expected storage error")
	}
	if f.repo.keys["website:w-1"] {
		t.Fatal("failed intake must not keep the idempotency key")
	}

	f.repo.createErr = nil
	res, err := f.svc.IntakeFromWebhook(context.Background(), domain.SourceWebsite, domain.Payload{"name": "x"}, "w-1")
	if err != nil || res.Duplicate {
		t.Fatalf("retry after failure must create the lead: %+v, %v", res, err)
	}
}

func TestCreateManual(t *testing.T) {
	f := newFixture()

	lead, err := f.svc.CreateManual(context.Background(), ManualInput{
		Source:  "manual",
		Name:    "  Alex  ",
		Email:   "Alex@Example.com",
		Payload: domain.Payload{"postcode": "M1 1AE", "product_interest": "boiler", "timeframe": "now"},
	})
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	if lead.Status != domain.StatusNew || len(lead.MissingFields) != 0 {
		t.Fatalf("complete manual lead: status=%s missing=%v", lead.Status, lead.MissingFields)
	}
	if lead.Email == nil || *lead.Email != "alex@example.com" {
		t.Fatal("email must be normalized")
	}
	if f.events.entries[0].Body != "Lead created manually from manual" {
		t.Fatalf("event body = %q", f.events.entries[0].Body)
	}
}

func TestCreateManualRejectsUnknownSource(t *testing.T) {
	f := newFixture()
	_, err := f.svc.CreateManual(context.Background(), ManualInput{Source: "tiktok"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if len(f.repo.leads) != 0 {
		t.Fatal("nothing may be stored for an invalid source")
	}
}
