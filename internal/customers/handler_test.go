package customers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"lead_intake_backend/internal/timeline"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubTimeline struct {
	filter timeline.Filter
	events []timeline.Event
}

func (s *stubTimeline) Timeline(_ context.Context, filter timeline.Filter, _ int) ([]timeline.Event, error) {
	s.filter = filter
	return s.events, nil
}

func TestGetByIDReturnsCustomerWithTimeline(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &memStore{}
	resolver := NewResolver(store, nil)
	customer, err := resolver.ResolveOrCreate(context.Background(), Identity{Phone: "07400123456", Name: "Jane"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	events := &stubTimeline{events: []timeline.Event{{ID: uuid.New(), Channel: timeline.ChannelSMS, Direction: timeline.DirectionInbound, Body: "hi"}}}

	engine := gin.New()
	engine.GET("/customers/:id", NewHandler(resolver, events).GetByID)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/"+customer.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	var resp CustomerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != customer.ID || deref(resp.Phone) != "+447400123456" || len(resp.Timeline) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if events.filter.CustomerID == nil || *events.filter.CustomerID != customer.ID || events.filter.LeadID != nil {
		t.Fatalf("filter = %+v", events.filter)
	}

	missing := httptest.NewRecorder()
	engine.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/customers/"+uuid.NewString(), nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("unknown customer status = %d", missing.Code)
	}
}
