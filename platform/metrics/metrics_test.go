package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddlewareAndHandlerExposeCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	engine := gin.New()
	engine.Use(m.Middleware())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	m.IncIntake("website", "created")

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `http_requests_total{method="GET",path="/ping",status="200"} 1`) {
		t.Errorf("missing request counter in exposition:\n%s", body)
	}
	if !strings.Contains(body, `leads_intake_total{outcome="created",source="website"} 1`) {
		t.Errorf("missing intake counter in exposition:\n%s", body)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.IncIntake("website", "created")
	m.IncTransition("NEW")
	m.IncChase("immediate", "sent")
	m.IncSMS("sent")
}

func TestNewDoesNotShareRegistry(t *testing.T) {
	// Two instances must not collide on registration.
	_ = New()
	_ = New()
}
