package customers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"lead_intake_backend/internal/timeline"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const customerTimelineLimit = 50

// TimelineReader lists a customer's contact events.
type TimelineReader interface {
	Timeline(ctx context.Context, filter timeline.Filter, limit int) ([]timeline.Event, error)
}

type CustomerResponse struct {
	ID        uuid.UUID                `json:"id"`
	Name      *string                  `json:"name"`
	Email     *string                  `json:"email"`
	Phone     *string                  `json:"phone"`
	Status    Status                   `json:"status"`
	CreatedAt time.Time                `json:"createdAt"`
	Timeline  []timeline.EventResponse `json:"timeline"`
}

type Handler struct {
	resolver *Resolver
	timeline TimelineReader
}

func NewHandler(resolver *Resolver, timelineReader TimelineReader) *Handler {
	return &Handler{resolver: resolver, timeline: timelineReader}
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	ctx := c.Request.Context()
	customer, err := h.resolver.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		err = apperr.NotFound("customer not found")
	}
	if httpkit.HandleError(c, err) {
		return
	}

	events, err := h.timeline.Timeline(ctx, timeline.Filter{CustomerID: &customer.ID}, customerTimelineLimit)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, CustomerResponse{
		ID:        customer.ID,
		Name:      customer.Name,
		Email:     customer.PrimaryEmail,
		Phone:     customer.PrimaryPhone,
		Status:    customer.Status,
		CreatedAt: customer.CreatedAt,
		Timeline:  timeline.ToResponses(events),
	})
}
