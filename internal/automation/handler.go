package automation

import (
	"context"
	"net/http"

	"lead_intake_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Scheduler starts a chase by hand.
type Scheduler interface {
	Schedule(ctx context.Context, leadID uuid.UUID) (Schedule, error)
}

type Handler struct {
	svc Scheduler
}

func NewHandler(svc Scheduler) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) StartChase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	schedule, err := h.svc.Schedule(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusAccepted, schedule)
}
