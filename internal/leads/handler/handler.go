package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/intake"
	"lead_intake_backend/internal/leads/management"
	"lead_intake_backend/internal/leads/transport"
	"lead_intake_backend/platform/apperr"
	"lead_intake_backend/platform/httpkit"
	"lead_intake_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	maxBodyBytes = 1 << 20
)

// Intake accepts new leads.
type Intake interface {
	IntakeFromWebhook(ctx context.Context, source domain.Source, payload domain.Payload, externalID string) (intake.Result, error)
	CreateManual(ctx context.Context, in intake.ManualInput) (domain.Lead, error)
}

// Management runs the lead lifecycle.
type Management interface {
	Get(ctx context.Context, id uuid.UUID) (management.Detail, error)
	Update(ctx context.Context, id uuid.UUID, patch management.Patch) (domain.Lead, error)
	Qualify(ctx context.Context, id uuid.UUID) (management.QualifyResult, error)
	Disqualify(ctx context.Context, id uuid.UUID, notes string) (domain.Lead, error)
	RequestInfo(ctx context.Context, id uuid.UUID) (management.RequestInfoResult, error)
	Inbox(ctx context.Context, limit, offset int) (management.InboxPage, error)
}

type Handler struct {
	intake Intake
	mgmt   Management
	val    *validator.Validator
}

func New(intakeSvc Intake, mgmt Management, val *validator.Validator) *Handler {
	return &Handler{intake: intakeSvc, mgmt: mgmt, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/inbox", h.Inbox)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.POST("/:id/qualify", h.Qualify)
	rg.POST("/:id/disqualify", h.Disqualify)
	rg.POST("/:id/request-info", h.RequestInfo)
}

// Webhook accepts an arbitrary JSON object from a lead source. Lead-form
// field lists are flattened first and their lead id stands in for a missing
// external_id. A redelivery answers 200 with status "duplicate"; a new lead
// answers 201 with its id, status and missing fields.
func (h *Handler) Webhook(c *gin.Context) {
	var payload domain.Payload
	if err := decodeJSON(c, &payload); err != nil || payload == nil {
		httpkit.HandleError(c, apperr.BadRequest("payload must be a JSON object"))
		return
	}

	payload, formLeadID := domain.FlattenFormFields(payload)
	externalID := c.Query("external_id")
	if externalID == "" {
		externalID = formLeadID
	}

	source := domain.SourceFromWebhook(c.Param("source"))
	result, err := h.intake.IntakeFromWebhook(c.Request.Context(), source, payload, externalID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.ToIntakeResponse(result)
	status := http.StatusCreated
	if resp.Status == transport.IntakeStatusDuplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, resp)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := decodeJSON(c, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.intake.CreateManual(c.Request.Context(), intake.ManualInput{
		Source:  req.Source,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Payload: domain.Payload(req.Payload),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.ToLeadResponse(lead))
}

func (h *Handler) Inbox(c *gin.Context) {
	var q transport.InboxQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	page, err := h.mgmt.Inbox(c.Request.Context(), q.Limit, q.Offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToInboxResponse(page))
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	detail, err := h.mgmt.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToDetailResponse(detail))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := decodeJSON(c, &req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.mgmt.Update(c.Request.Context(), id, req.Patch())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) Qualify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.Qualify(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpkit.JSON(c, status, transport.ToQualifyResponse(result))
}

func (h *Handler) Disqualify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.DisqualifyRequest
	if err := decodeJSON(c, &req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.mgmt.Disqualify(c.Request.Context(), id, req.Notes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) RequestInfo(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.mgmt.RequestInfo(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.RequestInfoResponse{
		Lead:           transport.ToLeadResponse(result.Lead),
		ChaseScheduled: result.ChaseScheduled,
	})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}

// decodeJSON keeps numbers as json.Number so payload values survive a round
// trip through Postgres unchanged.
func decodeJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return io.EOF
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(dst)
}
