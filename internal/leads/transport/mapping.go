package transport

import (
	"lead_intake_backend/internal/customers"
	"lead_intake_backend/internal/leads/domain"
	"lead_intake_backend/internal/leads/intake"
	"lead_intake_backend/internal/leads/management"
	"lead_intake_backend/internal/timeline"
)

func ToLeadResponse(lead domain.Lead) LeadResponse {
	payload := map[string]any(lead.RawPayload)
	if payload == nil {
		payload = map[string]any{}
	}
	missing := make([]string, 0, len(lead.MissingFields))
	for _, f := range lead.MissingFields {
		missing = append(missing, string(f))
	}
	return LeadResponse{
		ID:                 lead.ID,
		Source:             lead.Source,
		Status:             lead.Status,
		CustomerID:         lead.CustomerID,
		Name:               lead.Name,
		Email:              lead.Email,
		Phone:              lead.Phone,
		RawPayload:         payload,
		MissingFields:      missing,
		QualificationNotes: lead.QualificationNotes,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

// ToIntakeResponse never reports lead fields for a duplicate, and a result
// without a lead is treated as one.
func ToIntakeResponse(result intake.Result) IntakeResponse {
	if result.Duplicate || result.Lead == nil {
		return IntakeResponse{
			Status:         IntakeStatusDuplicate,
			Message:        msgDuplicateDelivery,
			IdempotencyKey: result.IdempotencyKey,
		}
	}
	lead := result.Lead
	missing := make([]string, 0, len(lead.MissingFields))
	for _, f := range lead.MissingFields {
		missing = append(missing, string(f))
	}
	return IntakeResponse{
		Status:         IntakeStatusCreated,
		LeadID:         &lead.ID,
		LeadStatus:     string(lead.Status),
		MissingFields:  &missing,
		IdempotencyKey: result.IdempotencyKey,
	}
}

func ToCustomerSummary(c customers.Customer) CustomerSummary {
	return CustomerSummary{
		ID:     c.ID,
		Name:   c.Name,
		Email:  c.PrimaryEmail,
		Phone:  c.PrimaryPhone,
		Status: c.Status,
	}
}

func ToOpportunityResponse(o domain.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		LeadID:        o.LeadID,
		Stage:         o.Stage,
		ValueEstimate: o.ValueEstimate,
		CreatedAt:     o.CreatedAt,
	}
}

func ToDetailResponse(d management.Detail) LeadDetailResponse {
	resp := LeadDetailResponse{
		Lead:     ToLeadResponse(d.Lead),
		Timeline: timeline.ToResponses(d.Timeline),
	}
	if d.Customer != nil {
		summary := ToCustomerSummary(*d.Customer)
		resp.Customer = &summary
	}
	if d.Opportunity != nil {
		opp := ToOpportunityResponse(*d.Opportunity)
		resp.Opportunity = &opp
	}
	return resp
}

func ToQualifyResponse(r management.QualifyResult) QualifyResponse {
	return QualifyResponse{
		Lead:        ToLeadResponse(r.Lead),
		Opportunity: ToOpportunityResponse(r.Opportunity),
		Created:     r.Created,
	}
}

func ToInboxResponse(page management.InboxPage) InboxResponse {
	items := make([]LeadResponse, 0, len(page.Items))
	for _, l := range page.Items {
		items = append(items, ToLeadResponse(l))
	}
	return InboxResponse{Items: items, Total: page.Total, Limit: page.Limit, Offset: page.Offset}
}
