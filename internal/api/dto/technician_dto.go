package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	UserID           string  `json:"user_id" validate:"required"`
	Name             string  `json:"name" validate:"required"`
	Mobile           string  `json:"mobile"`
	Email            string  `json:"email" validate:"omitempty,email"`
	ServicePartnerID *string `json:"service_partner_id"`
}

// UpdateTechnicianRequest payload. Omitted fields are kept; an empty partner id clears it.
type UpdateTechnicianRequest struct {
	Name             string  `json:"name"`
	Mobile           string  `json:"mobile"`
	Email            string  `json:"email" validate:"omitempty,email"`
	ServicePartnerID *string `json:"service_partner_id"`
	Active           *bool   `json:"active"`
}

// AvailabilityRequest payload.
type AvailabilityRequest struct {
	State domain.TechnicianState `json:"state" validate:"required,oneof=available busy offline"`
}

// ServiceAreaRequest payload.
type ServiceAreaRequest struct {
	PostalCode string `json:"postal_code" validate:"required"`
	AreaName   string `json:"area_name"`
	City       string `json:"city"`
	Priority   *int   `json:"priority" validate:"omitempty,min=0"`
	Active     *bool  `json:"active"`
}

// UpdateServiceAreaRequest payload.
type UpdateServiceAreaRequest struct {
	AreaName string `json:"area_name"`
	City     string `json:"city"`
	Priority *int   `json:"priority" validate:"omitempty,min=0"`
	Active   *bool  `json:"active"`
}

// TechnicianResponse is the public view of a technician.
type TechnicianResponse struct {
	ID               string                 `json:"id"`
	Code             string                 `json:"code"`
	Name             string                 `json:"name"`
	UserID           string                 `json:"user_id"`
	ServicePartnerID *string                `json:"service_partner_id,omitempty"`
	Mobile           string                 `json:"mobile,omitempty"`
	Email            string                 `json:"email,omitempty"`
	State            domain.TechnicianState `json:"state"`
	Active           bool                   `json:"active"`
	CreatedAt        time.Time              `json:"created_at"`
}

// NewTechnicianResponse maps a technician.
func NewTechnicianResponse(t *domain.Technician) TechnicianResponse {
	return TechnicianResponse{
		ID:               t.ID,
		Code:             t.Code,
		Name:             t.Name,
		UserID:           t.UserID,
		ServicePartnerID: t.ServicePartnerID,
		Mobile:           t.Mobile,
		Email:            t.Email,
		State:            t.State,
		Active:           t.Active,
		CreatedAt:        t.CreatedAt,
	}
}

// ServiceAreaResponse is one postal code served by a technician.
type ServiceAreaResponse struct {
	ID           string `json:"id"`
	TechnicianID string `json:"technician_id"`
	PostalCode   string `json:"postal_code"`
	AreaName     string `json:"area_name,omitempty"`
	City         string `json:"city,omitempty"`
	Priority     int    `json:"priority"`
	Active       bool   `json:"active"`
}

// NewServiceAreaResponse maps a service area.
func NewServiceAreaResponse(a *domain.ServiceArea) ServiceAreaResponse {
	return ServiceAreaResponse{
		ID:           a.ID,
		TechnicianID: a.TechnicianID,
		PostalCode:   a.PostalCode,
		AreaName:     a.AreaName,
		City:         a.City,
		Priority:     a.Priority,
		Active:       a.Active,
	}
}

// CandidateResponse is a ranked technician for a postal code.
type CandidateResponse struct {
	Technician  TechnicianResponse `json:"technician"`
	Priority    int                `json:"area_priority"`
	ActiveCalls int                `json:"active_calls"`
}

// NewCandidatesResponse maps ranked candidates, keeping their order.
func NewCandidatesResponse(candidates []service.Candidate) []CandidateResponse {
	out := make([]CandidateResponse, 0, len(candidates))
	for i := range candidates {
		out = append(out, CandidateResponse{
			Technician:  NewTechnicianResponse(&candidates[i].Technician),
			Priority:    candidates[i].Priority,
			ActiveCalls: candidates[i].ActiveCalls,
		})
	}
	return out
}

// WorkloadResponse summarises a technician's calls.
type WorkloadResponse struct {
	TechnicianID      string  `json:"technician_id"`
	TotalCalls        int     `json:"total_calls"`
	ActiveCalls       int     `json:"active_calls"`
	CompletedCalls    int     `json:"completed_calls"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
}

// NewWorkloadResponse maps a workload summary.
func NewWorkloadResponse(w *domain.TechnicianWorkload) WorkloadResponse {
	return WorkloadResponse{
		TechnicianID:      w.TechnicianID,
		TotalCalls:        w.TotalCalls,
		ActiveCalls:       w.ActiveCalls,
		CompletedCalls:    w.CompletedCalls,
		AvgResolutionDays: w.AvgResolutionDays,
	}
}
