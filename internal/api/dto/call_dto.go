package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CreateCallRequest payload.
type CreateCallRequest struct {
	ServiceType          domain.ServiceType    `json:"service_type" validate:"omitempty,oneof=inservice outservice"`
	CallType             domain.CallType       `json:"call_type" validate:"required"`
	Priority             *int                  `json:"priority" validate:"omitempty,min=0,max=3"`
	CustomerName         string                `json:"customer_name" validate:"required"`
	Mobile               string                `json:"mobile"`
	Email                string                `json:"email" validate:"omitempty,email"`
	Address              string                `json:"address"`
	PostalCode           string                `json:"postal_code"`
	ProductID            *string               `json:"product_id"`
	SerialNumber         string                `json:"serial_number"`
	WarrantyType         domain.WarrantyType   `json:"warranty_type" validate:"omitempty,oneof=none limited full"`
	WarrantyDurationDays int                   `json:"warranty_duration_days" validate:"min=0"`
	PurchaseDate         string                `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	WarrantyStatus       domain.WarrantyStatus `json:"warranty_status"`
	NatureOfComplaint    string                `json:"nature_of_complaint"`
	Symptoms             string                `json:"symptoms"`
	TechnicianID         *string               `json:"technician_id"`
	CallDate             *time.Time            `json:"call_date"`
	ServiceCharge        float64               `json:"service_charge" validate:"min=0"`
	SpareCharge          float64               `json:"spare_charge" validate:"min=0"`
}

// ToInput converts the request into a service input. Validate must run first.
func (r CreateCallRequest) ToInput() service.CreateCallInput {
	input := service.CreateCallInput{
		ServiceType:          r.ServiceType,
		CallType:             r.CallType,
		Priority:             r.Priority,
		CustomerName:         r.CustomerName,
		Mobile:               r.Mobile,
		Email:                r.Email,
		Address:              r.Address,
		PostalCode:           r.PostalCode,
		ProductID:            r.ProductID,
		SerialNumber:         r.SerialNumber,
		WarrantyType:         r.WarrantyType,
		WarrantyDurationDays: r.WarrantyDurationDays,
		WarrantyStatus:       r.WarrantyStatus,
		NatureOfComplaint:    r.NatureOfComplaint,
		Symptoms:             r.Symptoms,
		TechnicianID:         r.TechnicianID,
		CallDate:             r.CallDate,
		ServiceCharge:        r.ServiceCharge,
		SpareCharge:          r.SpareCharge,
	}
	if r.PurchaseDate != "" {
		if purchased, err := time.Parse(DateLayout, r.PurchaseDate); err == nil {
			input.PurchaseDate = &purchased
		}
	}
	return input
}

// AssignCallRequest payload. A nil technician triggers auto-assignment.
type AssignCallRequest struct {
	TechnicianID *string `json:"technician_id"`
}

// ReasonRequest carries an optional comment for pending, cancel and reopen actions.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ResolveCallRequest payload.
type ResolveCallRequest struct {
	Resolution    string   `json:"resolution" validate:"required"`
	ServiceNotes  string   `json:"service_notes"`
	PartsUsed     string   `json:"parts_used"`
	ServiceCharge *float64 `json:"service_charge" validate:"omitempty,min=0"`
	SpareCharge   *float64 `json:"spare_charge" validate:"omitempty,min=0"`
}

// CloseCallRequest payload.
type CloseCallRequest struct {
	OTP string `json:"otp" validate:"required,max=12"`
}

// AttachmentRequest describes attachment input.
type AttachmentRequest struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes" validate:"min=0"`
}

// CallResponse is the public view of a service call. The closure OTP is never exposed.
type CallResponse struct {
	ID                   string                `json:"id"`
	Reference            string                `json:"reference"`
	ServiceType          domain.ServiceType    `json:"service_type"`
	CallType             domain.CallType       `json:"call_type"`
	Priority             int                   `json:"priority"`
	State                domain.CallState      `json:"state"`
	AllowedActions       []service.CallAction  `json:"allowed_actions"`
	CustomerName         string                `json:"customer_name"`
	Mobile               string                `json:"mobile,omitempty"`
	Email                string                `json:"email,omitempty"`
	Address              string                `json:"address,omitempty"`
	PostalCode           string                `json:"postal_code,omitempty"`
	ProductID            *string               `json:"product_id,omitempty"`
	SerialNumber         string                `json:"serial_number,omitempty"`
	WarrantyType         domain.WarrantyType   `json:"warranty_type,omitempty"`
	WarrantyDurationDays int                   `json:"warranty_duration_days"`
	PurchaseDate         *time.Time            `json:"purchase_date,omitempty"`
	WarrantyStatus       domain.WarrantyStatus `json:"warranty_status"`
	WarrantyExpiryDate   *time.Time            `json:"warranty_expiry_date,omitempty"`
	NatureOfComplaint    string                `json:"nature_of_complaint,omitempty"`
	Symptoms             string                `json:"symptoms,omitempty"`
	TechnicianID         *string               `json:"technician_id,omitempty"`
	ServicePartnerID     *string               `json:"service_partner_id,omitempty"`
	AutoAssigned         bool                  `json:"auto_assigned"`
	CallDate             time.Time             `json:"call_date"`
	SLADeadline          time.Time             `json:"sla_deadline"`
	SLABreached          bool                  `json:"sla_breached"`
	ConfirmedDate        *time.Time            `json:"confirmed_date,omitempty"`
	AssignedDate         *time.Time            `json:"assigned_date,omitempty"`
	StartDate            *time.Time            `json:"start_date,omitempty"`
	ResolvedDate         *time.Time            `json:"resolved_date,omitempty"`
	ClosedDate           *time.Time            `json:"closed_date,omitempty"`
	OTPPending           bool                  `json:"otp_pending"`
	Resolution           string                `json:"resolution,omitempty"`
	ServiceNotes         string                `json:"service_notes,omitempty"`
	PartsUsed            string                `json:"parts_used,omitempty"`
	ServiceCharge        float64               `json:"service_charge"`
	SpareCharge          float64               `json:"spare_charge"`
	TotalCharge          float64               `json:"total_charge"`
	ResponseTimeHours    float64               `json:"response_time_hours"`
	ResolutionTimeHours  float64               `json:"resolution_time_hours"`
	ClosingDays          int                   `json:"closing_days"`
	AgingDays            int                   `json:"aging_days"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// NewCallResponse maps a call for the API, evaluating SLA state at now.
func NewCallResponse(c *domain.ServiceCall, now time.Time) CallResponse {
	return CallResponse{
		ID:                   c.ID,
		Reference:            c.Reference,
		ServiceType:          c.ServiceType,
		CallType:             c.CallType,
		Priority:             c.Priority,
		State:                c.State,
		AllowedActions:       service.AllowedActions(c.State),
		CustomerName:         c.CustomerName,
		Mobile:               c.Mobile,
		Email:                c.Email,
		Address:              c.Address,
		PostalCode:           c.PostalCode,
		ProductID:            c.ProductID,
		SerialNumber:         c.SerialNumber,
		WarrantyType:         c.WarrantyType,
		WarrantyDurationDays: c.WarrantyDurationDays,
		PurchaseDate:         c.PurchaseDate,
		WarrantyStatus:       c.WarrantyStatus,
		WarrantyExpiryDate:   c.WarrantyExpiryDate,
		NatureOfComplaint:    c.NatureOfComplaint,
		Symptoms:             c.Symptoms,
		TechnicianID:         c.TechnicianID,
		ServicePartnerID:     c.ServicePartnerID,
		AutoAssigned:         c.AutoAssigned,
		CallDate:             c.CallDate,
		SLADeadline:          c.SLADeadline,
		SLABreached:          c.IsSLABreached(now),
		ConfirmedDate:        c.ConfirmedDate,
		AssignedDate:         c.AssignedDate,
		StartDate:            c.StartDate,
		ResolvedDate:         c.ResolvedDate,
		ClosedDate:           c.ClosedDate,
		OTPPending:           c.CurrentOTP != nil,
		Resolution:           c.Resolution,
		ServiceNotes:         c.ServiceNotes,
		PartsUsed:            c.PartsUsed,
		ServiceCharge:        c.ServiceCharge,
		SpareCharge:          c.SpareCharge,
		TotalCharge:          c.TotalCharge(),
		ResponseTimeHours:    c.ResponseTimeHours(),
		ResolutionTimeHours:  c.ResolutionTimeHours(),
		ClosingDays:          c.ClosingDays(),
		AgingDays:            c.AgingDays(now),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// AssignmentResponse reports the outcome of an assignment attempt.
type AssignmentResponse struct {
	Assigned     bool    `json:"assigned"`
	AutoAssigned bool    `json:"auto_assigned"`
	TechnicianID *string `json:"technician_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// NewAssignmentResponse maps an assignment outcome. A nil outcome means nothing was attempted.
func NewAssignmentResponse(o *service.AssignmentOutcome) *AssignmentResponse {
	if o == nil {
		return nil
	}
	resp := &AssignmentResponse{Assigned: o.Assigned, AutoAssigned: o.AutoAssigned, Reason: o.Reason}
	if o.Technician != nil {
		id := o.Technician.ID
		resp.TechnicianID = &id
	}
	return resp
}

// HistoryEntryResponse is one notification transaction. The OTP code is withheld.
type HistoryEntryResponse struct {
	ID          string                  `json:"id"`
	Type        domain.NotificationType `json:"type"`
	OldStatus   domain.CallState        `json:"old_status,omitempty"`
	NewStatus   domain.CallState        `json:"new_status"`
	Description string                  `json:"description"`
	HasOTP      bool                    `json:"has_otp"`
	OTPVerified bool                    `json:"otp_verified"`
	CreatedBy   *string                 `json:"created_by,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewHistoryResponse maps notification transactions.
func NewHistoryResponse(entries []domain.NotificationTransaction) []HistoryEntryResponse {
	items := make([]HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		items = append(items, HistoryEntryResponse{
			ID:          e.ID,
			Type:        e.Type,
			OldStatus:   e.OldStatus,
			NewStatus:   e.NewStatus,
			Description: e.Description,
			HasOTP:      e.HasOTP(),
			OTPVerified: e.OTPVerified,
			CreatedBy:   e.CreatedBy,
			CreatedAt:   e.CreatedAt,
		})
	}
	return items
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	StorageKey string    `json:"storage_key"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type,omitempty"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAttachmentResponse maps attachment metadata.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		StorageKey: a.StorageKey,
		FileName:   a.FileName,
		MimeType:   a.MimeType,
		SizeBytes:  a.SizeBytes,
		CreatedAt:  a.CreatedAt,
	}
}

// ActivityResponse is one activity feed entry.
type ActivityResponse struct {
	ID        string              `json:"id"`
	Kind      domain.ActivityKind `json:"kind"`
	Body      string              `json:"body"`
	UserID    *string             `json:"user_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewActivityResponse maps an activity feed.
func NewActivityResponse(items []domain.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, ActivityResponse{ID: a.ID, Kind: a.Kind, Body: a.Body, UserID: a.UserID, CreatedAt: a.CreatedAt})
	}
	return out
}
