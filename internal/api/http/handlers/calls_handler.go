package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/service"
)

// CallsHandler exposes the service call lifecycle.
type CallsHandler struct {
	calls    *service.CallService
	activity *service.ActivityService
	now      func() time.Time
}

// NewCallsHandler constructs handler.
func NewCallsHandler(calls *service.CallService, activity *service.ActivityService) *CallsHandler {
	return &CallsHandler{calls: calls, activity: activity, now: time.Now}
}

// Create POST /calls.
func (h *CallsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, outcome, err := h.calls.CreateServiceCall(c.UserContext(), actorID(c), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":       dto.NewCallResponse(call, h.now()),
		"assignment": dto.NewAssignmentResponse(outcome),
	})
}

// List GET /calls.
func (h *CallsHandler) List(c *fiber.Ctx) error {
	filter := repository.CallFilter{
		TechnicianID:     optional(c.Query("technician_id")),
		ServicePartnerID: optional(c.Query("service_partner_id")),
		PostalCode:       optional(c.Query("postal_code")),
		SearchTerm:       optional(c.Query("q")),
		CallDateFrom:     parseTime(c.Query("from")),
		CallDateTo:       parseTime(c.Query("to")),
	}
	if states := c.Query("state"); states != "" {
		for _, part := range strings.Split(states, ",") {
			filter.States = append(filter.States, domain.CallState(strings.TrimSpace(part)))
		}
	}
	if callType := c.Query("call_type"); callType != "" {
		t := domain.CallType(callType)
		filter.CallType = &t
	}
	if c.QueryBool("sla_breached") {
		now := h.now()
		filter.SLADeadlineBefore = &now
		if len(filter.States) == 0 {
			filter.States = domain.NonTerminalCallStates()
		}
	}
	filter.Limit, filter.Offset = paging(c)

	calls, err := h.calls.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	now := h.now()
	items := make([]dto.CallResponse, 0, len(calls))
	for i := range calls {
		items = append(items, dto.NewCallResponse(&calls[i], now))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /calls/:id.
func (h *CallsHandler) Get(c *fiber.Ctx) error {
	call, err := h.calls.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// GetByReference GET /calls/ref/:reference.
func (h *CallsHandler) GetByReference(c *fiber.Ctx) error {
	call, err := h.calls.GetByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Confirm POST /calls/:id/confirm.
func (h *CallsHandler) Confirm(c *fiber.Ctx) error {
	call, err := h.calls.Confirm(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Assign POST /calls/:id/assign.
func (h *CallsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignCallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Assign(c.UserContext(), actorID(c), c.Params("id"), req.TechnicianID)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Start POST /calls/:id/start.
func (h *CallsHandler) Start(c *fiber.Ctx) error {
	call, err := h.calls.Start(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// PendingSpares POST /calls/:id/pending-spares.
func (h *CallsHandler) PendingSpares(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.MarkPendingSpares(c.UserContext(), actorID(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// PendingCustomer POST /calls/:id/pending-customer.
func (h *CallsHandler) PendingCustomer(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.MarkPendingCustomer(c.UserContext(), actorID(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Resolve POST /calls/:id/resolve.
func (h *CallsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveCallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Resolve(c.UserContext(), actorID(c), c.Params("id"), service.ResolveInput{
		Resolution:    req.Resolution,
		ServiceNotes:  req.ServiceNotes,
		PartsUsed:     req.PartsUsed,
		ServiceCharge: req.ServiceCharge,
		SpareCharge:   req.SpareCharge,
	})
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Close POST /calls/:id/close.
func (h *CallsHandler) Close(c *fiber.Ctx) error {
	var req dto.CloseCallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Close(c.UserContext(), actorID(c), c.Params("id"), req.OTP)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Cancel POST /calls/:id/cancel.
func (h *CallsHandler) Cancel(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Cancel(c.UserContext(), actorID(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// Reopen POST /calls/:id/reopen.
func (h *CallsHandler) Reopen(c *fiber.Ctx) error {
	var req dto.ReasonRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	call, err := h.calls.Reopen(c.UserContext(), actorID(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return h.respond(c, call)
}

// History GET /calls/:id/history.
func (h *CallsHandler) History(c *fiber.Ctx) error {
	entries, err := h.calls.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewHistoryResponse(entries)})
}

// Activity GET /calls/:id/activity.
func (h *CallsHandler) Activity(c *fiber.Ctx) error {
	call, err := h.calls.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	feed, err := h.activity.List(c.UserContext(), domain.RecordTypeCall, call.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityResponse(feed)})
}

// AddAttachment POST /calls/:id/attachments.
func (h *CallsHandler) AddAttachment(c *fiber.Ctx) error {
	var req dto.AttachmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	attachment, err := h.calls.AddAttachment(c.UserContext(), actorID(c), c.Params("id"), service.AttachmentInput{
		StorageKey: req.StorageKey,
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentResponse(attachment)})
}

// ListAttachments GET /calls/:id/attachments.
func (h *CallsHandler) ListAttachments(c *fiber.Ctx) error {
	attachments, err := h.calls.ListAttachments(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.NewAttachmentResponse(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func (h *CallsHandler) respond(c *fiber.Ctx, call *domain.ServiceCall) error {
	return c.JSON(fiber.Map{"data": dto.NewCallResponse(call, h.now())})
}
