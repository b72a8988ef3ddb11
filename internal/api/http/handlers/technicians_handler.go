package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// TechniciansHandler manages technicians and their service areas.
type TechniciansHandler struct {
	technicians *service.TechnicianService
	activity    *service.ActivityService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicians *service.TechnicianService, activity *service.ActivityService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicians, activity: activity}
}

// Create POST /technicians.
func (h *TechniciansHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	technician, err := h.technicians.Create(c.UserContext(), service.TechnicianInput{
		UserID:           req.UserID,
		Name:             req.Name,
		Mobile:           req.Mobile,
		Email:            req.Email,
		ServicePartnerID: req.ServicePartnerID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTechnicianResponse(technician)})
}

// List GET /technicians.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	filters := service.TechnicianListFilters{
		ServicePartnerID: optional(c.Query("service_partner_id")),
		Active:           parseBool(c.Query("active")),
	}
	if state := c.Query("state"); state != "" {
		s := domain.TechnicianState(state)
		filters.State = &s
	}
	filters.Limit, filters.Offset = paging(c)
	technicians, err := h.technicians.List(c.UserContext(), filters)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianResponse, 0, len(technicians))
	for i := range technicians {
		items = append(items, dto.NewTechnicianResponse(&technicians[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /technicians/:id.
func (h *TechniciansHandler) Get(c *fiber.Ctx) error {
	technician, err := h.technicians.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTechnicianResponse(technician)})
}

// Update PATCH /technicians/:id.
func (h *TechniciansHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTechnicianRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	technician, err := h.technicians.Update(c.UserContext(), c.Params("id"), service.TechnicianInput{
		Name:             req.Name,
		Mobile:           req.Mobile,
		Email:            req.Email,
		ServicePartnerID: req.ServicePartnerID,
		Active:           req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTechnicianResponse(technician)})
}

// SetAvailability POST /technicians/:id/availability.
func (h *TechniciansHandler) SetAvailability(c *fiber.Ctx) error {
	var req dto.AvailabilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	technician, err := h.technicians.SetAvailability(c.UserContext(), actorID(c), c.Params("id"), req.State)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTechnicianResponse(technician)})
}

// Workload GET /technicians/:id/workload.
func (h *TechniciansHandler) Workload(c *fiber.Ctx) error {
	workload, err := h.technicians.Workload(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewWorkloadResponse(workload)})
}

// Activity GET /technicians/:id/activity.
func (h *TechniciansHandler) Activity(c *fiber.Ctx) error {
	technician, err := h.technicians.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	feed, err := h.activity.List(c.UserContext(), domain.RecordTypeTechnician, technician.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewActivityResponse(feed)})
}

// AddServiceArea POST /technicians/:id/areas.
func (h *TechniciansHandler) AddServiceArea(c *fiber.Ctx) error {
	var req dto.ServiceAreaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	area, err := h.technicians.AddServiceArea(c.UserContext(), c.Params("id"), service.ServiceAreaInput{
		PostalCode: req.PostalCode,
		AreaName:   req.AreaName,
		City:       req.City,
		Priority:   req.Priority,
		Active:     req.Active,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewServiceAreaResponse(area)})
}

// ListServiceAreas GET /technicians/:id/areas.
func (h *TechniciansHandler) ListServiceAreas(c *fiber.Ctx) error {
	areas, err := h.technicians.ListServiceAreas(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.ServiceAreaResponse, 0, len(areas))
	for i := range areas {
		items = append(items, dto.NewServiceAreaResponse(&areas[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateServiceArea PATCH /service-areas/:id.
func (h *TechniciansHandler) UpdateServiceArea(c *fiber.Ctx) error {
	var req dto.UpdateServiceAreaRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	area, err := h.technicians.UpdateServiceArea(c.UserContext(), c.Params("id"), service.ServiceAreaInput{
		AreaName: req.AreaName,
		City:     req.City,
		Priority: req.Priority,
		Active:   req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewServiceAreaResponse(area)})
}

// ForPostalCode GET /service-areas/:postal_code/technicians.
func (h *TechniciansHandler) ForPostalCode(c *fiber.Ctx) error {
	candidates, err := h.technicians.TechniciansForPostalCode(c.UserContext(), c.Params("postal_code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCandidatesResponse(candidates)})
}
