package departmentinfo

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// DepartmentInfoHandler handles department profile requests
type DepartmentInfoHandler struct {
	svc       *services.DepartmentInfoService
	validator *validation.Validator
}

// NewDepartmentInfoHandler creates a new department profile handler
func NewDepartmentInfoHandler(svc *services.DepartmentInfoService) *DepartmentInfoHandler {
	return &DepartmentInfoHandler{svc: svc, validator: validation.NewValidator()}
}

// Create handles POST /hod/department-info
func (h *DepartmentInfoHandler) Create(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.DepartmentInfoInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	info, err := h.svc.Create(c.UserContext(), actor, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, info)
}

// Get handles GET /hod/department-info
func (h *DepartmentInfoHandler) Get(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	info, err := h.svc.Get(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, info)
}

// GetByID handles GET /hod/department-info/by-id/:id
func (h *DepartmentInfoHandler) GetByID(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid department info ID")
	}

	info, err := h.svc.GetByID(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, info)
}

// Update handles PATCH /hod/department-info/:id
func (h *DepartmentInfoHandler) Update(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid department info ID")
	}

	var req services.UpdateDepartmentInfoInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	info, err := h.svc.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, info)
}

// Delete handles DELETE /hod/department-info/:id
func (h *DepartmentInfoHandler) Delete(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid department info ID")
	}

	if err := h.svc.Delete(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Department info deleted successfully", nil)
}
