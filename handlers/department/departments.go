package department

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// DepartmentHandler handles department requests
type DepartmentHandler struct {
	svc       *services.DepartmentService
	validator *validation.Validator
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(svc *services.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{svc: svc, validator: validation.NewValidator()}
}

// ListDepartments handles GET /departments
func (h *DepartmentHandler) ListDepartments(c *fiber.Ctx) error {
	departments, err := h.svc.List(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, departments)
}

// CreateDepartment handles POST /departments
func (h *DepartmentHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.CreateDepartmentInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	dept, err := h.svc.Create(c.UserContext(), actor, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, dept)
}
