package pillar

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// PillarHandler handles pillar template requests
type PillarHandler struct {
	svc       *services.PillarService
	validator *validation.Validator
}

// NewPillarHandler creates a new pillar handler
func NewPillarHandler(svc *services.PillarService) *PillarHandler {
	return &PillarHandler{svc: svc, validator: validation.NewValidator()}
}

// CreatePillar handles POST /qc/pillar
func (h *PillarHandler) CreatePillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.CreatePillarInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	pillar, err := h.svc.Create(c.UserContext(), actor, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, pillar)
}

// ListPillars handles GET /qc/pillar. ?include=kpis embeds the KPI templates.
func (h *PillarHandler) ListPillars(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	pillars, err := h.svc.List(c.UserContext(), actor, c.Query("include") == "kpis")
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, pillars)
}

// GetWeightStatus handles GET /qc/pillar/weight
func (h *PillarHandler) GetWeightStatus(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	status, err := h.svc.WeightStatus(c.UserContext(), actor)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, status)
}

// GetPillar handles GET /qc/pillar/:id
func (h *PillarHandler) GetPillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	pillar, err := h.svc.Get(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, pillar)
}

// UpdatePillar handles PATCH /qc/pillar/:id
func (h *PillarHandler) UpdatePillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	var req services.UpdatePillarInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	pillar, err := h.svc.Update(c.UserContext(), actor, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, pillar)
}

// DeletePillar handles DELETE /qc/pillar/:id
func (h *PillarHandler) DeletePillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	if err := h.svc.Delete(c.UserContext(), actor, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Pillar deleted successfully", nil)
}
