package kpi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// KPIHandler handles KPI template requests under /qc/:pillarId/kpi
type KPIHandler struct {
	svc       *services.KPIService
	validator *validation.Validator
}

// NewKPIHandler creates a new KPI handler
func NewKPIHandler(svc *services.KPIService) *KPIHandler {
	return &KPIHandler{svc: svc, validator: validation.NewValidator()}
}

// CreateKPI handles POST /qc/:pillarId/kpi
func (h *KPIHandler) CreateKPI(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	var req services.CreateKPIInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body: "+err.Error())
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	kpi, err := h.svc.Create(c.UserContext(), actor, pillarID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, kpi)
}

// ListKPIs handles GET /qc/:pillarId/kpi
func (h *KPIHandler) ListKPIs(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	kpis, err := h.svc.List(c.UserContext(), actor, pillarID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, kpis)
}

// GetWeightStatus handles GET /qc/:pillarId/kpi/weight
func (h *KPIHandler) GetWeightStatus(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	status, err := h.svc.WeightStatus(c.UserContext(), actor, pillarID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, status)
}

// GetKPI handles GET /qc/:pillarId/kpi/:kpiId
func (h *KPIHandler) GetKPI(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}
	id, ok := handlers.ParamID(c, "kpiId")
	if !ok {
		return response.BadRequest(c, "Invalid KPI ID")
	}

	kpi, err := h.svc.Get(c.UserContext(), actor, pillarID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, kpi)
}

// UpdateKPI handles PATCH /qc/:pillarId/kpi/:kpiId
func (h *KPIHandler) UpdateKPI(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}
	id, ok := handlers.ParamID(c, "kpiId")
	if !ok {
		return response.BadRequest(c, "Invalid KPI ID")
	}

	var req services.UpdateKPIInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body: "+err.Error())
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	kpi, err := h.svc.Update(c.UserContext(), actor, pillarID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, kpi)
}

// DeleteKPI handles DELETE /qc/:pillarId/kpi/:kpiId
func (h *KPIHandler) DeleteKPI(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "pillarId")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}
	id, ok := handlers.ParamID(c, "kpiId")
	if !ok {
		return response.BadRequest(c, "Invalid KPI ID")
	}

	if err := h.svc.Delete(c.UserContext(), actor, pillarID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "KPI deleted successfully", nil)
}
