package assignment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/handlers"
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/services"
	"github.com/sahilchouksey/kpi-tracker-api/services/storage"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
	"github.com/sahilchouksey/kpi-tracker-api/utils/validation"
)

// MaxUploadSize caps a submission file when the form element sets no limit.
const MaxUploadSize = 10 << 20

// AssignmentHandler handles pillar assignment, submission and review requests
type AssignmentHandler struct {
	svc       *services.AssignmentService
	store     storage.ObjectStore
	validator *validation.Validator
}

// NewAssignmentHandler creates a new assignment handler. store is nil when
// object storage is not configured.
func NewAssignmentHandler(svc *services.AssignmentService, store storage.ObjectStore) *AssignmentHandler {
	return &AssignmentHandler{svc: svc, store: store, validator: validation.NewValidator()}
}

// AssignPillar handles POST /qc/pillar/:id/assign
func (h *AssignmentHandler) AssignPillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	var req services.AssignPillarInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	assigned, err := h.svc.AssignPillar(c.UserContext(), actor, pillarID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, assigned)
}

// UnassignPillar handles DELETE /qc/pillar/:id/assign/:departmentId
func (h *AssignmentHandler) UnassignPillar(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}
	departmentID, ok := handlers.ParamID(c, "departmentId")
	if !ok {
		return response.BadRequest(c, "Invalid department ID")
	}

	if err := h.svc.UnassignPillar(c.UserContext(), actor, pillarID, departmentID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Assignment removed successfully", nil)
}

// ListPillarAssignments handles GET /qc/pillar/:id/assignments?status=
func (h *AssignmentHandler) ListPillarAssignments(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	pillarID, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid pillar ID")
	}

	rows, err := h.svc.ListPillarAssignments(c.UserContext(), actor, pillarID, c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, rows)
}

// Review handles PATCH /qc/review/:departmentKpiId
func (h *AssignmentHandler) Review(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "departmentKpiId")
	if !ok {
		return response.BadRequest(c, "Invalid department KPI ID")
	}

	var req services.ReviewKpiInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	dk, err := h.svc.Review(c.UserContext(), actor, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, dk)
}

// ListDepartmentKpis handles GET /department/kpi?status=
func (h *AssignmentHandler) ListDepartmentKpis(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	rows, err := h.svc.ListDepartmentKpis(c.UserContext(), actor, c.Query("status"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, rows)
}

// Submit handles PATCH /department/kpi/:id/submit
func (h *AssignmentHandler) Submit(c *fiber.Ctx) error {
	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid department KPI ID")
	}

	var req services.SubmitKpiInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	dk, err := h.svc.Submit(c.UserContext(), actor, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, dk)
}

// UploadResult is returned by the upload endpoint; URL goes into form_data.
type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadFile handles POST /department/kpi/:id/files (multipart: file, element_id)
func (h *AssignmentHandler) UploadFile(c *fiber.Ctx) error {
	if h.store == nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "File storage is not configured", "SERVICE_UNAVAILABLE")
	}

	actor, ok := handlers.Actor(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid department KPI ID")
	}

	dk, err := h.svc.SubmissionTarget(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}

	limit := int64(MaxUploadSize)
	if elementID := c.FormValue("element_id"); elementID != "" {
		attrs, found := fileElement(dk.KPI, elementID)
		if !found {
			return response.BadRequest(c, "element_id is not a file field of this KPI")
		}
		if !attrs.AllowsExtension(file.Filename) {
			return response.BadRequest(c, "File type is not accepted for this field")
		}
		if attrs.MaxSizeMB > 0 {
			limit = int64(attrs.MaxSizeMB) << 20
		}
	}
	if file.Size > limit {
		return response.BadRequest(c, "File is too large")
	}

	src, err := file.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read uploaded file")
	}
	defer src.Close()

	key := storage.ObjectKey(dk.DepartmentID, dk.ID, file.Filename)
	url, err := h.store.Upload(c.UserContext(), key, src, storage.ContentType(file.Filename))
	if err != nil {
		return response.FromError(c, apperr.Internal("failed to store file", err))
	}

	return response.Created(c, UploadResult{URL: url, Key: key, Filename: file.Filename, Size: file.Size})
}

func fileElement(kpi *model.KPI, elementID string) (*model.FileAttributes, bool) {
	if kpi == nil {
		return nil, false
	}
	schema, err := kpi.FormSchema()
	if err != nil {
		return nil, false
	}
	for _, el := range schema.Elements {
		if el.ID != elementID || el.Type != model.ElementFile {
			continue
		}
		attrs, ok := el.Attributes.(*model.FileAttributes)
		return attrs, ok
	}
	return nil, false
}
