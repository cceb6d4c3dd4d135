package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentService links pillar templates to departments and drives the
// submission and review cycle of each department KPI.
type AssignmentService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(db *gorm.DB, log *logger.Logger) *AssignmentService {
	return &AssignmentService{db: db, log: log, now: time.Now}
}

type AssignPillarInput struct {
	DepartmentIDs []uint `json:"department_ids" validate:"required,min=1,dive,gt=0"`
	AcademicYear  string `json:"academic_year" validate:"required,academic_year"`
}

type SubmitKpiInput struct {
	FormData     map[string]interface{} `json:"form_data" validate:"required"`
	CurrentValue *float64               `json:"current_value"`
}

type ReviewKpiInput struct {
	Status   string `json:"status" validate:"required,oneof=approved redo"`
	Comments string `json:"comments" validate:"max=2000"`
}

const departmentKpiNotFound = "department kpi not found"

func parseStatusFilter(status string) (model.KpiStatus, error) {
	if status == "" {
		return "", nil
	}
	s := model.KpiStatus(status)
	if !s.Valid() {
		return "", apperr.BadRequest("unknown status %q", status)
	}
	return s, nil
}

// AssignPillar assigns one of the caller's pillars to departments. Each
// department receives a pending row per KPI. Existing assignments are kept.
func (s *AssignmentService) AssignPillar(ctx context.Context, actor Actor, pillarID uint, in AssignPillarInput) ([]model.DepartmentPillar, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	var assigned []model.DepartmentPillar
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pillar model.Pillar
		if err := ownedPillar(tx, actor.UserID, pillarID).First(&pillar).Error; err != nil {
			return err
		}

		ids := uniqueIDs(in.DepartmentIDs)
		var found int64
		if err := tx.Model(&model.Department{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			return err
		}
		if int(found) != len(ids) {
			return apperr.BadRequest("one or more departments do not exist")
		}

		var kpiIDs []uint
		if err := tx.Model(&model.KPI{}).Where("pillar_template_id = ?", pillarID).Pluck("id", &kpiIDs).Error; err != nil {
			return err
		}

		for _, deptID := range ids {
			dp := model.DepartmentPillar{}
			if err := tx.Where(model.DepartmentPillar{DepartmentID: deptID, PillarID: pillarID}).
				Attrs(model.DepartmentPillar{AcademicYear: in.AcademicYear, AssignedBy: actor.UserID}).
				FirstOrCreate(&dp).Error; err != nil {
				return err
			}

			if len(kpiIDs) > 0 {
				rows := make([]model.DepartmentKpi, 0, len(kpiIDs))
				for _, kpiID := range kpiIDs {
					rows = append(rows, model.DepartmentKpi{
						DepartmentID:       deptID,
						KpiID:              kpiID,
						DepartmentPillarID: dp.ID,
						KpiStatus:          model.KpiPending,
					})
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
					return err
				}
			}
			assigned = append(assigned, dp)
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, pillarNotFound)
	}

	s.log.Info("pillar assigned", "pillar_id", pillarID, "departments", len(assigned), "user_id", actor.UserID)
	return assigned, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// UnassignPillar removes a department's assignment and its submissions.
func (s *AssignmentService) UnassignPillar(ctx context.Context, actor Actor, pillarID, departmentID uint) error {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pillar model.Pillar
		if err := ownedPillar(tx, actor.UserID, pillarID).First(&pillar).Error; err != nil {
			return err
		}

		var dp model.DepartmentPillar
		if err := tx.Where("pillar_id = ? AND department_id = ?", pillarID, departmentID).First(&dp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("assignment not found")
			}
			return err
		}

		if err := tx.Where("department_pillar_id = ?", dp.ID).Delete(&model.DepartmentKpi{}).Error; err != nil {
			return err
		}
		return tx.Delete(&dp).Error
	})
	if err != nil {
		return dbError(err, pillarNotFound)
	}

	s.log.Info("pillar unassigned", "pillar_id", pillarID, "department_id", departmentID, "user_id", actor.UserID)
	return nil
}

// ListPillarAssignments returns every department submission under one of the
// caller's pillars, optionally filtered by status.
func (s *AssignmentService) ListPillarAssignments(ctx context.Context, actor Actor, pillarID uint, status string) ([]model.DepartmentKpi, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var pillar model.Pillar
	if err := ownedPillar(db, actor.UserID, pillarID).First(&pillar).Error; err != nil {
		return nil, dbError(err, pillarNotFound)
	}

	q := db.Where("kpi_id IN (?)", db.Model(&model.KPI{}).Select("id").Where("pillar_template_id = ?", pillarID))
	if filter != "" {
		q = q.Where("kpi_status = ?", filter)
	}

	rows := []model.DepartmentKpi{}
	if err := q.Preload("KPI").Preload("Department").Order("department_id ASC, kpi_id ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Internal("failed to list assignments", err)
	}
	return rows, nil
}

// ListDepartmentKpis returns the caller's department submissions.
func (s *AssignmentService) ListDepartmentKpis(ctx context.Context, actor Actor, status string) ([]model.DepartmentKpi, error) {
	if err := RequireAnyRole(actor, model.RoleHOD, model.RoleFaculty); err != nil {
		return nil, err
	}
	filter, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadActor(db, actor)
	if err != nil {
		return nil, err
	}
	if user.DeptID == nil {
		return []model.DepartmentKpi{}, nil
	}

	q := db.Where("department_id = ?", *user.DeptID)
	if filter != "" {
		q = q.Where("kpi_status = ?", filter)
	}

	rows := []model.DepartmentKpi{}
	if err := q.Preload("KPI.Pillar").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, apperr.Internal("failed to list department kpis", err)
	}
	return rows, nil
}

// lockDepartmentKpi loads a submission row with a row lock.
func lockDepartmentKpi(tx *gorm.DB, id uint) (*model.DepartmentKpi, error) {
	var dk model.DepartmentKpi
	if err := lockRow(tx, &dk, id); err != nil {
		return nil, err
	}
	return &dk, nil
}

// Submit records a department's data for a KPI. It is accepted while the row is
// pending or sent back for redo, and leaves the row pending review.
func (s *AssignmentService) Submit(ctx context.Context, actor Actor, id uint, in SubmitKpiInput) (*model.DepartmentKpi, error) {
	if err := RequireAnyRole(actor, model.RoleHOD, model.RoleFaculty); err != nil {
		return nil, err
	}

	var dk *model.DepartmentKpi
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if dk, err = lockDepartmentKpi(tx, id); err != nil {
			return err
		}

		user, err := loadActor(tx, actor)
		if err != nil {
			return err
		}
		if !user.BelongsTo(dk.DepartmentID) {
			return apperr.Forbidden("this kpi is assigned to another department")
		}

		if dk.KpiStatus != model.KpiPending && !model.CanTransition(dk.KpiStatus, model.KpiPending) {
			return apperr.BadRequest("a %s submission cannot be changed", dk.KpiStatus)
		}

		var kpi model.KPI
		if err := tx.First(&kpi, dk.KpiID).Error; err != nil {
			return err
		}
		schema, err := kpi.FormSchema()
		if err != nil {
			return apperr.Internal("stored form schema is unreadable", err)
		}
		if err := schema.ValidateSubmission(in.FormData); err != nil {
			return prefixFields("form_data", err)
		}

		raw, err := json.Marshal(in.FormData)
		if err != nil {
			return apperr.BadRequest("form_data could not be encoded")
		}

		now := s.now()
		updates := map[string]interface{}{
			"form_data":     datatypes.JSON(raw),
			"current_value": in.CurrentValue,
			"kpi_status":    model.KpiPending,
			"submitted_by":  actor.UserID,
			"submitted_at":  now,
		}
		if err := tx.Model(dk).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(dk, dk.ID).Error
	})
	if err != nil {
		return nil, dbError(err, departmentKpiNotFound)
	}

	s.log.Info("kpi submitted", "department_kpi_id", id, "user_id", actor.UserID)
	return dk, nil
}

// SubmissionTarget returns the department KPI, with its template, that the
// caller may attach files to. The same department and status rules as Submit apply.
func (s *AssignmentService) SubmissionTarget(ctx context.Context, actor Actor, id uint) (*model.DepartmentKpi, error) {
	if err := RequireAnyRole(actor, model.RoleHOD, model.RoleFaculty); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var dk model.DepartmentKpi
	if err := db.Preload("KPI").First(&dk, id).Error; err != nil {
		return nil, dbError(err, departmentKpiNotFound)
	}

	user, err := loadActor(db, actor)
	if err != nil {
		return nil, dbError(err, "user not found")
	}
	if !user.BelongsTo(dk.DepartmentID) {
		return nil, apperr.Forbidden("this kpi is assigned to another department")
	}
	if dk.KpiStatus == model.KpiApproved {
		return nil, apperr.BadRequest("an approved submission cannot be changed")
	}
	return &dk, nil
}

// Review approves a pending submission or sends it back for redo. Only the QAC
// user who owns the KPI template may review it.
func (s *AssignmentService) Review(ctx context.Context, actor Actor, id uint, in ReviewKpiInput) (*model.DepartmentKpi, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	to := model.KpiStatus(in.Status)
	if to != model.KpiApproved && to != model.KpiRedo {
		return nil, apperr.BadRequest("status must be approved or redo")
	}

	var dk *model.DepartmentKpi
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if dk, err = lockDepartmentKpi(tx, id); err != nil {
			return err
		}

		var kpi model.KPI
		if err := tx.Where("id = ? AND created_by_user = ?", dk.KpiID, actor.UserID).First(&kpi).Error; err != nil {
			return err
		}

		if !model.CanTransition(dk.KpiStatus, to) {
			return apperr.BadRequest("cannot move a submission from %s to %s", dk.KpiStatus, to)
		}
		if dk.SubmittedAt == nil {
			return apperr.BadRequest("nothing has been submitted yet")
		}

		updates := map[string]interface{}{
			"kpi_status": to,
			"comments":   in.Comments,
		}
		if to == model.KpiApproved {
			updates["completed_date"] = s.now()
		}
		if err := tx.Model(dk).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(dk, dk.ID).Error
	})
	if err != nil {
		return nil, dbError(err, departmentKpiNotFound)
	}

	s.log.Info("kpi reviewed", "department_kpi_id", id, "status", to, "user_id", actor.UserID)
	return dk, nil
}
