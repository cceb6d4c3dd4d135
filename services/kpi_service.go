package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KPIService manages KPI templates under the caller's pillars.
type KPIService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewKPIService creates a new KPI service
func NewKPIService(db *gorm.DB, log *logger.Logger) *KPIService {
	return &KPIService{db: db, log: log}
}

type CreateKPIInput struct {
	KpiNumber            *int                     `json:"kpi_number" validate:"omitempty,gte=1"`
	KpiMetricName        string                   `json:"kpi_metric_name" validate:"required,max=300"`
	KpiValue             float64                  `json:"kpi_value" validate:"weight"`
	KpiData              *model.FormSchema        `json:"kpi_data"`
	KpiCalculatedMetrics *model.CalculatedMetrics `json:"kpi_calculated_metrics"`
	AcademicYear         string                   `json:"academic_year" validate:"required,academic_year"`
}

type UpdateKPIInput struct {
	KpiNumber            *int                     `json:"kpi_number" validate:"omitempty,gte=1"`
	KpiMetricName        *string                  `json:"kpi_metric_name" validate:"omitempty,min=1,max=300"`
	KpiValue             *float64                 `json:"kpi_value" validate:"omitempty,weight"`
	KpiData              *model.FormSchema        `json:"kpi_data"`
	KpiCalculatedMetrics *model.CalculatedMetrics `json:"kpi_calculated_metrics"`
	AcademicYear         *string                  `json:"academic_year" validate:"omitempty,academic_year"`
}

const kpiNotFound = "kpi not found"

// prefixFields namespaces field errors from a nested document.
func prefixFields(prefix string, err error) error {
	var fields model.FieldErrors
	if !errors.As(err, &fields) {
		return apperr.BadRequest("%s: %v", prefix, err)
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[prefix+"."+k] = v
	}
	return apperr.Invalid("invalid "+prefix, out)
}

// encodeDocuments validates and serialises the two JSON columns. A nil input
// yields a nil column value.
func encodeDocuments(schema *model.FormSchema, metrics *model.CalculatedMetrics) (datatypes.JSON, datatypes.JSON, error) {
	var data, calc datatypes.JSON

	if schema != nil {
		if err := schema.Validate(); err != nil {
			return nil, nil, prefixFields("kpi_data", err)
		}
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, nil, apperr.Internal("failed to encode kpi_data", err)
		}
		data = datatypes.JSON(raw)
	}

	if metrics != nil {
		if err := metrics.Validate(); err != nil {
			return nil, nil, prefixFields("kpi_calculated_metrics", err)
		}
		if res := CheckWeight(nil, SumWeights(metrics.WeightValues())); !res.Valid {
			return nil, nil, apperr.Invalid("invalid kpi_calculated_metrics", map[string]string{
				"kpi_calculated_metrics.weights": res.Reason,
			})
		}
		raw, err := json.Marshal(metrics)
		if err != nil {
			return nil, nil, apperr.Internal("failed to encode kpi_calculated_metrics", err)
		}
		calc = datatypes.JSON(raw)
	}

	return data, calc, nil
}

func (s *KPIService) siblingWeights(tx *gorm.DB, pillarID, excludeID uint) ([]float64, error) {
	var weights []float64
	q := tx.Model(&model.KPI{}).Where("pillar_template_id = ?", pillarID)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Pluck("kpi_value", &weights).Error
	return weights, err
}

// lockOwnedPillar locks the parent pillar for the rest of the transaction.
func lockOwnedPillar(tx *gorm.DB, owner, pillarID uint) (*model.Pillar, error) {
	var pillar model.Pillar
	err := lockRow(tx.Where("created_by_qac = ?", owner), &pillar, pillarID)
	return &pillar, err
}

func ownedKPI(tx *gorm.DB, owner, pillarID, id uint) *gorm.DB {
	return tx.Where("id = ? AND pillar_template_id = ? AND created_by_user = ?", id, pillarID, owner)
}

// Create adds a KPI under one of the caller's pillars. Departments the pillar is
// already assigned to receive a pending submission row for it.
func (s *KPIService) Create(ctx context.Context, actor Actor, pillarID uint, in CreateKPIInput) (*model.KPI, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	data, calc, err := encodeDocuments(in.KpiData, in.KpiCalculatedMetrics)
	if err != nil {
		return nil, err
	}

	kpi := model.KPI{
		PillarTemplateID:     pillarID,
		KpiMetricName:        in.KpiMetricName,
		KpiValue:             in.KpiValue,
		KpiData:              data,
		KpiCalculatedMetrics: calc,
		AcademicYear:         in.AcademicYear,
		CreatedByUser:        actor.UserID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockOwnedPillar(tx, actor.UserID, pillarID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.BadRequest("pillar %d does not exist or is not yours", pillarID)
			}
			return err
		}

		siblings, err := s.siblingWeights(tx, pillarID, 0)
		if err != nil {
			return err
		}
		if err := enforceWeight("kpi_value", siblings, in.KpiValue); err != nil {
			s.log.Warn("kpi weight rejected", "pillar_id", pillarID, "kpi_value", in.KpiValue)
			return err
		}

		if in.KpiNumber != nil {
			kpi.KpiNumber = *in.KpiNumber
		} else {
			var maxNumber int
			if err := tx.Model(&model.KPI{}).
				Where("pillar_template_id = ?", pillarID).
				Select("COALESCE(MAX(kpi_number), 0)").
				Scan(&maxNumber).Error; err != nil {
				return err
			}
			kpi.KpiNumber = maxNumber + 1
		}

		if err := tx.Create(&kpi).Error; err != nil {
			return err
		}
		return s.fanOut(tx, &kpi)
	})
	if err != nil {
		return nil, dbError(err, pillarNotFound)
	}

	s.log.Info("kpi created", "kpi_id", kpi.ID, "pillar_id", pillarID, "user_id", actor.UserID)
	return &kpi, nil
}

// fanOut creates pending submission rows for every department the KPI's pillar
// is assigned to.
func (s *KPIService) fanOut(tx *gorm.DB, kpi *model.KPI) error {
	var assignments []model.DepartmentPillar
	if err := tx.Where("pillar_id = ?", kpi.PillarTemplateID).Find(&assignments).Error; err != nil {
		return err
	}
	if len(assignments) == 0 {
		return nil
	}

	rows := make([]model.DepartmentKpi, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, model.DepartmentKpi{
			DepartmentID:       a.DepartmentID,
			KpiID:              kpi.ID,
			DepartmentPillarID: a.ID,
			KpiStatus:          model.KpiPending,
		})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// Update applies a partial update to one of the caller's KPIs. The KPI's own
// prior weight is excluded from the sibling total.
func (s *KPIService) Update(ctx context.Context, actor Actor, pillarID, id uint, in UpdateKPIInput) (*model.KPI, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	data, calc, err := encodeDocuments(in.KpiData, in.KpiCalculatedMetrics)
	if err != nil {
		return nil, err
	}

	var kpi model.KPI
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedKPI(tx, actor.UserID, pillarID, id).First(&kpi).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.KpiNumber != nil {
			updates["kpi_number"] = *in.KpiNumber
		}
		if in.KpiMetricName != nil {
			updates["kpi_metric_name"] = *in.KpiMetricName
		}
		if in.AcademicYear != nil {
			updates["academic_year"] = *in.AcademicYear
		}
		if in.KpiData != nil {
			updates["kpi_data"] = data
		}
		if in.KpiCalculatedMetrics != nil {
			updates["kpi_calculated_metrics"] = calc
		}
		if in.KpiValue != nil {
			if _, err := lockOwnedPillar(tx, actor.UserID, pillarID); err != nil {
				return err
			}
			siblings, err := s.siblingWeights(tx, pillarID, id)
			if err != nil {
				return err
			}
			if err := enforceWeight("kpi_value", siblings, *in.KpiValue); err != nil {
				s.log.Warn("kpi weight rejected", "kpi_id", id, "kpi_value", *in.KpiValue)
				return err
			}
			updates["kpi_value"] = *in.KpiValue
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&kpi).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&kpi, kpi.ID).Error
	})
	if err != nil {
		return nil, dbError(err, kpiNotFound)
	}

	s.log.Info("kpi updated", "kpi_id", id, "user_id", actor.UserID)
	return &kpi, nil
}

// Delete removes one of the caller's KPIs and its department submissions.
func (s *KPIService) Delete(ctx context.Context, actor Actor, pillarID, id uint) error {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var kpi model.KPI
		if err := ownedKPI(tx, actor.UserID, pillarID, id).First(&kpi).Error; err != nil {
			return err
		}
		if err := tx.Where("kpi_id = ?", id).Delete(&model.DepartmentKpi{}).Error; err != nil {
			return err
		}
		return tx.Delete(&kpi).Error
	})
	if err != nil {
		return dbError(err, kpiNotFound)
	}

	s.log.Info("kpi deleted", "kpi_id", id, "user_id", actor.UserID)
	return nil
}

// List returns the caller's KPIs, newest academic year first. pillarID 0 lists
// across all of the caller's pillars.
func (s *KPIService) List(ctx context.Context, actor Actor, pillarID uint) ([]model.KPI, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("created_by_user = ?", actor.UserID)
	if pillarID != 0 {
		q = q.Where("pillar_template_id = ?", pillarID)
	}

	kpis := []model.KPI{}
	if err := q.Order("academic_year DESC").Order("kpi_number ASC").Find(&kpis).Error; err != nil {
		return nil, apperr.Internal("failed to list kpis", err)
	}
	return kpis, nil
}

// Get returns one of the caller's KPIs.
func (s *KPIService) Get(ctx context.Context, actor Actor, pillarID, id uint) (*model.KPI, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	var kpi model.KPI
	if err := ownedKPI(s.db.WithContext(ctx), actor.UserID, pillarID, id).First(&kpi).Error; err != nil {
		return nil, dbError(err, kpiNotFound)
	}
	return &kpi, nil
}

// WeightStatus reports how much of a pillar's KPI weight is allocated.
func (s *KPIService) WeightStatus(ctx context.Context, actor Actor, pillarID uint) (WeightStatus, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return WeightStatus{}, err
	}

	db := s.db.WithContext(ctx)
	var pillar model.Pillar
	if err := ownedPillar(db, actor.UserID, pillarID).First(&pillar).Error; err != nil {
		return WeightStatus{}, dbError(err, pillarNotFound)
	}

	weights, err := s.siblingWeights(db, pillarID, 0)
	if err != nil {
		return WeightStatus{}, apperr.Internal(fmt.Sprintf("failed to load kpi weights for pillar %d", pillarID), err)
	}
	return StatusOf(weights), nil
}
