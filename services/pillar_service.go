package services

import (
	"context"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/gorm"
)

// PillarService manages pillar templates. Every operation is scoped to the
// calling QAC user; another user's pillars behave as if they did not exist.
type PillarService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewPillarService creates a new pillar service
func NewPillarService(db *gorm.DB, log *logger.Logger) *PillarService {
	return &PillarService{db: db, log: log}
}

type CreatePillarInput struct {
	PillarName  string  `json:"pillar_name" validate:"required,max=200"`
	PillarValue float64 `json:"pillar_value" validate:"weight"`
	Description string  `json:"description" validate:"max=2000"`
}

type UpdatePillarInput struct {
	PillarName  *string  `json:"pillar_name" validate:"omitempty,min=1,max=200"`
	PillarValue *float64 `json:"pillar_value" validate:"omitempty,weight"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
}

const pillarNotFound = "pillar not found"

func ownedPillar(tx *gorm.DB, owner, id uint) *gorm.DB {
	return tx.Where("id = ? AND created_by_qac = ?", id, owner)
}

func (s *PillarService) siblingWeights(tx *gorm.DB, owner, excludeID uint) ([]float64, error) {
	var weights []float64
	q := tx.Model(&model.Pillar{}).Where("created_by_qac = ?", owner)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Pluck("pillar_value", &weights).Error
	return weights, err
}

// Create adds a pillar for the caller after rechecking the owner's weight total.
func (s *PillarService) Create(ctx context.Context, actor Actor, in CreatePillarInput) (*model.Pillar, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	pillar := model.Pillar{
		PillarName:   in.PillarName,
		PillarValue:  in.PillarValue,
		Description:  in.Description,
		CreatedByQAC: actor.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner model.User
		if err := lockRow(tx, &owner, actor.UserID); err != nil {
			return err
		}

		siblings, err := s.siblingWeights(tx, actor.UserID, 0)
		if err != nil {
			return err
		}
		if err := enforceWeight("pillar_value", siblings, in.PillarValue); err != nil {
			s.log.Warn("pillar weight rejected", "user_id", actor.UserID, "pillar_value", in.PillarValue)
			return err
		}

		return tx.Create(&pillar).Error
	})
	if err != nil {
		return nil, dbError(err, "user not found")
	}

	s.log.Info("pillar created", "pillar_id", pillar.ID, "user_id", actor.UserID)
	return &pillar, nil
}

// Update applies a partial update. The pillar's own prior weight is excluded
// from the sibling total.
func (s *PillarService) Update(ctx context.Context, actor Actor, id uint, in UpdatePillarInput) (*model.Pillar, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	var pillar model.Pillar
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedPillar(tx, actor.UserID, id).First(&pillar).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.PillarName != nil {
			updates["pillar_name"] = *in.PillarName
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.PillarValue != nil {
			var owner model.User
			if err := lockRow(tx, &owner, actor.UserID); err != nil {
				return err
			}
			siblings, err := s.siblingWeights(tx, actor.UserID, id)
			if err != nil {
				return err
			}
			if err := enforceWeight("pillar_value", siblings, *in.PillarValue); err != nil {
				s.log.Warn("pillar weight rejected", "pillar_id", id, "pillar_value", *in.PillarValue)
				return err
			}
			updates["pillar_value"] = *in.PillarValue
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&pillar).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&pillar, pillar.ID).Error
	})
	if err != nil {
		return nil, dbError(err, pillarNotFound)
	}

	s.log.Info("pillar updated", "pillar_id", id, "user_id", actor.UserID)
	return &pillar, nil
}

// Delete removes a pillar together with its KPIs and every assignment that
// points at them.
func (s *PillarService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pillar model.Pillar
		if err := ownedPillar(tx, actor.UserID, id).First(&pillar).Error; err != nil {
			return err
		}

		kpiIDs := tx.Model(&model.KPI{}).Select("id").Where("pillar_template_id = ?", id)
		if err := tx.Where("kpi_id IN (?)", kpiIDs).Delete(&model.DepartmentKpi{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pillar_template_id = ?", id).Delete(&model.KPI{}).Error; err != nil {
			return err
		}
		if err := tx.Where("pillar_id = ?", id).Delete(&model.DepartmentPillar{}).Error; err != nil {
			return err
		}
		return tx.Delete(&pillar).Error
	})
	if err != nil {
		return dbError(err, pillarNotFound)
	}

	s.log.Info("pillar deleted", "pillar_id", id, "user_id", actor.UserID)
	return nil
}

// List returns the caller's pillars in creation order.
func (s *PillarService) List(ctx context.Context, actor Actor, includeKPIs bool) ([]model.Pillar, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Where("created_by_qac = ?", actor.UserID).Order("id ASC")
	if includeKPIs {
		q = q.Preload("KPIs", func(db *gorm.DB) *gorm.DB {
			return db.Order("academic_year DESC, kpi_number ASC")
		})
	}

	pillars := []model.Pillar{}
	if err := q.Find(&pillars).Error; err != nil {
		return nil, apperr.Internal("failed to list pillars", err)
	}
	return pillars, nil
}

// Get returns one of the caller's pillars with its KPIs.
func (s *PillarService) Get(ctx context.Context, actor Actor, id uint) (*model.Pillar, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	var pillar model.Pillar
	err := ownedPillar(s.db.WithContext(ctx), actor.UserID, id).
		Preload("KPIs", func(db *gorm.DB) *gorm.DB {
			return db.Order("academic_year DESC, kpi_number ASC")
		}).
		First(&pillar).Error
	if err != nil {
		return nil, dbError(err, pillarNotFound)
	}
	return &pillar, nil
}

// WeightStatus reports how much of the caller's pillar weight is allocated.
func (s *PillarService) WeightStatus(ctx context.Context, actor Actor) (WeightStatus, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return WeightStatus{}, err
	}

	weights, err := s.siblingWeights(s.db.WithContext(ctx), actor.UserID, 0)
	if err != nil {
		return WeightStatus{}, apperr.Internal("failed to load pillar weights", err)
	}
	return StatusOf(weights), nil
}
