package services

import (
	"context"
	"strings"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/gorm"
)

// DepartmentService lists and creates departments. Departments are never deleted.
type DepartmentService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDepartmentService(db *gorm.DB, log *logger.Logger) *DepartmentService {
	return &DepartmentService{db: db, log: log}
}

type CreateDepartmentInput struct {
	Name string `json:"name" validate:"required,max=200"`
}

func (s *DepartmentService) List(ctx context.Context) ([]model.Department, error) {
	departments := []model.Department{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, apperr.Internal("failed to list departments", err)
	}
	return departments, nil
}

func (s *DepartmentService) Create(ctx context.Context, actor Actor, in CreateDepartmentInput) (*model.Department, error) {
	if err := RequireRole(actor, model.RoleQAC); err != nil {
		return nil, err
	}

	dept := model.Department{Name: strings.TrimSpace(in.Name)}
	if dept.Name == "" {
		return nil, apperr.Invalid("validation failed", map[string]string{"name": "name is required"})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Department{}).Where("LOWER(name) = LOWER(?)", dept.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.Conflict("a department with this name already exists")
		}
		return tx.Create(&dept).Error
	})
	if err != nil {
		return nil, dbError(err, "department not found")
	}

	s.log.Info("department created", "department_id", dept.ID, "user_id", actor.UserID)
	return &dept, nil
}
