package services

import (
	"context"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/apperr"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/gorm"
)

// DepartmentInfoService manages the HOD-owned department profile. The target
// department always comes from the caller's own account.
type DepartmentInfoService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDepartmentInfoService creates a new department info service
func NewDepartmentInfoService(db *gorm.DB, log *logger.Logger) *DepartmentInfoService {
	return &DepartmentInfoService{db: db, log: log}
}

type StudentStrengthInput struct {
	Year     string `json:"year" validate:"required,max=20"`
	Intake   int    `json:"intake" validate:"gte=0"`
	Admitted int    `json:"admitted" validate:"gte=0"`
}

type DepartmentInfoInput struct {
	UGPrograms           int                    `json:"ug_programs" validate:"gte=0"`
	PGPrograms           int                    `json:"pg_programs" validate:"gte=0"`
	TotalCourses         int                    `json:"total_courses" validate:"gte=0"`
	CreditsEven          int                    `json:"credits_even" validate:"gte=0"`
	CreditsOdd           int                    `json:"credits_odd" validate:"gte=0"`
	StudentsInternship   int                    `json:"students_internship" validate:"gte=0"`
	StudentsProject      int                    `json:"students_project" validate:"gte=0"`
	FullTimeTeachers     int                    `json:"full_time_teachers" validate:"gte=0"`
	TotalCalculationType string                 `json:"total_calculation_type" validate:"omitempty,oneof=ADMITTED SANCTIONED"`
	StudentStrength      []StudentStrengthInput `json:"student_strength" validate:"dive"`
}

// UpdateDepartmentInfoInput is a partial update. A non-nil StudentStrength
// replaces every existing row.
type UpdateDepartmentInfoInput struct {
	UGPrograms           *int                    `json:"ug_programs" validate:"omitempty,gte=0"`
	PGPrograms           *int                    `json:"pg_programs" validate:"omitempty,gte=0"`
	TotalCourses         *int                    `json:"total_courses" validate:"omitempty,gte=0"`
	CreditsEven          *int                    `json:"credits_even" validate:"omitempty,gte=0"`
	CreditsOdd           *int                    `json:"credits_odd" validate:"omitempty,gte=0"`
	StudentsInternship   *int                    `json:"students_internship" validate:"omitempty,gte=0"`
	StudentsProject      *int                    `json:"students_project" validate:"omitempty,gte=0"`
	FullTimeTeachers     *int                    `json:"full_time_teachers" validate:"omitempty,gte=0"`
	TotalCalculationType *string                 `json:"total_calculation_type" validate:"omitempty,oneof=ADMITTED SANCTIONED"`
	StudentStrength      *[]StudentStrengthInput `json:"student_strength" validate:"omitempty,dive"`
}

// DepartmentInfoView is a profile with its derived student total.
type DepartmentInfoView struct {
	model.DepartmentInfo
	TotalStudents int `json:"total_students"`
}

func newDepartmentInfoView(info *model.DepartmentInfo) *DepartmentInfoView {
	if info.StudentStrength == nil {
		info.StudentStrength = []model.StudentStrength{}
	}
	return &DepartmentInfoView{DepartmentInfo: *info, TotalStudents: info.TotalStudents()}
}

const departmentInfoNotFound = "department profile not found"

// loadActor re-reads the caller so department membership reflects the database.
func loadActor(tx *gorm.DB, actor Actor) (*model.User, error) {
	var user model.User
	if err := tx.First(&user, actor.UserID).Error; err != nil {
		return nil, dbError(err, "user not found")
	}
	return &user, nil
}

func strengthRows(infoID uint, in []StudentStrengthInput) []model.StudentStrength {
	rows := make([]model.StudentStrength, 0, len(in))
	for _, s := range in {
		rows = append(rows, model.StudentStrength{
			DepartmentInfoID: infoID,
			Year:             s.Year,
			Intake:           s.Intake,
			Admitted:         s.Admitted,
		})
	}
	return rows
}

func (s *DepartmentInfoService) load(tx *gorm.DB, id uint) (*model.DepartmentInfo, error) {
	var info model.DepartmentInfo
	err := tx.Preload("StudentStrength", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&info, id).Error
	if err != nil {
		return nil, dbError(err, departmentInfoNotFound)
	}
	return &info, nil
}

// Create stores the profile and its student strength rows in one transaction.
// A department has at most one profile.
func (s *DepartmentInfoService) Create(ctx context.Context, actor Actor, in DepartmentInfoInput) (*DepartmentInfoView, error) {
	if err := RequireRole(actor, model.RoleHOD); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadActor(db, actor)
	if err != nil {
		return nil, err
	}
	if user.DeptID == nil {
		return nil, apperr.BadRequest("your account is not attached to a department")
	}

	calcType := model.TotalCalculationType(in.TotalCalculationType)
	if calcType == "" {
		calcType = model.TotalAdmitted
	}

	info := model.DepartmentInfo{
		DepartmentID:         *user.DeptID,
		UGPrograms:           in.UGPrograms,
		PGPrograms:           in.PGPrograms,
		TotalCourses:         in.TotalCourses,
		CreditsEven:          in.CreditsEven,
		CreditsOdd:           in.CreditsOdd,
		StudentsInternship:   in.StudentsInternship,
		StudentsProject:      in.StudentsProject,
		FullTimeTeachers:     in.FullTimeTeachers,
		TotalCalculationType: calcType,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.DepartmentInfo{}).Where("department_id = ?", info.DepartmentID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return apperr.Conflict("this department already has a profile")
		}

		if err := tx.Omit("StudentStrength").Create(&info).Error; err != nil {
			return err
		}
		if rows := strengthRows(info.ID, in.StudentStrength); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, departmentInfoNotFound)
	}

	s.log.Info("department profile created", "department_info_id", info.ID, "department_id", info.DepartmentID)

	created, err := s.load(db, info.ID)
	if err != nil {
		return nil, err
	}
	return newDepartmentInfoView(created), nil
}

// Get returns the caller's department profile.
func (s *DepartmentInfoService) Get(ctx context.Context, actor Actor) (*DepartmentInfoView, error) {
	if err := RequireRole(actor, model.RoleHOD); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	user, err := loadActor(db, actor)
	if err != nil {
		return nil, err
	}
	if user.DeptID == nil {
		return nil, apperr.NotFound(departmentInfoNotFound)
	}

	var info model.DepartmentInfo
	err = db.Where("department_id = ?", *user.DeptID).
		Preload("StudentStrength", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("id ASC").
		First(&info).Error
	if err != nil {
		return nil, dbError(err, departmentInfoNotFound)
	}
	return newDepartmentInfoView(&info), nil
}

// GetByID returns any profile to a QAC user and only the caller's own
// department profile to everyone else.
func (s *DepartmentInfoService) GetByID(ctx context.Context, actor Actor, id uint) (*DepartmentInfoView, error) {
	db := s.db.WithContext(ctx)
	info, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	if actor.Role != model.RoleQAC {
		user, err := loadActor(db, actor)
		if err != nil {
			return nil, err
		}
		if !user.BelongsTo(info.DepartmentID) {
			return nil, apperr.Forbidden("this profile belongs to another department")
		}
	}
	return newDepartmentInfoView(info), nil
}

// authorize checks that the caller is the HOD of the profile's department.
func (s *DepartmentInfoService) authorize(tx *gorm.DB, actor Actor, id uint) (*model.DepartmentInfo, error) {
	if err := RequireRole(actor, model.RoleHOD); err != nil {
		return nil, err
	}
	var info model.DepartmentInfo
	if err := tx.First(&info, id).Error; err != nil {
		return nil, dbError(err, departmentInfoNotFound)
	}
	user, err := loadActor(tx, actor)
	if err != nil {
		return nil, err
	}
	if !user.BelongsTo(info.DepartmentID) {
		return nil, apperr.Forbidden("this profile belongs to another department")
	}
	return &info, nil
}

// Update changes scalar fields and, when given, replaces all student strength rows.
func (s *DepartmentInfoService) Update(ctx context.Context, actor Actor, id uint, in UpdateDepartmentInfoInput) (*DepartmentInfoView, error) {
	db := s.db.WithContext(ctx)

	err := db.Transaction(func(tx *gorm.DB) error {
		info, err := s.authorize(tx, actor, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		setInt := func(column string, v *int) {
			if v != nil {
				updates[column] = *v
			}
		}
		setInt("ug_programs", in.UGPrograms)
		setInt("pg_programs", in.PGPrograms)
		setInt("total_courses", in.TotalCourses)
		setInt("credits_even", in.CreditsEven)
		setInt("credits_odd", in.CreditsOdd)
		setInt("students_internship", in.StudentsInternship)
		setInt("students_project", in.StudentsProject)
		setInt("full_time_teachers", in.FullTimeTeachers)
		if in.TotalCalculationType != nil {
			updates["total_calculation_type"] = *in.TotalCalculationType
		}

		if len(updates) > 0 {
			if err := tx.Model(info).Updates(updates).Error; err != nil {
				return err
			}
		}

		if in.StudentStrength != nil {
			if err := tx.Where("department_info_id = ?", id).Delete(&model.StudentStrength{}).Error; err != nil {
				return err
			}
			if rows := strengthRows(id, *in.StudentStrength); len(rows) > 0 {
				if err := tx.Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, departmentInfoNotFound)
	}

	s.log.Info("department profile updated", "department_info_id", id, "user_id", actor.UserID)

	updated, err := s.load(db, id)
	if err != nil {
		return nil, err
	}
	return newDepartmentInfoView(updated), nil
}

// Delete hard-deletes the profile and its student strength rows.
func (s *DepartmentInfoService) Delete(ctx context.Context, actor Actor, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		info, err := s.authorize(tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Where("department_info_id = ?", id).Delete(&model.StudentStrength{}).Error; err != nil {
			return err
		}
		return tx.Delete(info).Error
	})
	if err != nil {
		return dbError(err, departmentInfoNotFound)
	}

	s.log.Info("department profile deleted", "department_info_id", id, "user_id", actor.UserID)
	return nil
}
