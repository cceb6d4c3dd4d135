package database

import (
	"fmt"
	"strings"

	"github.com/sahilchouksey/kpi-tracker-api/config"
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultDepartments are created on first seed.
var DefaultDepartments = []string{
	"Computer Science and Engineering",
	"Electronics and Communication Engineering",
	"Mechanical Engineering",
	"Civil Engineering",
	"Business Administration",
}

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	env *config.EnvironmentVariable
	log *logger.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, env *config.EnvironmentVariable, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{db: db, env: env, log: log}
}

// SeedAll runs all seed functions. It is safe to run repeatedly.
func (s *Seeder) SeedAll() error {
	s.log.Info("starting database seeding")

	if err := s.SeedDepartments(); err != nil {
		return fmt.Errorf("failed to seed departments: %w", err)
	}

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	s.log.Info("database seeding completed")
	return nil
}

// SeedDepartments creates the default departments that do not exist yet
func (s *Seeder) SeedDepartments() error {
	for _, name := range DefaultDepartments {
		dept := model.Department{Name: name}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&dept).Error; err != nil {
			return err
		}
	}
	s.log.Info("departments seeded", "count", len(DefaultDepartments))
	return nil
}

// SeedAdminUser creates the initial QAC account and its allow-list entry from
// ADMIN_EMAIL and ADMIN_PASSWORD. Skipped when either is unset.
func (s *Seeder) SeedAdminUser() error {
	email := strings.ToLower(strings.TrimSpace(s.env.ADMIN_EMAIL))
	if email == "" || s.env.ADMIN_PASSWORD == "" {
		s.log.Warn("ADMIN_EMAIL and ADMIN_PASSWORD not set, skipping admin user creation")
		return nil
	}

	grant := model.RoleGrant{Email: email, Role: model.RoleQAC}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error; err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Info("admin user already exists, skipping", "email", email)
		return nil
	}

	passwordHash, err := auth.HashPassword(s.env.ADMIN_PASSWORD)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         "QAC Administrator",
		Role:         model.RoleQAC,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	s.log.Info("created admin user", "email", admin.Email)
	return nil
}
