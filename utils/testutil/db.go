package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sahilchouksey/kpi-tracker-api/database"
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
// One connection is used so the database lives as long as the handle.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	store := database.NewGORMStore(db, nil)
	if err := store.Init(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	prev := auth.SetHashCost(4)
	t.Cleanup(func() { auth.SetHashCost(prev) })

	return db
}

// CreateDepartment inserts a department.
func CreateDepartment(t *testing.T, db *gorm.DB, name string) model.Department {
	t.Helper()
	dept := model.Department{Name: name}
	if err := db.Create(&dept).Error; err != nil {
		t.Fatalf("create department: %v", err)
	}
	return dept
}

// CreateUser inserts a user with the given role and optional department.
// A non-empty password is stored as a bcrypt hash.
func CreateUser(t *testing.T, db *gorm.DB, email string, role model.Role, deptID *uint, password string) model.User {
	t.Helper()
	user := model.User{Email: email, Name: strings.Split(email, "@")[0], Role: role, DeptID: deptID}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		user.PasswordHash = hash
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
