package model

import (
	"strings"
	"time"
)

// Role is the single role a user acts under. Roles do not inherit from each other.
type Role string

const (
	RoleQAC     Role = "QAC"     // Quality Assurance Committee: authors templates, reviews submissions
	RoleHOD     Role = "HOD"     // Head of Department: owns the department profile
	RoleFaculty Role = "FACULTY" // default for unknown accounts
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleQAC, RoleHOD, RoleFaculty:
		return true
	}
	return false
}

// ParseRole normalises user input ("hod", " QAC ") into a Role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

// User is a staff account. PasswordHash is empty for OTP/Google-only accounts.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"not null" json:"name"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Role         Role      `gorm:"type:varchar(20);not null;default:'FACULTY'" json:"role"`
	DeptID       *uint     `gorm:"column:dept_id;index" json:"dept_id"`
	GoogleID     *string   `gorm:"uniqueIndex" json:"-"`
	TokenVersion int       `gorm:"default:0" json:"-"` // incremented to invalidate issued tokens

	Department *Department `gorm:"foreignKey:DeptID" json:"department,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// HasPassword reports whether password login is possible for this account.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// BelongsTo reports whether the user is attached to the given department.
func (u *User) BelongsTo(departmentID uint) bool {
	return u.DeptID != nil && *u.DeptID == departmentID
}

// RoleGrant is the email allow-list consulted when an account is created on first
// OTP or Google login. Unknown emails become FACULTY without a department.
type RoleGrant struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Role         Role      `gorm:"type:varchar(20);not null" json:"role"`
	DepartmentID *uint     `json:"department_id"`
}

func (RoleGrant) TableName() string {
	return "role_grants"
}
