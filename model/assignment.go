package model

import (
	"time"

	"gorm.io/datatypes"
)

// KpiStatus is the review state of a department's KPI submission.
type KpiStatus string

const (
	KpiPending  KpiStatus = "pending"
	KpiApproved KpiStatus = "approved"
	KpiRedo     KpiStatus = "redo"
)

var kpiTransitions = map[KpiStatus][]KpiStatus{
	KpiPending: {KpiApproved, KpiRedo},
	KpiRedo:    {KpiPending},
}

func (s KpiStatus) Valid() bool {
	switch s {
	case KpiPending, KpiApproved, KpiRedo:
		return true
	}
	return false
}

// CanTransition reports whether a submission may move from one status to another.
// Approved is terminal.
func CanTransition(from, to KpiStatus) bool {
	for _, next := range kpiTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DepartmentPillar assigns a pillar template to a department for an academic year.
type DepartmentPillar struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	DepartmentID uint      `gorm:"column:department_id;not null;uniqueIndex:idx_department_pillar" json:"department_id"`
	PillarID     uint      `gorm:"column:pillar_id;not null;uniqueIndex:idx_department_pillar" json:"pillar_id"`
	AcademicYear string    `gorm:"column:academic_year;type:varchar(9)" json:"academic_year"`
	AssignedBy   uint      `gorm:"column:assigned_by;not null" json:"assigned_by"`

	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	Pillar     *Pillar     `gorm:"foreignKey:PillarID" json:"pillar,omitempty"`
}

func (DepartmentPillar) TableName() string {
	return "department_pillars"
}

// DepartmentKpi carries one department's submission and review state for a KPI.
type DepartmentKpi struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DepartmentID       uint           `gorm:"column:department_id;not null;uniqueIndex:idx_department_kpi" json:"department_id"`
	KpiID              uint           `gorm:"column:kpi_id;not null;uniqueIndex:idx_department_kpi" json:"kpi_id"`
	DepartmentPillarID uint           `gorm:"column:department_pillar_id;not null;index" json:"department_pillar_id"`
	KpiStatus          KpiStatus      `gorm:"column:kpi_status;type:varchar(20);not null;default:'pending'" json:"kpi_status"`
	Comments           string         `gorm:"type:text" json:"comments"`
	FormData           datatypes.JSON `gorm:"column:form_data" json:"form_data"`
	CurrentValue       *float64       `gorm:"column:current_value" json:"current_value"`
	CompletedDate      *time.Time     `gorm:"column:completed_date" json:"completed_date"`
	SubmittedBy        *uint          `gorm:"column:submitted_by" json:"submitted_by"`
	SubmittedAt        *time.Time     `gorm:"column:submitted_at" json:"submitted_at"`

	KPI        *KPI        `gorm:"foreignKey:KpiID" json:"kpi,omitempty"`
	Department *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

func (DepartmentKpi) TableName() string {
	return "department_kpis"
}
