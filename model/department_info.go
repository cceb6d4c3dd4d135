package model

import "time"

// TotalCalculationType selects which StudentStrength column feeds the department's
// student total.
type TotalCalculationType string

const (
	TotalAdmitted   TotalCalculationType = "ADMITTED"
	TotalSanctioned TotalCalculationType = "SANCTIONED"
)

func (t TotalCalculationType) Valid() bool {
	return t == TotalAdmitted || t == TotalSanctioned
}

// DepartmentInfo is the profile an HOD maintains for their department.
// StudentStrength rows are owned by it and replaced wholesale on update.
type DepartmentInfo struct {
	ID                   uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	DepartmentID         uint                 `gorm:"column:department_id;not null;uniqueIndex" json:"department_id"`
	UGPrograms           int                  `gorm:"column:ug_programs" json:"ug_programs"`
	PGPrograms           int                  `gorm:"column:pg_programs" json:"pg_programs"`
	TotalCourses         int                  `gorm:"column:total_courses" json:"total_courses"`
	CreditsEven          int                  `gorm:"column:credits_even" json:"credits_even"`
	CreditsOdd           int                  `gorm:"column:credits_odd" json:"credits_odd"`
	StudentsInternship   int                  `gorm:"column:students_internship" json:"students_internship"`
	StudentsProject      int                  `gorm:"column:students_project" json:"students_project"`
	FullTimeTeachers     int                  `gorm:"column:full_time_teachers" json:"full_time_teachers"`
	TotalCalculationType TotalCalculationType `gorm:"column:total_calculation_type;type:varchar(20);not null;default:'ADMITTED'" json:"total_calculation_type"`

	Department      *Department       `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	StudentStrength []StudentStrength `gorm:"foreignKey:DepartmentInfoID" json:"student_strength"`
}

func (DepartmentInfo) TableName() string {
	return "department_infos"
}

// TotalStudents sums admitted students, or sanctioned intake when the profile
// is configured for SANCTIONED.
func (d *DepartmentInfo) TotalStudents() int {
	total := 0
	for _, s := range d.StudentStrength {
		if d.TotalCalculationType == TotalSanctioned {
			total += s.Intake
		} else {
			total += s.Admitted
		}
	}
	return total
}

type StudentStrength struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	DepartmentInfoID uint   `gorm:"column:department_info_id;not null;index" json:"department_info_id"`
	Year             string `gorm:"type:varchar(20);not null" json:"year"`
	Intake           int    `json:"intake"`
	Admitted         int    `json:"admitted"`
}

func (StudentStrength) TableName() string {
	return "student_strengths"
}
