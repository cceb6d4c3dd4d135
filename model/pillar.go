package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Pillar is a top-level weighted KPI category authored by a QAC user.
// For a fixed owner the pillar values sum to at most 1.
type Pillar struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	PillarName   string    `gorm:"column:pillar_name;not null" json:"pillar_name"`
	PillarValue  float64   `gorm:"column:pillar_value;not null;default:0" json:"pillar_value"`
	Description  string    `gorm:"type:text" json:"description"`
	CreatedByQAC uint      `gorm:"column:created_by_qac;not null;index" json:"created_by_qac"`

	KPIs []KPI `gorm:"foreignKey:PillarTemplateID" json:"kpis,omitempty"`
}

func (Pillar) TableName() string {
	return "pillars"
}

// KPI is a weighted metric template under a pillar. KpiData holds the form schema
// used by departments to report against it; KpiCalculatedMetrics holds formulas,
// thresholds and metric weights. Both are validated before they are stored.
type KPI struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	PillarTemplateID     uint           `gorm:"column:pillar_template_id;not null;index" json:"pillar_template_id"`
	KpiNumber            int            `gorm:"column:kpi_number;not null" json:"kpi_number"`
	KpiMetricName        string         `gorm:"column:kpi_metric_name;not null" json:"kpi_metric_name"`
	KpiValue             float64        `gorm:"column:kpi_value;not null;default:0" json:"kpi_value"`
	KpiData              datatypes.JSON `gorm:"column:kpi_data" json:"kpi_data"`
	KpiCalculatedMetrics datatypes.JSON `gorm:"column:kpi_calculated_metrics" json:"kpi_calculated_metrics"`
	AcademicYear         string         `gorm:"column:academic_year;type:varchar(9);index" json:"academic_year"`
	CreatedByUser        uint           `gorm:"column:created_by_user;not null;index" json:"created_by_user"`

	Pillar *Pillar `gorm:"foreignKey:PillarTemplateID" json:"pillar,omitempty"`
}

func (KPI) TableName() string {
	return "kpis"
}

// FormSchema decodes KpiData. An empty column yields an empty schema.
func (k *KPI) FormSchema() (FormSchema, error) {
	var schema FormSchema
	if len(k.KpiData) == 0 {
		return schema, nil
	}
	err := json.Unmarshal(k.KpiData, &schema)
	return schema, err
}
