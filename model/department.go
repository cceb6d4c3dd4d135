package model

import "time"

// Department is created by seed or by a QAC user and never cascade-deleted.
type Department struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"uniqueIndex;not null" json:"name"`
	CreationDate time.Time `gorm:"autoCreateTime" json:"creation_date"`
}

func (Department) TableName() string {
	return "departments"
}
