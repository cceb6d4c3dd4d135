package model

import "time"

// Otp is a one-time login code. Only the bcrypt hash of the code is stored.
type Otp struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Email     string     `gorm:"not null;index" json:"email"`
	CodeHash  string     `gorm:"column:code_hash;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	Attempts  int        `gorm:"not null;default:0" json:"attempts"`
	UsedAt    *time.Time `json:"used_at"`
}

func (Otp) TableName() string {
	return "otps"
}

// Usable reports whether the code can still be tried at now.
func (o *Otp) Usable(now time.Time, maxAttempts int) bool {
	return o.UsedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < maxAttempts
}
