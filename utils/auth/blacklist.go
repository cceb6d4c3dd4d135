package auth

import (
	"context"
	"time"

	"github.com/sahilchouksey/kpi-tracker-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlacklistService keeps logged-out session tokens unusable until they expire.
type BlacklistService struct {
	db *gorm.DB
}

func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{db: db}
}

// Revoke blacklists the token the claims were parsed from. Revoking the same
// token twice is a no-op.
func (s *BlacklistService) Revoke(ctx context.Context, claims *Claims, reason string) error {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidClaims
	}

	entry := model.JWTTokenBlacklist{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		Reason:    reason,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&entry).Error
}

// IsRevoked reports whether jti is blacklisted. Entries past their expiry no
// longer count; the token itself is rejected by then.
func (s *BlacklistService) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.JWTTokenBlacklist{}).
		Where("jti = ? AND expires_at > ?", jti, time.Now()).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// PurgeBefore deletes entries that expired before t.
func (s *BlacklistService) PurgeBefore(ctx context.Context, t time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", t).
		Delete(&model.JWTTokenBlacklist{})
	return res.RowsAffected, res.Error
}
