package cron

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/kpi-tracker-api/model"
)

const (
	JobPurgeOTPs           = "purge_expired_otps"
	JobPurgeTokenBlacklist = "purge_token_blacklist"
)

// PurgeExpiredOTPs removes login codes that were used or have expired.
func (m *CronManager) PurgeExpiredOTPs(ctx context.Context) (string, map[string]interface{}, error) {
	res := m.db.WithContext(ctx).
		Where("used_at IS NOT NULL OR expires_at <= ?", m.now()).
		Delete(&model.Otp{})
	if res.Error != nil {
		return "", nil, fmt.Errorf("failed to delete otps: %w", res.Error)
	}
	return fmt.Sprintf("Deleted %d login codes", res.RowsAffected),
		map[string]interface{}{"deleted": res.RowsAffected}, nil
}

// PurgeExpiredTokens removes blacklist entries whose tokens have expired anyway.
func (m *CronManager) PurgeExpiredTokens(ctx context.Context) (string, map[string]interface{}, error) {
	n, err := m.blacklist.PurgeBefore(ctx, m.now())
	if err != nil {
		return "", nil, fmt.Errorf("failed to delete blacklist entries: %w", err)
	}
	return fmt.Sprintf("Deleted %d blacklist entries", n),
		map[string]interface{}{"deleted": n}, nil
}
