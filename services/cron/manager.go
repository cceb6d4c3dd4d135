package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/kpi-tracker-api/model"
	"github.com/sahilchouksey/kpi-tracker-api/utils/auth"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const jobTimeout = 5 * time.Minute

// JobFunc runs one maintenance job and returns a summary and counters for the log.
type JobFunc func(ctx context.Context) (string, map[string]interface{}, error)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	blacklist *auth.BlacklistService
	log       *logger.Logger
	now       func() time.Time
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, log *logger.Logger) *CronManager {
	return &CronManager{
		cron:      cron.New(cron.WithSeconds()),
		db:        db,
		blacklist: auth.NewBlacklistService(db),
		log:       log.With("component", "cron"),
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (m *CronManager) Start() error {
	if err := m.registerJobs(); err != nil {
		return err
	}
	m.cron.Start()
	m.log.Info("cron jobs started", "jobs", len(m.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Every 15 minutes: purge used and expired login codes
	if _, err := m.cron.AddFunc("0 */15 * * * *", func() {
		m.RunJob(JobPurgeOTPs, m.PurgeExpiredOTPs)
	}); err != nil {
		return fmt.Errorf("register %s: %w", JobPurgeOTPs, err)
	}

	// Daily at 3 AM: purge expired token blacklist entries
	if _, err := m.cron.AddFunc("0 0 3 * * *", func() {
		m.RunJob(JobPurgeTokenBlacklist, m.PurgeExpiredTokens)
	}); err != nil {
		return fmt.Errorf("register %s: %w", JobPurgeTokenBlacklist, err)
	}

	return nil
}

// RunJob executes fn with a timeout and records the run in cron_job_logs.
func (m *CronManager) RunJob(name string, fn JobFunc) {
	started := m.now()
	entry := model.CronJobLog{
		JobName:   name,
		Status:    model.CronStatusStarted,
		StartedAt: started,
		Metadata:  datatypes.JSON("{}"),
	}
	if err := m.db.Create(&entry).Error; err != nil {
		m.log.Error("failed to record job start", "job", name, "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	message, meta, err := fn(ctx)

	finished := m.now()
	updates := map[string]interface{}{
		"completed_at": finished,
		"duration":     finished.Sub(started).Milliseconds(),
	}
	if raw, mErr := json.Marshal(meta); mErr == nil && meta != nil {
		updates["metadata"] = datatypes.JSON(raw)
	}

	if err != nil {
		updates["status"] = model.CronStatusFailed
		updates["error_msg"] = err.Error()
		m.log.Error("cron job failed", "job", name, "error", err)
	} else {
		updates["status"] = model.CronStatusCompleted
		updates["message"] = message
		m.log.Info("cron job completed", "job", name, "message", message)
	}

	if entry.ID == 0 {
		return
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		m.log.Error("failed to record job result", "job", name, "error", err)
	}
}
