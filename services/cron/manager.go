package cron

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shiksha-labs/shiksha-api/model"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron *cron.Cron
	db   *gorm.DB
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron: c,
		db:   db,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every hour: cancel pending payments older than 24 hours
	_, err := m.cron.AddFunc("0 0 * * * *", func() {
		m.logJobStart("cancel_stale_payments")
		m.CancelStalePayments()
	})
	if err != nil {
		return err
	}

	// 2. Daily at 2 AM: mark expired legacy subscription blobs
	_, err = m.cron.AddFunc("0 0 2 * * *", func() {
		m.logJobStart("expire_legacy_subscriptions")
		m.ExpireLegacySubscriptions()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: time.Now(),
	}
	m.db.Create(&cronLog)
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(jobName string, message string) {
	log.Printf("[CRON] Completed job: %s - %s", jobName, message)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": time.Now(),
			"message":      message,
		})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "running").
		Order("started_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":       "failed",
			"completed_at": time.Now(),
			"error_msg":    err.Error(),
		})
}
