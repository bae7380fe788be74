package cron

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shiksha-labs/shiksha-api/model"
)

// StalePaymentAge is how long a pending payment may sit before the sweep
// cancels it.
const StalePaymentAge = 24 * time.Hour

// CancelStalePayments marks pending payments older than StalePaymentAge
// as cancelled. Runs hourly.
func (m *CronManager) CancelStalePayments() {
	jobName := "cancel_stale_payments"
	cutoff := time.Now().Add(-StalePaymentAge)

	result := m.db.Model(&model.Payment{}).
		Where("status = ? AND created_at < ?", model.PaymentPending, cutoff).
		Updates(map[string]interface{}{
			"status":         model.PaymentCancelled,
			"failure_reason": "order expired without payment",
		})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cancel stale payments: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Cancelled %d stale payments", result.RowsAffected))
}

// ExpireLegacySubscriptions rewrites the legacy subscription blob to
// expired for users whose window has passed. The active_subscriptions
// rows are left untouched; their expiry is judged at read time.
func (m *CronManager) ExpireLegacySubscriptions() {
	jobName := "expire_legacy_subscriptions"

	var users []model.User
	if err := m.db.Where("subscription IS NOT NULL").Find(&users).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to query users: %w", err))
		return
	}

	now := time.Now()
	expired := 0
	for i := range users {
		var legacy model.LegacySubscription
		if err := json.Unmarshal(users[i].Subscription, &legacy); err != nil {
			continue
		}
		if legacy.Status != "active" || legacy.EndDate.After(now) {
			continue
		}

		legacy.Status = "expired"
		blob, err := json.Marshal(legacy)
		if err != nil {
			continue
		}
		if err := m.db.Model(&model.User{}).Where("id = ?", users[i].ID).
			Update("subscription", blob).Error; err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to expire subscription for user %d: %w", users[i].ID, err))
			return
		}
		expired++
	}

	m.logJobComplete(jobName, fmt.Sprintf("Expired %d legacy subscriptions", expired))
}
