package cron

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shiksha-labs/shiksha-api/database"
	"github.com/shiksha-labs/shiksha-api/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestCancelStalePayments(t *testing.T) {
	db := openTestDB(t)
	manager := NewCronManager(db)

	user := model.User{Phone: "+919876543210", Name: "Test", Role: model.RoleStudent}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	stale := model.Payment{UserID: user.ID, PlanID: 1, OrderID: "order_stale", Amount: 499, Status: model.PaymentPending}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	// Backdate past the sweep cutoff.
	old := time.Now().Add(-StalePaymentAge - time.Hour)
	if err := db.Model(&stale).Update("created_at", old).Error; err != nil {
		t.Fatalf("failed to backdate payment: %v", err)
	}

	fresh := model.Payment{UserID: user.ID, PlanID: 1, OrderID: "order_fresh", Amount: 499, Status: model.PaymentPending}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	completed := model.Payment{UserID: user.ID, PlanID: 1, OrderID: "order_done", Amount: 499, Status: model.PaymentCompleted}
	if err := db.Create(&completed).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}
	oldCompleted := time.Now().Add(-StalePaymentAge - time.Hour)
	if err := db.Model(&completed).Update("created_at", oldCompleted).Error; err != nil {
		t.Fatalf("failed to backdate payment: %v", err)
	}

	manager.CancelStalePayments()

	check := func(id uint, want string) {
		var pmt model.Payment
		if err := db.First(&pmt, id).Error; err != nil {
			t.Fatalf("failed to reload payment %d: %v", id, err)
		}
		if pmt.Status != want {
			t.Errorf("payment %d status = %q, want %q", id, pmt.Status, want)
		}
	}
	check(stale.ID, model.PaymentCancelled)
	check(fresh.ID, model.PaymentPending)
	check(completed.ID, model.PaymentCompleted)
}

func TestExpireLegacySubscriptions(t *testing.T) {
	db := openTestDB(t)
	manager := NewCronManager(db)

	blob := func(status string, end time.Time) []byte {
		raw, _ := json.Marshal(model.LegacySubscription{Status: status, PlanID: 1, EndDate: end})
		return raw
	}

	expired := model.User{Phone: "+919800000001", Name: "Expired", Role: model.RoleStudent,
		Subscription: blob("active", time.Now().AddDate(0, 0, -1))}
	current := model.User{Phone: "+919800000002", Name: "Current", Role: model.RoleStudent,
		Subscription: blob("active", time.Now().AddDate(0, 1, 0))}
	for _, u := range []*model.User{&expired, &current} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
	}

	manager.ExpireLegacySubscriptions()

	var legacy model.LegacySubscription

	var reloaded model.User
	if err := db.First(&reloaded, expired.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if err := json.Unmarshal(reloaded.Subscription, &legacy); err != nil {
		t.Fatalf("failed to decode blob: %v", err)
	}
	if legacy.Status != "expired" {
		t.Errorf("past-window blob status = %q, want expired", legacy.Status)
	}

	reloaded = model.User{}
	if err := db.First(&reloaded, current.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	if err := json.Unmarshal(reloaded.Subscription, &legacy); err != nil {
		t.Fatalf("failed to decode blob: %v", err)
	}
	if legacy.Status != "active" {
		t.Errorf("open-window blob status = %q, want active", legacy.Status)
	}
}
