package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shiksha-labs/shiksha-api/database"
	"github.com/shiksha-labs/shiksha-api/model"
	"gorm.io/datatypes"
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

	// One in-memory database per connection otherwise.
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

func classesJSON(t *testing.T, classes ...int) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(classes)
	if err != nil {
		t.Fatalf("failed to marshal classes: %v", err)
	}
	return datatypes.JSON(raw)
}

func createUser(t *testing.T, db *gorm.DB, phone string) *model.User {
	t.Helper()
	user := &model.User{Phone: phone, Name: "Test Student", Role: model.RoleStudent, Board: "CBSE", Class: 10}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func createRegularPlan(t *testing.T, db *gorm.DB, board string, classes ...int) *model.SubscriptionPlan {
	t.Helper()
	plan := &model.SubscriptionPlan{
		Name:     "Test Plan",
		Type:     model.PlanTypeRegular,
		Board:    board,
		Classes:  classesJSON(t, classes...),
		Duration: model.DurationMonthly,
		Price:    499,
		IsActive: true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	return plan
}

var orderSeq int

func grantSubscription(t *testing.T, db *gorm.DB, user *model.User, plan *model.SubscriptionPlan, end time.Time) {
	t.Helper()

	orderSeq++
	pmt := model.Payment{
		UserID:  user.ID,
		PlanID:  plan.ID,
		OrderID: fmt.Sprintf("order_%d", orderSeq),
		Amount:  plan.Price,
		Status:  model.PaymentCompleted,
	}
	if err := db.Create(&pmt).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	sub := model.ActiveSubscription{
		UserID:    user.ID,
		PlanID:    plan.ID,
		PaymentID: pmt.ID,
		StartDate: end.AddDate(0, -1, 0),
		EndDate:   end,
		Type:      plan.Type,
		Board:     plan.Board,
		ClassID:   plan.ClassID,
	}
	if classes := plan.ClassList(); len(classes) > 0 {
		sub.Class = classes[0]
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}
}

func TestCheckConflictRegularOverlap(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Now()

	user := createUser(t, db, "+919876543210")
	owned := createRegularPlan(t, db, "CBSE", 10)
	grantSubscription(t, db, user, owned, now.AddDate(0, 0, 10))

	// Same board, overlapping class: conflict.
	candidate := createRegularPlan(t, db, "CBSE", 9, 10)
	err := svc.CheckConflict(user.ID, candidate, now)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("CheckConflict = %v, want ConflictError", err)
	}

	// Same board, disjoint classes: no conflict.
	disjoint := createRegularPlan(t, db, "CBSE", 11, 12)
	if err := svc.CheckConflict(user.ID, disjoint, now); err != nil {
		t.Errorf("CheckConflict for disjoint classes = %v, want nil", err)
	}

	// Different board, same class: no conflict.
	otherBoard := createRegularPlan(t, db, "ICSE", 10)
	if err := svc.CheckConflict(user.ID, otherBoard, now); err != nil {
		t.Errorf("CheckConflict for other board = %v, want nil", err)
	}
}

func TestCheckConflictExpiredSubscription(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Now()

	user := createUser(t, db, "+919876543210")
	owned := createRegularPlan(t, db, "CBSE", 10)
	grantSubscription(t, db, user, owned, now.AddDate(0, 0, -1)) // already over

	candidate := createRegularPlan(t, db, "CBSE", 10)
	if err := svc.CheckConflict(user.ID, candidate, now); err != nil {
		t.Errorf("CheckConflict against expired subscription = %v, want nil", err)
	}
}

func TestCheckConflictPreparation(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Now()

	class := model.Class{Name: "JEE"}
	if err := db.Create(&class).Error; err != nil {
		t.Fatalf("failed to create class: %v", err)
	}
	otherClass := model.Class{Name: "NEET"}
	if err := db.Create(&otherClass).Error; err != nil {
		t.Fatalf("failed to create class: %v", err)
	}

	owned := &model.SubscriptionPlan{
		Name: "JEE Quarterly", Type: model.PlanTypePreparation,
		ClassID: &class.ID, Duration: model.DurationQuarterly, Price: 999, IsActive: true,
	}
	if err := db.Create(owned).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	user := createUser(t, db, "+919876543210")
	grantSubscription(t, db, user, owned, now.AddDate(0, 1, 0))

	// Same track: conflict.
	sameTrack := &model.SubscriptionPlan{
		Name: "JEE Yearly", Type: model.PlanTypePreparation,
		ClassID: &class.ID, Duration: model.DurationYearly, Price: 2999, IsActive: true,
	}
	var conflict *ConflictError
	if err := svc.CheckConflict(user.ID, sameTrack, now); !errors.As(err, &conflict) {
		t.Fatalf("CheckConflict for same track = %v, want ConflictError", err)
	}

	// Different track: no conflict.
	otherTrack := &model.SubscriptionPlan{
		Name: "NEET Yearly", Type: model.PlanTypePreparation,
		ClassID: &otherClass.ID, Duration: model.DurationYearly, Price: 2999, IsActive: true,
	}
	if err := svc.CheckConflict(user.ID, otherTrack, now); err != nil {
		t.Errorf("CheckConflict for other track = %v, want nil", err)
	}

	// Plan without a class track fails open.
	noTrack := &model.SubscriptionPlan{
		Name: "Orphan Prep", Type: model.PlanTypePreparation,
		Duration: model.DurationYearly, Price: 2999, IsActive: true,
	}
	if err := svc.CheckConflict(user.ID, noTrack, now); err != nil {
		t.Errorf("CheckConflict without class track = %v, want nil (fail open)", err)
	}
}

func TestCheckConflictFromCompletedPaymentOnly(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Now()

	user := createUser(t, db, "+919876543210")
	owned := createRegularPlan(t, db, "CBSE", 10)

	// A completed payment with an open window but no subscription row.
	// Both sources must be consulted.
	end := now.AddDate(0, 0, 20)
	start := now.AddDate(0, -1, 0)
	pmt := model.Payment{
		UserID:                user.ID,
		PlanID:                owned.ID,
		OrderID:               "order_pmt_only",
		Amount:                owned.Price,
		Status:                model.PaymentCompleted,
		SubscriptionStartDate: &start,
		SubscriptionEndDate:   &end,
	}
	if err := db.Create(&pmt).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	candidate := createRegularPlan(t, db, "CBSE", 10)
	var conflict *ConflictError
	if err := svc.CheckConflict(user.ID, candidate, now); !errors.As(err, &conflict) {
		t.Fatalf("CheckConflict = %v, want ConflictError from payment source", err)
	}
}

func TestActiveSubscriptionsFiltersExpired(t *testing.T) {
	db := openTestDB(t)
	svc := NewService(db)
	now := time.Now()

	user := createUser(t, db, "+919876543210")
	plan := createRegularPlan(t, db, "CBSE", 10)
	grantSubscription(t, db, user, plan, now.AddDate(0, 0, 5))
	grantSubscription(t, db, user, plan, now.AddDate(0, 0, -5))

	subs, err := svc.ActiveSubscriptions(user.ID, now)
	if err != nil {
		t.Fatalf("ActiveSubscriptions failed: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d active subscriptions, want 1", len(subs))
	}
	if !subs[0].IsActive(now) {
		t.Error("returned subscription reports inactive")
	}
}
