package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shiksha-labs/shiksha-api/database"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/services/subscription"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeGateway serves orders from memory. Status of a fetched order is
// controlled per order id.
type fakeGateway struct {
	nextID   int
	statuses map[string]string // order id -> status on fetch
	refs     map[string]string // order id -> reference id on fetch
	orders   map[string]*Order
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		statuses: make(map[string]string),
		refs:     make(map[string]string),
		orders:   make(map[string]*Order),
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount float64, currency, receipt string) (*Order, error) {
	g.nextID++
	order := &Order{
		ID:       fmt.Sprintf("order_%d", g.nextID),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   OrderCreated,
	}
	g.orders[order.ID] = order
	return order, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, orderID string) (*Order, error) {
	order, ok := g.orders[orderID]
	if !ok {
		return nil, errors.New("order not found")
	}
	fetched := *order
	if status, ok := g.statuses[orderID]; ok {
		fetched.Status = status
	}
	fetched.ReferenceID = g.refs[orderID]
	return &fetched, nil
}

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

type fixture struct {
	db      *gorm.DB
	gateway *fakeGateway
	svc     *Service
	user    *model.User
	plan    *model.SubscriptionPlan
}

func newFixture(t *testing.T, config Config) *fixture {
	t.Helper()

	db := openTestDB(t)
	gateway := newFakeGateway()
	if config.Secret == "" {
		config.Secret = "test-secret"
	}
	svc := NewService(db, gateway, subscription.NewService(db), config)

	user := &model.User{Phone: "+919876543210", Name: "Test Student", Role: model.RoleStudent, Board: "CBSE", Class: 10}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	classes, _ := json.Marshal([]int{10})
	plan := &model.SubscriptionPlan{
		Name:     "CBSE Class 10 Monthly",
		Type:     model.PlanTypeRegular,
		Board:    "CBSE",
		Classes:  datatypes.JSON(classes),
		Duration: model.DurationMonthly,
		Price:    499,
		IsActive: true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	return &fixture{db: db, gateway: gateway, svc: svc, user: user, plan: plan}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if pmt.Status != model.PaymentPending {
		t.Errorf("status = %q, want pending", pmt.Status)
	}
	if pmt.OrderID == "" || pmt.Receipt == "" {
		t.Error("expected order id and receipt to be set")
	}
	if pmt.Amount != f.plan.Price {
		t.Errorf("amount = %v, want %v", pmt.Amount, f.plan.Price)
	}

	// A second create for the same plan reuses the open order.
	again, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("second CreateOrder failed: %v", err)
	}
	if again.ID != pmt.ID {
		t.Errorf("expected pending order to be reused, got new payment %d", again.ID)
	}
}

func TestCreateOrderUnknownPlan(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.svc.CreateOrder(context.Background(), f.user, 9999)
	if err != ErrPlanNotFound {
		t.Errorf("CreateOrder = %v, want ErrPlanNotFound", err)
	}
}

func TestVerifyPaymentHappyPath(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	f.gateway.statuses[pmt.OrderID] = OrderPaid
	f.gateway.refs[pmt.OrderID] = "pay_123"

	before := time.Now()
	verified, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", "")
	if err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
	if verified.Status != model.PaymentCompleted {
		t.Errorf("status = %q, want completed", verified.Status)
	}
	if verified.ReferenceID != "pay_123" {
		t.Errorf("reference id = %q, want pay_123", verified.ReferenceID)
	}

	// Monthly plan: the window is one month from verification.
	if verified.SubscriptionStartDate == nil || verified.SubscriptionEndDate == nil {
		t.Fatal("expected subscription window to be set")
	}
	wantEnd := verified.SubscriptionStartDate.AddDate(0, 1, 0)
	if !verified.SubscriptionEndDate.Equal(wantEnd) {
		t.Errorf("window end = %v, want %v", verified.SubscriptionEndDate, wantEnd)
	}
	if verified.SubscriptionStartDate.Before(before.Add(-time.Minute)) {
		t.Errorf("window start %v is too far in the past", verified.SubscriptionStartDate)
	}

	// Subscription row was appended with the plan snapshot.
	var subs []model.ActiveSubscription
	if err := f.db.Where("user_id = ?", f.user.ID).Find(&subs).Error; err != nil {
		t.Fatalf("failed to load subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("got %d subscription rows, want 1", len(subs))
	}
	if subs[0].Type != model.PlanTypeRegular || subs[0].Board != "CBSE" || subs[0].Class != 10 {
		t.Errorf("snapshot = (%s, %s, %d), want (regular, CBSE, 10)", subs[0].Type, subs[0].Board, subs[0].Class)
	}

	// Legacy blob on the user was overwritten.
	var user model.User
	if err := f.db.First(&user, f.user.ID).Error; err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	var legacy model.LegacySubscription
	if err := json.Unmarshal(user.Subscription, &legacy); err != nil {
		t.Fatalf("failed to decode legacy blob: %v", err)
	}
	if legacy.Status != "active" || legacy.PlanID != f.plan.ID {
		t.Errorf("legacy blob = %+v, want active plan %d", legacy, f.plan.ID)
	}
}

func TestVerifyPaymentIdempotent(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	f.gateway.statuses[pmt.OrderID] = OrderPaid

	if _, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", ""); err != nil {
		t.Fatalf("first VerifyPayment failed: %v", err)
	}

	_, err = f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", "")
	if err != ErrAlreadyVerified {
		t.Errorf("second VerifyPayment = %v, want ErrAlreadyVerified", err)
	}

	// No duplicate subscription rows.
	var count int64
	f.db.Model(&model.ActiveSubscription{}).Where("user_id = ?", f.user.ID).Count(&count)
	if count != 1 {
		t.Errorf("subscription rows = %d, want 1", count)
	}
}

func TestVerifyPaymentNotPaidAtGateway(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	f.gateway.statuses[pmt.OrderID] = OrderAttempted

	_, err = f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "", "")
	if err != ErrOrderNotPaid {
		t.Fatalf("VerifyPayment = %v, want ErrOrderNotPaid", err)
	}

	var reloaded model.Payment
	if err := f.db.First(&reloaded, pmt.ID).Error; err != nil {
		t.Fatalf("failed to reload payment: %v", err)
	}
	if reloaded.Status != model.PaymentFailed {
		t.Errorf("status = %q, want failed", reloaded.Status)
	}
	if reloaded.FailureReason == "" {
		t.Error("expected a failure reason to be recorded")
	}

	// A failed order is terminal for verification.
	if _, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "", ""); err != ErrNotPayable {
		t.Errorf("re-verify of failed payment = %v, want ErrNotPayable", err)
	}
}

func TestVerifyPaymentSignature(t *testing.T) {
	ctx := context.Background()

	t.Run("lenient mode activates despite mismatch", func(t *testing.T) {
		f := newFixture(t, Config{StrictSignature: false})

		pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		f.gateway.statuses[pmt.OrderID] = OrderPaid
		f.gateway.refs[pmt.OrderID] = "pay_123"

		verified, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", "bogus-signature")
		if err != nil {
			t.Fatalf("VerifyPayment failed: %v", err)
		}
		if verified.Status != model.PaymentCompleted {
			t.Errorf("status = %q, want completed", verified.Status)
		}
	})

	t.Run("strict mode rejects mismatch", func(t *testing.T) {
		f := newFixture(t, Config{StrictSignature: true})

		pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		f.gateway.statuses[pmt.OrderID] = OrderPaid
		f.gateway.refs[pmt.OrderID] = "pay_123"

		_, err = f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", "bogus-signature")
		if err != ErrSignatureMismatch {
			t.Fatalf("VerifyPayment = %v, want ErrSignatureMismatch", err)
		}

		var reloaded model.Payment
		if err := f.db.First(&reloaded, pmt.ID).Error; err != nil {
			t.Fatalf("failed to reload payment: %v", err)
		}
		if reloaded.Status != model.PaymentFailed {
			t.Errorf("status = %q, want failed", reloaded.Status)
		}
	})

	t.Run("strict mode accepts valid signature", func(t *testing.T) {
		f := newFixture(t, Config{StrictSignature: true, Secret: "test-secret"})

		pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
		if err != nil {
			t.Fatalf("CreateOrder failed: %v", err)
		}
		f.gateway.statuses[pmt.OrderID] = OrderPaid
		f.gateway.refs[pmt.OrderID] = "pay_123"

		sig := Sign("test-secret", pmt.OrderID, pmt.Amount, "pay_123", OrderPaid)
		verified, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", sig)
		if err != nil {
			t.Fatalf("VerifyPayment failed: %v", err)
		}
		if verified.Status != model.PaymentCompleted {
			t.Errorf("status = %q, want completed", verified.Status)
		}
	})
}

func TestVerifyPaymentCreatesReferralOnce(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	agent := &model.User{Phone: "+919800000001", Name: "Agent", Role: model.RoleAgent}
	if err := f.db.Create(agent).Error; err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}
	if err := f.db.Model(f.user).Update("referral_agent_id", agent.ID).Error; err != nil {
		t.Fatalf("failed to link agent: %v", err)
	}
	f.user.ReferralAgentID = &agent.ID

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	f.gateway.statuses[pmt.OrderID] = OrderPaid

	if _, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", ""); err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}

	var records []model.ReferralRecord
	if err := f.db.Find(&records).Error; err != nil {
		t.Fatalf("failed to load referrals: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("referral records = %d, want 1", len(records))
	}
	r := records[0]
	if r.AgentID != agent.ID || r.StudentID != f.user.ID || r.PaymentID != pmt.ID {
		t.Errorf("referral = %+v, want agent %d student %d payment %d", r, agent.ID, f.user.ID, pmt.ID)
	}
	if r.Status != model.ReferralPending {
		t.Errorf("referral status = %q, want pending", r.Status)
	}
	if r.Amount != pmt.Amount {
		t.Errorf("referral amount = %v, want %v", r.Amount, pmt.Amount)
	}
}

func TestVerifyPaymentNoReferralWithoutAgent(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	f.gateway.statuses[pmt.OrderID] = OrderPaid

	if _, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", ""); err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}

	var count int64
	f.db.Model(&model.ReferralRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("referral records = %d, want 0", count)
	}
}

func TestCreateOrderRejectsConflict(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	pmt, err := f.svc.CreateOrder(ctx, f.user, f.plan.ID)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	f.gateway.statuses[pmt.OrderID] = OrderPaid
	if _, err := f.svc.VerifyPayment(ctx, f.user, pmt.OrderID, "pay_123", ""); err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}

	// Second plan covering the same board and class.
	classes, _ := json.Marshal([]int{10, 11})
	overlap := &model.SubscriptionPlan{
		Name:     "CBSE Secondary Yearly",
		Type:     model.PlanTypeRegular,
		Board:    "CBSE",
		Classes:  datatypes.JSON(classes),
		Duration: model.DurationYearly,
		Price:    4999,
		IsActive: true,
	}
	if err := f.db.Create(overlap).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	_, err = f.svc.CreateOrder(ctx, f.user, overlap.ID)
	var conflict *subscription.ConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("CreateOrder = %v, want ConflictError", err)
	}
}
