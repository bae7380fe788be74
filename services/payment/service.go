package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/services/subscription"
	"gorm.io/gorm"
)

var (
	ErrPlanNotFound      = errors.New("subscription plan not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrAlreadyVerified   = errors.New("payment already verified")
	ErrNotPayable        = errors.New("payment is not in a verifiable state")
	ErrOrderNotPaid      = errors.New("payment not completed at gateway")
	ErrSignatureMismatch = errors.New("payment signature verification failed")
)

// Config holds payment orchestration policy.
type Config struct {
	Secret          string // gateway signing secret
	Currency        string // default INR
	StrictSignature bool   // when true a signature mismatch fails verification
}

// Service builds orders with the gateway and, on verification, activates
// the subscription window on the student record.
type Service struct {
	db      *gorm.DB
	gateway Gateway
	subs    *subscription.Service
	config  Config
}

// NewService creates a payment service.
func NewService(db *gorm.DB, gateway Gateway, subs *subscription.Service, config Config) *Service {
	if config.Currency == "" {
		config.Currency = "INR"
	}
	return &Service{
		db:      db,
		gateway: gateway,
		subs:    subs,
		config:  config,
	}
}

// CreateOrder validates the purchase and registers an order with the
// gateway. Conflicting purchases are rejected before the gateway is
// reached. An existing pending order for the same user and plan is reused.
func (s *Service) CreateOrder(ctx context.Context, user *model.User, planID uint) (*model.Payment, error) {
	var plan model.SubscriptionPlan
	err := s.db.Where("id = ? AND is_active = ?", planID, true).First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	if err := s.subs.CheckConflict(user.ID, &plan, time.Now()); err != nil {
		return nil, err
	}

	// Duplicate check: reuse an open order instead of stacking them.
	var existing model.Payment
	err = s.db.Where("user_id = ? AND plan_id = ? AND status = ?", user.ID, plan.ID, model.PaymentPending).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	receipt := uuid.New().String()
	order, err := s.gateway.CreateOrder(ctx, plan.Price, s.config.Currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway order: %w", err)
	}

	pmt := model.Payment{
		UserID:   user.ID,
		PlanID:   plan.ID,
		OrderID:  order.ID,
		Receipt:  receipt,
		Amount:   plan.Price,
		Currency: s.config.Currency,
		Status:   model.PaymentPending,
	}
	if err := s.db.Create(&pmt).Error; err != nil {
		return nil, err
	}

	return &pmt, nil
}

// VerifyPayment settles a pending order. The live gateway status is the
// authority; a client-supplied signature is checked but, unless strict
// mode is on, a mismatch is logged as a security event without blocking
// activation. Completion, the subscription append, the legacy blob
// overwrite and the referral record run in one transaction.
func (s *Service) VerifyPayment(ctx context.Context, user *model.User, orderID, referenceID, signature string) (*model.Payment, error) {
	var pmt model.Payment
	err := s.db.Preload("Plan").
		Where("order_id = ? AND user_id = ?", orderID, user.ID).
		First(&pmt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	switch pmt.Status {
	case model.PaymentCompleted:
		return nil, ErrAlreadyVerified
	case model.PaymentFailed, model.PaymentCancelled:
		return nil, ErrNotPayable
	}

	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gateway order: %w", err)
	}

	if order.ReferenceID != "" {
		referenceID = order.ReferenceID
	}

	if order.Status != OrderPaid {
		reason := fmt.Sprintf("gateway reported order status %q", order.Status)
		if err := s.markFailed(&pmt, reason); err != nil {
			return nil, err
		}
		return nil, ErrOrderNotPaid
	}

	if signature != "" && !VerifySignature(s.config.Secret, orderID, pmt.Amount, referenceID, order.Status, signature) {
		log.Printf("SECURITY: payment signature mismatch for order %s (user %d)", orderID, user.ID)
		if s.config.StrictSignature {
			if err := s.markFailed(&pmt, "signature verification failed"); err != nil {
				return nil, err
			}
			return nil, ErrSignatureMismatch
		}
	}

	start, end := pmt.Plan.SubscriptionWindow(time.Now())

	err = s.db.Transaction(func(tx *gorm.DB) error {
		pmt.Status = model.PaymentCompleted
		pmt.ReferenceID = referenceID
		pmt.SubscriptionStartDate = &start
		pmt.SubscriptionEndDate = &end
		if err := tx.Save(&pmt).Error; err != nil {
			return err
		}

		sub := model.ActiveSubscription{
			UserID:    user.ID,
			PlanID:    pmt.PlanID,
			PaymentID: pmt.ID,
			StartDate: start,
			EndDate:   end,
			Type:      pmt.Plan.Type,
			Board:     pmt.Plan.Board,
			Class:     snapshotClass(user, &pmt.Plan),
			ClassID:   pmt.Plan.ClassID,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}

		legacy, err := json.Marshal(model.LegacySubscription{
			Status:    "active",
			PlanID:    pmt.PlanID,
			StartDate: start,
			EndDate:   end,
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).
			Update("subscription", legacy).Error; err != nil {
			return err
		}

		return s.createReferral(tx, user, &pmt)
	})
	if err != nil {
		return nil, err
	}

	return &pmt, nil
}

// createReferral records at most one referral per payment. The existence
// check keeps at-least-once verify deliveries from duplicating records.
func (s *Service) createReferral(tx *gorm.DB, user *model.User, pmt *model.Payment) error {
	if user.ReferralAgentID == nil {
		return nil
	}

	var count int64
	if err := tx.Model(&model.ReferralRecord{}).Where("payment_id = ?", pmt.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	record := model.ReferralRecord{
		AgentID:   *user.ReferralAgentID,
		StudentID: user.ID,
		PaymentID: pmt.ID,
		Amount:    pmt.Amount,
		Date:      time.Now(),
		Status:    model.ReferralPending,
	}
	return tx.Create(&record).Error
}

func (s *Service) markFailed(pmt *model.Payment, reason string) error {
	return s.db.Model(pmt).Updates(map[string]interface{}{
		"status":         model.PaymentFailed,
		"failure_reason": reason,
	}).Error
}

// snapshotClass picks the numbered class recorded on the subscription
// entry: the student's own class when the plan covers it, otherwise the
// plan's first class.
func snapshotClass(user *model.User, plan *model.SubscriptionPlan) int {
	if plan.Type != model.PlanTypeRegular {
		return 0
	}
	if plan.HasClass(user.Class) {
		return user.Class
	}
	if classes := plan.ClassList(); len(classes) > 0 {
		return classes[0]
	}
	return 0
}
