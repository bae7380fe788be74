package model

import (
	"time"

	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

// Payment represents one order attempt against the payment gateway.
// Status transitions pending -> completed on a verified callback, or
// pending -> failed on verification failure. Stale pending orders are
// swept to cancelled by a cron job. Completed payments are immutable.
type Payment struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID uint `gorm:"not null;index" json:"user_id"`
	PlanID uint `gorm:"not null;index" json:"plan_id"`

	OrderID     string  `gorm:"type:varchar(100);uniqueIndex" json:"order_id"`
	ReferenceID string  `gorm:"type:varchar(100)" json:"reference_id"`  // gateway payment reference
	Receipt     string  `gorm:"type:varchar(64)" json:"receipt"`
	Amount      float64 `gorm:"not null" json:"amount"`
	Currency    string  `gorm:"type:varchar(10);default:'INR'" json:"currency"`
	Status      string  `gorm:"type:varchar(20);default:'pending';index" json:"status"`

	FailureReason string `gorm:"type:text" json:"failure_reason,omitempty"`

	// Entitlement window granted by this payment, set on completion.
	SubscriptionStartDate *time.Time `json:"subscription_start_date,omitempty"`
	SubscriptionEndDate   *time.Time `gorm:"index" json:"subscription_end_date,omitempty"`

	User User             `gorm:"foreignKey:UserID" json:"-"`
	Plan SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}
