package model

import (
	"time"

	"gorm.io/gorm"
)

// Referral statuses. Advanced only by admin action, independent of the
// payment lifecycle.
const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
	ReferralPaid      = "paid"
)

// ReferralRecord is created at most once per completed payment when the
// paying student was referred by an agent. Amount and date are denormalized
// for reporting.
type ReferralRecord struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	AgentID   uint `gorm:"not null;index" json:"agent_id"`
	StudentID uint `gorm:"not null;index" json:"student_id"`
	PaymentID uint `gorm:"not null;uniqueIndex" json:"payment_id"`

	Amount float64   `gorm:"not null" json:"amount"`
	Date   time.Time `gorm:"not null" json:"date"`
	Status string    `gorm:"type:varchar(20);default:'pending'" json:"status"`

	Agent   User    `gorm:"foreignKey:AgentID" json:"-"`
	Student User    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Payment Payment `gorm:"foreignKey:PaymentID" json:"-"`
}

// TableName specifies the table name for ReferralRecord
func (ReferralRecord) TableName() string {
	return "referral_records"
}
