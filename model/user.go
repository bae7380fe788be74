package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAgent   = "agent"
	RoleAdmin   = "admin"
)

// User represents a registered user in the system. Students, teachers and
// agents authenticate by phone + OTP; admins by email + password.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Phone string `gorm:"uniqueIndex;not null" json:"phone"`
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"index" json:"email,omitempty"`
	Role  string `gorm:"type:varchar(20);default:'student'" json:"role"` // student, teacher, agent, admin

	// Admin-only credential
	PasswordHash string `gorm:"type:varchar(100)" json:"-"`

	// Student academic scope
	Board string `gorm:"type:varchar(30)" json:"board,omitempty"`
	Class int    `json:"class,omitempty"` // 1-12

	// Agent who referred this student, if any
	ReferralAgentID *uint `gorm:"index" json:"referral_agent_id,omitempty"`

	// Legacy singular subscription blob, overwritten on every successful
	// payment verification. Kept for older clients; active_subscriptions
	// is the authoritative list.
	Subscription datatypes.JSON `json:"subscription,omitempty"`

	// Relationships
	ActiveSubscriptions []ActiveSubscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"active_subscriptions,omitempty"`
	Payments            []Payment            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Referrals           []ReferralRecord     `gorm:"foreignKey:AgentID;constraint:OnDelete:CASCADE" json:"-"`
}

// LegacySubscription is the shape stored in User.Subscription.
type LegacySubscription struct {
	Status    string    `json:"status"`
	PlanID    uint      `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ActiveSubscription is an entitlement window appended on each successful
// payment verification. Rows are never deleted; expiry is judged at read
// time by comparing EndDate.
type ActiveSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PlanID    uint      `gorm:"not null;index" json:"plan_id"`
	PaymentID uint      `gorm:"not null;index" json:"payment_id"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index" json:"end_date"`

	// Snapshot of the plan scope at purchase time, so conflict checks
	// do not depend on later plan edits.
	Type    string `gorm:"type:varchar(20);not null" json:"type"` // regular, preparation
	Board   string `gorm:"type:varchar(30)" json:"board,omitempty"`
	Class   int    `json:"class,omitempty"`
	ClassID *uint  `json:"class_id,omitempty"`

	Plan SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// IsActive reports whether the window is still open at the given instant.
func (s ActiveSubscription) IsActive(now time.Time) bool {
	return s.EndDate.After(now)
}

// TableName specifies the table name for ActiveSubscription
func (ActiveSubscription) TableName() string {
	return "active_subscriptions"
}
