package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan types
const (
	PlanTypeRegular     = "regular"
	PlanTypePreparation = "preparation"
)

// Plan durations
const (
	DurationMonthly    = "monthly"
	DurationQuarterly  = "quarterly"
	DurationHalfYearly = "half_yearly"
	DurationYearly     = "yearly"
	DurationDemo       = "demo"
)

// DefaultDemoValidityDays applies when a demo plan has no explicit validity.
const DefaultDemoValidityDays = 7

// SubscriptionPlan is a purchasable catalog entry. Type is the discriminant:
// regular plans are scoped to a board plus one or more numbered classes,
// preparation plans to a single Class track.
type SubscriptionPlan struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"not null" json:"name"`
	Type string `gorm:"type:varchar(20);not null;index" json:"type"` // regular, preparation

	// Regular-plan scope
	Board   string         `gorm:"type:varchar(30)" json:"board,omitempty"`
	Classes datatypes.JSON `json:"classes,omitempty"` // array of ints, 1-12

	// Preparation-plan scope
	ClassID *uint `gorm:"index" json:"class_id,omitempty"`
	Class   Class `gorm:"foreignKey:ClassID" json:"class,omitempty"`

	Duration     string  `gorm:"type:varchar(20);not null" json:"duration"`
	Price        float64 `gorm:"not null" json:"price"`
	ValidityDays int     `json:"validity_days,omitempty"` // demo plans only
	IsActive     bool    `gorm:"default:true" json:"is_active"`
}

// ClassList decodes the Classes JSON column. A nil or malformed column
// decodes to an empty list.
func (p SubscriptionPlan) ClassList() []int {
	if len(p.Classes) == 0 {
		return nil
	}
	var classes []int
	if err := json.Unmarshal(p.Classes, &classes); err != nil {
		return nil
	}
	return classes
}

// HasClass reports whether the plan covers the given numbered class.
func (p SubscriptionPlan) HasClass(class int) bool {
	for _, c := range p.ClassList() {
		if c == class {
			return true
		}
	}
	return false
}

// SubscriptionWindow returns the entitlement window starting at start,
// sized by the plan duration.
func (p SubscriptionPlan) SubscriptionWindow(start time.Time) (time.Time, time.Time) {
	var end time.Time
	switch p.Duration {
	case DurationMonthly:
		end = start.AddDate(0, 1, 0)
	case DurationQuarterly:
		end = start.AddDate(0, 3, 0)
	case DurationHalfYearly:
		end = start.AddDate(0, 6, 0)
	case DurationYearly:
		end = start.AddDate(1, 0, 0)
	case DurationDemo:
		days := p.ValidityDays
		if days <= 0 {
			days = DefaultDemoValidityDays
		}
		end = start.AddDate(0, 0, days)
	default:
		end = start.AddDate(0, 1, 0)
	}
	return start, end
}

// ValidDuration reports whether d is a recognized plan duration.
func ValidDuration(d string) bool {
	switch d {
	case DurationMonthly, DurationQuarterly, DurationHalfYearly, DurationYearly, DurationDemo:
		return true
	}
	return false
}

// TableName specifies the table name for SubscriptionPlan
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}
