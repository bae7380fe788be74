package model

import (
	"time"

	"gorm.io/gorm"
)

// Class represents a special-purpose class track referenced by preparation
// plans (exam-prep courses such as JEE or NEET). Numbered school classes
// (1-12) are plain integers on plans and students and do not live here.
type Class struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Name        string         `gorm:"uniqueIndex;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
}

// TableName specifies the table name for Class
func (Class) TableName() string {
	return "classes"
}
