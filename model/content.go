package model

import (
	"time"

	"gorm.io/gorm"
)

// Content page types
const (
	ContentAbout   = "about"
	ContentPrivacy = "privacy"
	ContentTerms   = "terms"
	ContentContact = "contact"
)

// DefaultContentSlug marks the canonical document for a page type.
const DefaultContentSlug = "default"

// ContentPage is a versioned document (About/Privacy/Terms/Contact).
// The current page is the most recent active default-slug row for a type.
// The composite unique index closes the seed-on-empty-read race: two
// concurrent first reads cannot both insert version 1.
type ContentPage struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Type     string `gorm:"type:varchar(20);not null;uniqueIndex:idx_content_type_slug_version" json:"type"`
	Slug     string `gorm:"type:varchar(50);not null;default:'default';uniqueIndex:idx_content_type_slug_version" json:"slug"`
	Version  int    `gorm:"not null;default:1;uniqueIndex:idx_content_type_slug_version" json:"version"`
	Title    string `gorm:"not null" json:"title"`
	Body     string `gorm:"type:text;not null" json:"body"`
	IsActive bool   `gorm:"default:true;index" json:"is_active"`
}

// ValidContentType reports whether t names a known page type.
func ValidContentType(t string) bool {
	switch t {
	case ContentAbout, ContentPrivacy, ContentTerms, ContentContact:
		return true
	}
	return false
}

// TableName specifies the table name for ContentPage
func (ContentPage) TableName() string {
	return "content_pages"
}
