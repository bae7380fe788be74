package content

import (
	"errors"

	"github.com/shiksha-labs/shiksha-api/model"
	"gorm.io/gorm"
)

// ErrUnknownType is returned for a page type outside the known set.
var ErrUnknownType = errors.New("unknown content page type")

// Default page bodies, persisted on first read of an empty collection.
var defaultPages = map[string]struct {
	Title string
	Body  string
}{
	model.ContentAbout: {
		Title: "About Us",
		Body:  "Shiksha is an online learning platform for school and exam-prep students. Edit this page from the admin panel.",
	},
	model.ContentPrivacy: {
		Title: "Privacy Policy",
		Body:  "We collect only the information needed to run the platform. Edit this page from the admin panel.",
	},
	model.ContentTerms: {
		Title: "Terms & Conditions",
		Body:  "By using the platform you agree to these terms. Edit this page from the admin panel.",
	},
	model.ContentContact: {
		Title: "Contact Us",
		Body:  "Reach us at support@shiksha.app. Edit this page from the admin panel.",
	},
}

// Service manages versioned content pages.
type Service struct {
	db *gorm.DB
}

// NewService creates a content service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetCurrent returns the most recent active default-slug document for the
// page type, synthesizing and persisting the default when none exists.
// FirstOrCreate under the (type, slug, version) unique index keeps two
// concurrent first reads from both inserting version 1.
func (s *Service) GetCurrent(pageType string) (*model.ContentPage, error) {
	if !model.ValidContentType(pageType) {
		return nil, ErrUnknownType
	}

	var page model.ContentPage
	err := s.db.Where("type = ? AND slug = ? AND is_active = ?", pageType, model.DefaultContentSlug, true).
		Order("version DESC").
		First(&page).Error
	if err == nil {
		return &page, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	seed := defaultPages[pageType]
	page = model.ContentPage{
		Type:    pageType,
		Slug:    model.DefaultContentSlug,
		Version: 1,
	}
	err = s.db.Where(page).
		Attrs(model.ContentPage{Title: seed.Title, Body: seed.Body, IsActive: true}).
		FirstOrCreate(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateVersion inserts the next version for the page type and activates
// it, deactivating prior versions in the same transaction.
func (s *Service) CreateVersion(pageType, title, body string) (*model.ContentPage, error) {
	if !model.ValidContentType(pageType) {
		return nil, ErrUnknownType
	}

	var page model.ContentPage
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var latest model.ContentPage
		version := 1
		err := tx.Where("type = ? AND slug = ?", pageType, model.DefaultContentSlug).
			Order("version DESC").
			First(&latest).Error
		if err == nil {
			version = latest.Version + 1
		} else if err != gorm.ErrRecordNotFound {
			return err
		}

		if err := tx.Model(&model.ContentPage{}).
			Where("type = ? AND slug = ?", pageType, model.DefaultContentSlug).
			Update("is_active", false).Error; err != nil {
			return err
		}

		page = model.ContentPage{
			Type:     pageType,
			Slug:     model.DefaultContentSlug,
			Version:  version,
			Title:    title,
			Body:     body,
			IsActive: true,
		}
		return tx.Create(&page).Error
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// History lists all versions for a page type, newest first.
func (s *Service) History(pageType string) ([]model.ContentPage, error) {
	if !model.ValidContentType(pageType) {
		return nil, ErrUnknownType
	}

	var pages []model.ContentPage
	err := s.db.Where("type = ? AND slug = ?", pageType, model.DefaultContentSlug).
		Order("version DESC").
		Find(&pages).Error
	return pages, err
}
