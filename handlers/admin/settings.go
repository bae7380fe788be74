package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// SettingsHandler serves application settings
type SettingsHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// Public returns the settings flagged public, as a flat key/value map.
// Public endpoint used by mobile clients at startup.
func (h *SettingsHandler) Public(c *fiber.Ctx) error {
	var settings []model.AppSetting
	if err := h.db.Where("is_public = ?", true).Find(&settings).Error; err != nil {
		return response.InternalServerError(c, "Failed to load settings")
	}

	values := make(map[string]string, len(settings))
	for _, s := range settings {
		values[s.Key] = s.Value
	}

	return response.Success(c, values)
}

// List returns all settings. Admin only.
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	var settings []model.AppSetting
	if err := h.db.Order("key ASC").Find(&settings).Error; err != nil {
		return response.InternalServerError(c, "Failed to load settings")
	}

	return response.Success(c, settings)
}

// UpsertSettingRequest creates or updates a setting
type UpsertSettingRequest struct {
	Key         string `json:"key" validate:"required,min=2"`
	Value       string `json:"value" validate:"required"`
	Type        string `json:"type,omitempty" validate:"omitempty,oneof=string int bool json"`
	Description string `json:"description,omitempty"`
	IsPublic    *bool  `json:"is_public,omitempty"`
}

// Upsert creates or updates a setting by key. Admin only.
func (h *SettingsHandler) Upsert(c *fiber.Ctx) error {
	var req UpsertSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	var setting model.AppSetting
	err := h.db.Where("key = ?", req.Key).First(&setting).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return response.InternalServerError(c, "Failed to load setting")
	}

	setting.Key = req.Key
	setting.Value = req.Value
	if req.Type != "" {
		setting.Type = req.Type
	}
	if req.Description != "" {
		setting.Description = req.Description
	}
	if req.IsPublic != nil {
		setting.IsPublic = *req.IsPublic
	}

	if err := h.db.Save(&setting).Error; err != nil {
		return response.InternalServerError(c, "Failed to save setting")
	}

	return response.SuccessWithMessage(c, "Setting saved", setting)
}
