package plan

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// PlanHandler handles subscription-plan catalog requests
type PlanHandler struct {
	db        *gorm.DB
	validator *validation.Validator
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{
		db:        db,
		validator: validation.NewValidator(),
	}
}

// List returns active plans, optionally filtered by type, board, class or
// duration. Public endpoint.
func (h *PlanHandler) List(c *fiber.Ctx) error {
	query := h.db.Preload("Class").Where("is_active = ?", true)

	if planType := c.Query("type"); planType != "" {
		query = query.Where("type = ?", planType)
	}
	if board := c.Query("board"); board != "" {
		query = query.Where("board = ?", board)
	}
	if duration := c.Query("duration"); duration != "" {
		query = query.Where("duration = ?", duration)
	}

	var plans []model.SubscriptionPlan
	if err := query.Order("price ASC").Find(&plans).Error; err != nil {
		return response.InternalServerError(c, "Failed to load plans")
	}

	// Class filtering happens in Go: the class list is a JSON column.
	if classStr := c.Query("class"); classStr != "" {
		class, err := strconv.Atoi(classStr)
		if err != nil {
			return response.BadRequest(c, "Invalid class filter")
		}
		filtered := plans[:0]
		for _, p := range plans {
			if p.Type != model.PlanTypeRegular || p.HasClass(class) {
				filtered = append(filtered, p)
			}
		}
		plans = filtered
	}

	return response.Success(c, plans)
}

// Get returns one plan by id.
func (h *PlanHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid plan id")
	}

	var plan model.SubscriptionPlan
	if err := h.db.Preload("Class").First(&plan, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Subscription plan not found")
		}
		return response.InternalServerError(c, "Failed to load plan")
	}

	return response.Success(c, plan)
}

// CreatePlanRequest represents a plan creation request
type CreatePlanRequest struct {
	Name         string  `json:"name" validate:"required,min=3"`
	Type         string  `json:"type" validate:"required,oneof=regular preparation"`
	Board        string  `json:"board,omitempty"`
	Classes      []int   `json:"classes,omitempty" validate:"omitempty,dive,gte=1,lte=12"`
	ClassID      *uint   `json:"class_id,omitempty"`
	Duration     string  `json:"duration" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	ValidityDays int     `json:"validity_days,omitempty" validate:"omitempty,gte=1"`
}

// Create adds a catalog entry. Admin only. Uniqueness is enforced by a
// pre-create existence query: at most one regular plan per board, duration
// and overlapping class set, and one preparation plan per class track and
// duration.
func (h *PlanHandler) Create(c *fiber.Ctx) error {
	var req CreatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if !model.ValidDuration(req.Duration) {
		return response.BadRequest(c, "Invalid duration")
	}
	if req.Duration == model.DurationDemo && req.ValidityDays <= 0 {
		return response.BadRequest(c, "Demo plans require validity_days")
	}

	plan := model.SubscriptionPlan{
		Name:         req.Name,
		Type:         req.Type,
		Duration:     req.Duration,
		Price:        req.Price,
		ValidityDays: req.ValidityDays,
		IsActive:     true,
	}

	switch req.Type {
	case model.PlanTypeRegular:
		if req.Board == "" || len(req.Classes) == 0 {
			return response.BadRequest(c, "Regular plans require board and classes")
		}
		exists, err := h.regularPlanExists(req.Board, req.Duration, req.Classes)
		if err != nil {
			return response.InternalServerError(c, "Failed to check existing plans")
		}
		if exists {
			return response.BadRequest(c, "A plan for this board, classes and duration already exists")
		}
		classes, _ := json.Marshal(req.Classes)
		plan.Board = req.Board
		plan.Classes = classes

	case model.PlanTypePreparation:
		if req.ClassID == nil {
			return response.BadRequest(c, "Preparation plans require class_id")
		}
		var class model.Class
		if err := h.db.First(&class, *req.ClassID).Error; err != nil {
			return response.BadRequest(c, "Unknown preparation class")
		}
		var count int64
		err := h.db.Model(&model.SubscriptionPlan{}).
			Where("type = ? AND class_id = ? AND duration = ?", model.PlanTypePreparation, *req.ClassID, req.Duration).
			Count(&count).Error
		if err != nil {
			return response.InternalServerError(c, "Failed to check existing plans")
		}
		if count > 0 {
			return response.BadRequest(c, "A plan for this class and duration already exists")
		}
		plan.ClassID = req.ClassID
	}

	if err := h.db.Create(&plan).Error; err != nil {
		return response.InternalServerError(c, "Failed to create plan")
	}

	return response.Created(c, plan)
}

// regularPlanExists reports whether a regular plan with the same board and
// duration overlaps any of the given classes.
func (h *PlanHandler) regularPlanExists(board, duration string, classes []int) (bool, error) {
	var existing []model.SubscriptionPlan
	err := h.db.Where("type = ? AND board = ? AND duration = ?", model.PlanTypeRegular, board, duration).
		Find(&existing).Error
	if err != nil {
		return false, err
	}

	for _, plan := range existing {
		for _, class := range classes {
			if plan.HasClass(class) {
				return true, nil
			}
		}
	}
	return false, nil
}

// UpdatePlanRequest carries editable plan fields
type UpdatePlanRequest struct {
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	IsActive *bool    `json:"is_active,omitempty"`
}

// Update edits name, price or active state. Scope fields are immutable;
// retire the plan and create a new one instead.
func (h *PlanHandler) Update(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid plan id")
	}

	var req UpdatePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	var plan model.SubscriptionPlan
	if err := h.db.First(&plan, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Subscription plan not found")
		}
		return response.InternalServerError(c, "Failed to load plan")
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := h.db.Save(&plan).Error; err != nil {
		return response.InternalServerError(c, "Failed to update plan")
	}

	return response.SuccessWithMessage(c, "Plan updated", plan)
}

// Delete soft-deletes a plan. Existing subscriptions keep their snapshot.
func (h *PlanHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid plan id")
	}

	result := h.db.Delete(&model.SubscriptionPlan{}, id)
	if result.Error != nil {
		return response.InternalServerError(c, "Failed to delete plan")
	}
	if result.RowsAffected == 0 {
		return response.NotFound(c, "Subscription plan not found")
	}

	return response.SuccessWithMessage(c, "Plan deleted", nil)
}
