package referral

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/middleware"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"gorm.io/gorm"
)

// ReferralHandler serves agent referral reporting and admin status updates
type ReferralHandler struct {
	db *gorm.DB
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(db *gorm.DB) *ReferralHandler {
	return &ReferralHandler{db: db}
}

// ReferralSummary aggregates an agent's referral earnings
type ReferralSummary struct {
	TotalReferrals  int64   `json:"total_referrals"`
	TotalAmount     float64 `json:"total_amount"`
	PendingAmount   float64 `json:"pending_amount"`
	CompletedAmount float64 `json:"completed_amount"`
	PaidAmount      float64 `json:"paid_amount"`
}

// MyReferrals lists the authenticated agent's referral records with a
// summary block.
func (h *ReferralHandler) MyReferrals(c *fiber.Ctx) error {
	agentID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var records []model.ReferralRecord
	err := h.db.Preload("Student").
		Where("agent_id = ?", agentID).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load referrals")
	}

	summary := ReferralSummary{TotalReferrals: int64(len(records))}
	for _, r := range records {
		summary.TotalAmount += r.Amount
		switch r.Status {
		case model.ReferralPending:
			summary.PendingAmount += r.Amount
		case model.ReferralCompleted:
			summary.CompletedAmount += r.Amount
		case model.ReferralPaid:
			summary.PaidAmount += r.Amount
		}
	}

	return response.Success(c, fiber.Map{
		"referrals": records,
		"summary":   summary,
	})
}

// List returns all referral records, paginated, optionally filtered by
// status or agent. Admin only.
func (h *ReferralHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	query := h.db.Model(&model.ReferralRecord{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if agentID := c.QueryInt("agent_id", 0); agentID > 0 {
		query = query.Where("agent_id = ?", agentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count referrals")
	}

	pagination := response.CalculatePagination(page, limit, total)

	var records []model.ReferralRecord
	err := query.Preload("Student").Preload("Agent").
		Order("date DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PerPage).
		Limit(pagination.PerPage).
		Find(&records).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load referrals")
	}

	return response.Paginated(c, records, pagination)
}

// UpdateStatusRequest advances a referral record
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus advances a referral: pending -> completed -> paid. Admin
// only; independent of the payment lifecycle.
func (h *ReferralHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid referral id")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	var record model.ReferralRecord
	if err := h.db.First(&record, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Referral record not found")
		}
		return response.InternalServerError(c, "Failed to load referral")
	}

	allowed := map[string]string{
		model.ReferralPending:   model.ReferralCompleted,
		model.ReferralCompleted: model.ReferralPaid,
	}
	if next, ok := allowed[record.Status]; !ok || next != req.Status {
		return response.BadRequest(c, "Invalid status transition")
	}

	record.Status = req.Status
	if err := h.db.Save(&record).Error; err != nil {
		return response.InternalServerError(c, "Failed to update referral")
	}

	return response.SuccessWithMessage(c, "Referral status updated", record)
}
