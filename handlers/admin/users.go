package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"gorm.io/gorm"
)

// UserHandler serves the admin user directory
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler creates a new admin user handler
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// List returns users, paginated, optionally filtered by role or searched
// by phone/name.
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	query := h.db.Model(&model.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("phone LIKE ? OR name LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	pagination := response.CalculatePagination(page, limit, total)

	var users []model.User
	err := query.Order("created_at DESC").
		Offset((pagination.CurrentPage - 1) * pagination.PerPage).
		Limit(pagination.PerPage).
		Find(&users).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to load users")
	}

	return response.Paginated(c, users, pagination)
}

// Get returns one user with subscription and payment history.
func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return response.BadRequest(c, "Invalid user id")
	}

	var user model.User
	err = h.db.Preload("ActiveSubscriptions").
		Preload("ActiveSubscriptions.Plan").
		First(&user, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to load user")
	}

	var payments []model.Payment
	if err := h.db.Preload("Plan").Where("user_id = ?", user.ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		return response.InternalServerError(c, "Failed to load payments")
	}

	return response.Success(c, fiber.Map{
		"user":     user,
		"payments": payments,
	})
}
