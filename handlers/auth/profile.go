package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/utils/middleware"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
)

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	return response.Success(c, toUserResponse(user))
}

// UpdateProfileRequest carries editable profile fields
type UpdateProfileRequest struct {
	Name  string `json:"name,omitempty" validate:"omitempty,min=2"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Board string `json:"board,omitempty"`
	Class int    `json:"class,omitempty" validate:"omitempty,gte=1,lte=12"`
}

// UpdateMe updates the authenticated user's profile. Phone and role are
// immutable here.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Board != "" {
		user.Board = req.Board
	}
	if req.Class != 0 {
		user.Class = req.Class
	}

	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.SuccessWithMessage(c, "Profile updated", toUserResponse(user))
}
