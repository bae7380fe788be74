package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	authutil "github.com/shiksha-labs/shiksha-api/utils/auth"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
)

// AdminLoginRequest represents an admin login request
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin handles email + password login for admins. Everyone else
// authenticates by phone + OTP.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var req AdminLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	var user model.User
	if err := h.db.Where("email = ? AND role = ?", req.Email, model.RoleAdmin).First(&user).Error; err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		return response.Unauthorized(c, "Invalid email or password")
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, LoginResponse{
		User:  toUserResponse(&user),
		Token: token,
	})
}
