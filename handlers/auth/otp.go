package auth

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/services/identity"
	"github.com/shiksha-labs/shiksha-api/services/otp"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// RequestOTPRequest asks for an OTP to be sent to a phone
type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// RequestOTP sends an OTP to the given phone. Resends inside the cooldown
// window are refused with 429; test numbers bypass the cooldown.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req RequestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if !validation.ValidPhone(req.Phone) {
		return response.BadRequest(c, "Invalid phone number")
	}

	if err := h.otpService.Send(c.Context(), req.Phone); err != nil {
		var cooldown *otp.CooldownError
		if errors.As(err, &cooldown) {
			c.Set("Retry-After", fmt.Sprintf("%d", int(cooldown.Remaining.Seconds())))
			return response.TooManyRequests(c, cooldown.Error())
		}
		return response.InternalServerError(c, "Failed to send OTP: "+err.Error())
	}

	return response.SuccessWithMessage(c, "OTP sent successfully", nil)
}

// VerifyOTPRequest carries the code for a pending session
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// VerifyOTP logs in an existing user. Registration is a separate endpoint
// that performs its own verification.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if err := h.verifyCode(c, req.Phone, req.OTP); err != nil {
		return err
	}

	user, err := identity.FindUserByPhone(h.db, req.Phone)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not registered")
		}
		return response.InternalServerError(c, "Failed to look up user")
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Success(c, LoginResponse{
		User:  toUserResponse(user),
		Token: token,
	})
}

// verifyCode runs the OTP check and renders the failure responses shared
// by login and registration.
func (h *AuthHandler) verifyCode(c *fiber.Ctx, phone, code string) error {
	err := h.otpService.Verify(c.Context(), phone, code)
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, otp.ErrInvalidOTP):
		return response.BadRequest(c, "Invalid OTP")
	case errors.Is(err, otp.ErrSessionExpired):
		return response.BadRequest(c, "OTP session expired, please request a new OTP")
	case errors.Is(err, otp.ErrTooManyAttempts):
		return response.BadRequest(c, "Too many failed attempts, please request a new OTP")
	default:
		return response.InternalServerError(c, "Failed to verify OTP: "+err.Error())
	}
}
