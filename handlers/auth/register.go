package auth

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/services/identity"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Phone        string `json:"phone" validate:"required"`
	OTP          string `json:"otp" validate:"required"`
	Name         string `json:"name" validate:"required,min=2"`
	Role         string `json:"role,omitempty"` // student, teacher or agent; defaults to student
	Board        string `json:"board,omitempty"`
	Class        int    `json:"class,omitempty" validate:"omitempty,gte=1,lte=12"`
	ReferralCode string `json:"referral_code,omitempty"` // referring agent's phone
}

// Register verifies the OTP and creates the user. Phones are normalized
// before storage so lookups never need prefix guessing for new rows.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.FormatValidationErrors(err))
	}

	if !validation.ValidPhone(req.Phone) {
		return response.BadRequest(c, "Invalid phone number")
	}

	if req.Role == "" {
		req.Role = model.RoleStudent
	}
	switch req.Role {
	case model.RoleStudent, model.RoleTeacher, model.RoleAgent:
	default:
		return response.BadRequest(c, "Role must be student, teacher or agent")
	}

	if req.Role == model.RoleStudent && req.Board == "" {
		return response.BadRequest(c, "Board is required for students")
	}

	if err := h.verifyCode(c, req.Phone, req.OTP); err != nil {
		return err
	}

	if _, err := identity.FindUserByPhone(h.db, req.Phone); err == nil {
		return response.BadRequest(c, "User already registered, please log in")
	} else if err != gorm.ErrRecordNotFound {
		return response.InternalServerError(c, "Failed to look up user")
	}

	user := model.User{
		Phone: validation.NormalizePhone(req.Phone),
		Name:  req.Name,
		Role:  req.Role,
		Board: req.Board,
		Class: req.Class,
	}

	// A bad referral code does not block registration.
	if req.ReferralCode != "" && req.Role == model.RoleStudent {
		agent, err := identity.FindUserByPhoneAndRole(h.db, req.ReferralCode, model.RoleAgent)
		if err == nil {
			user.ReferralAgentID = &agent.ID
		} else {
			log.Printf("register: referral code %q did not resolve to an agent", req.ReferralCode)
		}
	}

	if err := h.db.Create(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to create user")
	}

	token, err := h.jwtManager.GenerateToken(user.ID, user.Role)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate token")
	}

	return response.Created(c, LoginResponse{
		User:  toUserResponse(&user),
		Token: token,
	})
}
