package auth

import (
	"time"

	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/services/otp"
	authutil "github.com/shiksha-labs/shiksha-api/utils/auth"
	"github.com/shiksha-labs/shiksha-api/utils/validation"
	"gorm.io/gorm"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db         *gorm.DB
	jwtManager *authutil.JWTManager
	otpService *otp.Service
	validator  *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *authutil.JWTManager, otpService *otp.Service) *AuthHandler {
	return &AuthHandler{
		db:         db,
		jwtManager: jwtManager,
		otpService: otpService,
		validator:  validation.NewValidator(),
	}
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	Board     string    `json:"board,omitempty"`
	Class     int       `json:"class,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Phone:     user.Phone,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Board:     user.Board,
		Class:     user.Class,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
