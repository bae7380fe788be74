package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/model"
	"github.com/shiksha-labs/shiksha-api/utils/auth"
	"github.com/shiksha-labs/shiksha-api/utils/response"
	"gorm.io/gorm"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

// ExtractToken pulls the credential from the request. Priority order:
// Authorization bearer header, cookie "token", "x-auth-token" header,
// "token" header, then the "token" query parameter.
func ExtractToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if cookie := c.Cookies("token"); cookie != "" {
		return cookie
	}

	if header := c.Get("x-auth-token"); header != "" {
		return header
	}

	if header := c.Get("token"); header != "" {
		return header
	}

	return c.Query("token")
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		// Resolve the role-scoped user
		var user model.User
		if err := m.db.First(&user, claims.UserID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return response.Unauthorized(c, "User not found")
			}
			return response.InternalServerError(c, "Failed to load user")
		}

		if user.Role != claims.Role {
			return response.Unauthorized(c, "Invalid token")
		}

		c.Locals("user_id", user.ID)
		c.Locals("user_role", user.Role)
		c.Locals("user", &user)

		return c.Next()
	}
}

// RequireRole is middleware that requires specific user roles
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole := c.Locals("user_role")
		if userRole == nil {
			return response.Forbidden(c, "Access denied")
		}

		role := userRole.(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	userID := c.Locals("user_id")
	if userID == nil {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user := c.Locals("user")
	if user == nil {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}
