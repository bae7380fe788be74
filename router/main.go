package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/config"
	"github.com/shiksha-labs/shiksha-api/database"
	"github.com/shiksha-labs/shiksha-api/handlers"
	admin_handlers "github.com/shiksha-labs/shiksha-api/handlers/admin"
	auth_handlers "github.com/shiksha-labs/shiksha-api/handlers/auth"
	content_handlers "github.com/shiksha-labs/shiksha-api/handlers/content"
	payment_handlers "github.com/shiksha-labs/shiksha-api/handlers/payment"
	plan_handlers "github.com/shiksha-labs/shiksha-api/handlers/plan"
	referral_handlers "github.com/shiksha-labs/shiksha-api/handlers/referral"
	"github.com/shiksha-labs/shiksha-api/model"
	contentsvc "github.com/shiksha-labs/shiksha-api/services/content"
	"github.com/shiksha-labs/shiksha-api/services/otp"
	paymentsvc "github.com/shiksha-labs/shiksha-api/services/payment"
	"github.com/shiksha-labs/shiksha-api/services/subscription"
	"github.com/shiksha-labs/shiksha-api/utils/auth"
	"github.com/shiksha-labs/shiksha-api/utils/cache"
	"github.com/shiksha-labs/shiksha-api/utils/middleware"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, store database.Storage) {
	getEnv, err := config.Get()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "shiksha-api"
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: getEnv.JWT_SECRET,
		Expiry: time.Duration(getEnv.JWT_EXPIRY_DAYS) * 24 * time.Hour,
		Issuer: jwtIssuer,
	})

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// OTP state lives in Redis so it survives restarts and scales across
	// instances. Fall back to the in-process store if Redis is down
	// rather than blocking logins.
	var otpStore otp.Store
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. OTP state will be process-local.", err)
		otpStore = otp.NewMemoryStore()
	} else {
		otpStore = otp.NewRedisStore(redisCache)
	}

	otpProvider := otp.NewAPIProvider(getEnv.OTP_API_BASE_URL, getEnv.OTP_API_KEY)
	otpService := otp.NewService(otpStore, otpProvider, otp.NewTestNumbers(getEnv.OTP_TEST_NUMBERS), otp.Config{
		Expiry:      getEnv.OTP_EXPIRY,
		Cooldown:    getEnv.OTP_RESEND_COOLDOWN,
		MaxAttempts: getEnv.OTP_MAX_ATTEMPTS,
	})

	subscriptionService := subscription.NewService(db)

	gateway := paymentsvc.NewClient(paymentsvc.ClientConfig{
		BaseURL:   getEnv.PAYMENT_BASE_URL,
		KeyID:     getEnv.PAYMENT_KEY_ID,
		KeySecret: getEnv.PAYMENT_KEY_SECRET,
		Mode:      getEnv.PAYMENT_MODE,
	})
	paymentService := paymentsvc.NewService(db, gateway, subscriptionService, paymentsvc.Config{
		Secret:          getEnv.PAYMENT_KEY_SECRET,
		StrictSignature: getEnv.PAYMENT_STRICT_SIGNATURE,
	})

	contentService := contentsvc.NewService(db)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, otpService)
	planHandler := plan_handlers.NewPlanHandler(db)
	paymentHandler := payment_handlers.NewPaymentHandler(db, paymentService, subscriptionService)
	contentHandler := content_handlers.NewContentHandler(contentService)
	referralHandler := referral_handlers.NewReferralHandler(db)
	userHandler := admin_handlers.NewUserHandler(db)
	settingsHandler := admin_handlers.NewSettingsHandler(db)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,
		RateLimitWindow:   1 * time.Minute,
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HealthCheck(store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/otp/request", authHandler.RequestOTP)
	authGroup.Post("/otp/verify", authHandler.VerifyOTP)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/admin/login", authHandler.AdminLogin)

	// Profile routes
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)
	authGroup.Put("/me", authMiddleware.Required(), authHandler.UpdateMe)

	// Plan catalog (public)
	api.Get("/plans", planHandler.List)
	api.Get("/plans/:id", planHandler.Get)

	// Content pages (public)
	api.Get("/content/:type", contentHandler.GetPage)

	// Public settings
	api.Get("/settings", settingsHandler.Public)

	// Payments (students)
	paymentGroup := api.Group("/payments", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleStudent))
	paymentGroup.Post("/order", paymentHandler.CreateOrder)
	paymentGroup.Post("/verify", paymentHandler.VerifyPayment)
	paymentGroup.Get("/", paymentHandler.MyPayments)
	paymentGroup.Get("/subscriptions", paymentHandler.MySubscriptions)

	// Agent routes
	agentGroup := api.Group("/agent", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAgent))
	agentGroup.Get("/referrals", referralHandler.MyReferrals)

	// Admin routes
	adminGroup := api.Group("/admin", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAdmin))
	adminGroup.Get("/users", userHandler.List)
	adminGroup.Get("/users/:id", userHandler.Get)
	adminGroup.Post("/plans", planHandler.Create)
	adminGroup.Put("/plans/:id", planHandler.Update)
	adminGroup.Delete("/plans/:id", planHandler.Delete)
	adminGroup.Post("/content/:type", contentHandler.CreateVersion)
	adminGroup.Get("/content/:type/history", contentHandler.History)
	adminGroup.Get("/referrals", referralHandler.List)
	adminGroup.Patch("/referrals/:id/status", referralHandler.UpdateStatus)
	adminGroup.Get("/settings", settingsHandler.List)
	adminGroup.Put("/settings", settingsHandler.Upsert)
}
