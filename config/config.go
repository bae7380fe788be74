package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

// DefaultJWTSecret is the fixed fallback used when JWT_SECRET is unset.
// Never rely on it outside local development.
const DefaultJWTSecret = "shiksha-dev-secret-do-not-use-in-prod"

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET      string
	JWT_ISSUER      string
	JWT_EXPIRY_DAYS int
	// Redis Configuration
	REDIS_URL string
	// OTP Provider Configuration
	OTP_API_BASE_URL    string
	OTP_API_KEY         string
	OTP_EXPIRY          time.Duration
	OTP_RESEND_COOLDOWN time.Duration
	OTP_MAX_ATTEMPTS    int
	OTP_TEST_NUMBERS    string // comma-separated extras for the allow-list
	// Payment Gateway Configuration
	PAYMENT_BASE_URL         string
	PAYMENT_KEY_ID           string
	PAYMENT_KEY_SECRET       string
	PAYMENT_MODE             string // test or live
	PAYMENT_STRICT_SIGNATURE bool
	// Callback URLs
	FRONTEND_URL string
	BACKEND_URL  string
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = DefaultJWTSecret
	}

	jwtExpiryDays, err := strconv.Atoi(os.Getenv("JWT_EXPIRY_DAYS"))
	if err != nil || jwtExpiryDays <= 0 {
		jwtExpiryDays = 30
	}

	otpMaxAttempts, err := strconv.Atoi(os.Getenv("OTP_MAX_ATTEMPTS"))
	if err != nil || otpMaxAttempts <= 0 {
		otpMaxAttempts = 3
	}

	paymentMode := os.Getenv("PAYMENT_MODE")
	if paymentMode == "" {
		paymentMode = "test"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET:      jwtSecret,
		JWT_ISSUER:      os.Getenv("JWT_ISSUER"),
		JWT_EXPIRY_DAYS: jwtExpiryDays,
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// OTP provider
		OTP_API_BASE_URL:    os.Getenv("OTP_API_BASE_URL"),
		OTP_API_KEY:         os.Getenv("OTP_API_KEY"),
		OTP_EXPIRY:          durationFromEnv("OTP_EXPIRY_SECONDS", 5*time.Minute),
		OTP_RESEND_COOLDOWN: durationFromEnv("OTP_RESEND_COOLDOWN_SECONDS", 60*time.Second),
		OTP_MAX_ATTEMPTS:    otpMaxAttempts,
		OTP_TEST_NUMBERS:    os.Getenv("OTP_TEST_NUMBERS"),
		// Payment gateway
		PAYMENT_BASE_URL:         os.Getenv("PAYMENT_BASE_URL"),
		PAYMENT_KEY_ID:           os.Getenv("PAYMENT_KEY_ID"),
		PAYMENT_KEY_SECRET:       os.Getenv("PAYMENT_KEY_SECRET"),
		PAYMENT_MODE:             paymentMode,
		PAYMENT_STRICT_SIGNATURE: os.Getenv("PAYMENT_STRICT_SIGNATURE") == "true",
		// Callback URLs
		FRONTEND_URL: os.Getenv("FRONTEND_URL"),
		BACKEND_URL:  os.Getenv("BACKEND_URL"),
	}

	return envVariables, nil
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(os.Getenv(key))
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
