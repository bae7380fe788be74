package otp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

var (
	ErrInvalidOTP      = errors.New("invalid OTP")
	ErrSessionExpired  = errors.New("OTP session expired, request a new OTP")
	ErrTooManyAttempts = errors.New("too many failed attempts, request a new OTP")
)

// CooldownError is returned when a resend is requested inside the cooldown
// window.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another OTP", int(e.Remaining.Seconds()))
}

// Config holds OTP service tunables.
type Config struct {
	Expiry      time.Duration // session TTL, default 5 minutes
	Cooldown    time.Duration // resend cooldown, default 60 seconds
	MaxAttempts int           // failed attempts before early invalidation
}

// Service implements the OTP flow: allow-listed test numbers are served
// from a static table and never reach the provider; real numbers get a
// provider session cached under a TTL with an attempt budget.
type Service struct {
	store       Store
	provider    Provider
	testNumbers *TestNumbers
	config      Config
}

// NewService creates the OTP service.
func NewService(store Store, provider Provider, testNumbers *TestNumbers, config Config) *Service {
	if config.Expiry <= 0 {
		config.Expiry = 5 * time.Minute
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 60 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	return &Service{
		store:       store,
		provider:    provider,
		testNumbers: testNumbers,
		config:      config,
	}
}

// Send delivers an OTP to the phone and opens a verification session.
// Test numbers skip both the provider and the cooldown check.
func (s *Service) Send(ctx context.Context, phone string) error {
	if code, ok := s.testNumbers.Match(phone); ok {
		sess := Session{Code: code}
		return s.store.PutSession(ctx, phone, sess, s.config.Expiry)
	}

	remaining, err := s.store.CooldownRemaining(ctx, phone)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}

	sessionRef, err := s.provider.SendOTP(ctx, phone)
	if err != nil {
		return err
	}

	if err := s.store.PutSession(ctx, phone, Session{Ref: sessionRef}, s.config.Expiry); err != nil {
		return err
	}
	return s.store.SetCooldown(ctx, phone, s.config.Cooldown)
}

// Verify checks the code for the phone's live session. Success deletes the
// session; failure increments the attempt count and invalidates the
// session once the budget is spent.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	sess, err := s.store.GetSession(ctx, phone)
	if err != nil {
		if err == ErrNoSession {
			return ErrSessionExpired
		}
		return err
	}

	var verifyErr error
	if sess.Code != "" {
		// Test-number session: the expected code is static.
		if code != sess.Code {
			verifyErr = ErrInvalidOTP
		}
	} else {
		verifyErr = s.provider.VerifyOTP(ctx, sess.Ref, code)
	}

	if verifyErr == nil {
		return s.store.DeleteSession(ctx, phone)
	}

	sess.Attempts++
	if sess.Attempts >= s.config.MaxAttempts {
		if err := s.store.DeleteSession(ctx, phone); err != nil {
			log.Println("otp: failed to invalidate session:", err)
		}
		return ErrTooManyAttempts
	}
	if err := s.store.UpdateSession(ctx, phone, *sess); err != nil && err != ErrNoSession {
		log.Println("otp: failed to record attempt:", err)
	}
	return verifyErr
}
