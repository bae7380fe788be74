package auth

import (
	"testing"
	"time"
)

func newTestManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(JWTConfig{
		Secret: "test-secret",
		Expiry: expiry,
		Issuer: "test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	manager := newTestManager(time.Hour)

	token, err := manager.GenerateToken(42, "student")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Role != "student" {
		t.Errorf("Role = %q, want student", claims.Role)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	manager := newTestManager(-time.Minute)

	token, err := manager.GenerateToken(42, "student")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := manager.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("ValidateToken = %v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newTestManager(time.Hour).GenerateToken(42, "student")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewJWTManager(JWTConfig{Secret: "other-secret", Expiry: time.Hour, Issuer: "test"})
	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateToken = %v, want ErrInvalidToken", err)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	manager := newTestManager(time.Hour)
	if _, err := manager.ValidateToken("not-a-token"); err != ErrInvalidToken {
		t.Errorf("ValidateToken = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("VerifyPassword rejected the right password: %v", err)
	}
	if err := VerifyPassword(hash, "wrong password!"); err == nil {
		t.Error("VerifyPassword accepted the wrong password")
	}
}

func TestHashPasswordTooShort(t *testing.T) {
	if _, err := HashPassword("short"); err == nil {
		t.Error("expected short passwords to be rejected")
	}
}
