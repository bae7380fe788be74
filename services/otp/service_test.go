package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider records calls and serves a fixed session/code pair.
type fakeProvider struct {
	sendCalls   int
	verifyCalls int
	sessionRef  string
	code        string
	sendErr     error
}

func (f *fakeProvider) SendOTP(_ context.Context, phone string) (string, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sessionRef, nil
}

func (f *fakeProvider) VerifyOTP(_ context.Context, sessionRef, code string) error {
	f.verifyCalls++
	if sessionRef != f.sessionRef || code != f.code {
		return ErrInvalidOTP
	}
	return nil
}

func newTestService(provider *fakeProvider) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, provider, NewTestNumbers(""), Config{
		Expiry:      5 * time.Minute,
		Cooldown:    60 * time.Second,
		MaxAttempts: 3,
	})
	return svc, store
}

func TestSendAndVerify(t *testing.T) {
	provider := &fakeProvider{sessionRef: "sess-1", code: "482910"}
	svc, _ := newTestService(provider)
	ctx := context.Background()

	if err := svc.Send(ctx, "+919876543210"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if provider.sendCalls != 1 {
		t.Fatalf("provider sendCalls = %d, want 1", provider.sendCalls)
	}

	if err := svc.Verify(ctx, "+919876543210", "482910"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// Session is consumed on success.
	err := svc.Verify(ctx, "+919876543210", "482910")
	if err != ErrSessionExpired {
		t.Errorf("second Verify = %v, want ErrSessionExpired", err)
	}
}

func TestSendCooldown(t *testing.T) {
	provider := &fakeProvider{sessionRef: "sess-1", code: "482910"}
	svc, _ := newTestService(provider)
	ctx := context.Background()

	if err := svc.Send(ctx, "+919876543210"); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	err := svc.Send(ctx, "+919876543210")
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("second Send = %v, want CooldownError", err)
	}
	if cooldown.Remaining <= 0 || cooldown.Remaining > 60*time.Second {
		t.Errorf("cooldown remaining = %v, want (0, 60s]", cooldown.Remaining)
	}
	if provider.sendCalls != 1 {
		t.Errorf("provider sendCalls = %d, want 1 (cooldown must block the provider)", provider.sendCalls)
	}
}

func TestTestNumberBypassesProviderAndCooldown(t *testing.T) {
	provider := &fakeProvider{sessionRef: "sess-1", code: "482910"}
	svc, _ := newTestService(provider)
	ctx := context.Background()

	// Back-to-back sends: no cooldown for allow-listed numbers.
	for i := 0; i < 3; i++ {
		if err := svc.Send(ctx, "9999999999"); err != nil {
			t.Fatalf("Send %d failed: %v", i, err)
		}
	}
	if provider.sendCalls != 0 {
		t.Errorf("provider sendCalls = %d, want 0 for test number", provider.sendCalls)
	}

	if err := svc.Verify(ctx, "9999999999", DefaultTestCode); err != nil {
		t.Fatalf("Verify with static code failed: %v", err)
	}
	if provider.verifyCalls != 0 {
		t.Errorf("provider verifyCalls = %d, want 0 for test number", provider.verifyCalls)
	}
}

func TestVerifyAttemptBudget(t *testing.T) {
	provider := &fakeProvider{sessionRef: "sess-1", code: "482910"}
	svc, _ := newTestService(provider)
	ctx := context.Background()

	if err := svc.Send(ctx, "+919876543210"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Two wrong attempts keep the session alive.
	for i := 0; i < 2; i++ {
		if err := svc.Verify(ctx, "+919876543210", "000000"); err != ErrInvalidOTP {
			t.Fatalf("attempt %d: Verify = %v, want ErrInvalidOTP", i+1, err)
		}
	}

	// Third failure exhausts the budget.
	if err := svc.Verify(ctx, "+919876543210", "000000"); err != ErrTooManyAttempts {
		t.Fatalf("third Verify = %v, want ErrTooManyAttempts", err)
	}

	// Session is gone; even the right code is rejected now.
	if err := svc.Verify(ctx, "+919876543210", "482910"); err != ErrSessionExpired {
		t.Errorf("Verify after invalidation = %v, want ErrSessionExpired", err)
	}
}

func TestVerifyExpiredSession(t *testing.T) {
	provider := &fakeProvider{sessionRef: "sess-1", code: "482910"}
	store := NewMemoryStore()
	svc := NewService(store, provider, NewTestNumbers(""), Config{
		Expiry:      5 * time.Minute,
		Cooldown:    60 * time.Second,
		MaxAttempts: 3,
	})
	ctx := context.Background()

	if err := svc.Send(ctx, "+919876543210"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Jump the store clock past the session TTL.
	store.now = func() time.Time { return time.Now().Add(6 * time.Minute) }

	if err := svc.Verify(ctx, "+919876543210", "482910"); err != ErrSessionExpired {
		t.Errorf("Verify after expiry = %v, want ErrSessionExpired", err)
	}
}

func TestSendProviderError(t *testing.T) {
	provider := &fakeProvider{sendErr: errors.New("provider down")}
	svc, store := newTestService(provider)
	ctx := context.Background()

	if err := svc.Send(ctx, "+919876543210"); err == nil {
		t.Fatal("expected Send to surface the provider error")
	}

	// No cooldown is set on a failed send, so a retry goes straight through.
	remaining, err := store.CooldownRemaining(ctx, "+919876543210")
	if err != nil {
		t.Fatalf("CooldownRemaining failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("cooldown remaining = %v after failed send, want 0", remaining)
	}
}
