package otp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shiksha-labs/shiksha-api/utils/cache"
)

// ErrNoSession is returned when no live session exists for a phone.
var ErrNoSession = errors.New("no otp session for phone")

// Session is the per-phone verification lease. It lives in the store under
// a TTL and is deleted on successful verification or when the attempt
// budget is exhausted.
type Session struct {
	Ref      string `json:"ref"` // upstream session reference; empty for test numbers
	Code     string `json:"code,omitempty"` // expected code; test numbers only
	Attempts int    `json:"attempts"`
}

// Store is the shared TTL state behind the OTP flow: one session lease and
// one resend-cooldown marker per phone. Implementations must expire
// entries on their own.
type Store interface {
	PutSession(ctx context.Context, phone string, sess Session, ttl time.Duration) error
	GetSession(ctx context.Context, phone string) (*Session, error)
	UpdateSession(ctx context.Context, phone string, sess Session) error
	DeleteSession(ctx context.Context, phone string) error
	SetCooldown(ctx context.Context, phone string, ttl time.Duration) error
	CooldownRemaining(ctx context.Context, phone string) (time.Duration, error)
}

const (
	sessionKeyPrefix  = "otp:session:"
	cooldownKeyPrefix = "otp:cooldown:"
)

// RedisStore keeps OTP state in Redis so it survives restarts and is
// shared across instances.
type RedisStore struct {
	cache *cache.RedisCache
}

// NewRedisStore creates a Redis-backed OTP store.
func NewRedisStore(c *cache.RedisCache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) PutSession(ctx context.Context, phone string, sess Session, ttl time.Duration) error {
	return s.cache.SetJSON(ctx, sessionKeyPrefix+phone, sess, ttl)
}

func (s *RedisStore) GetSession(ctx context.Context, phone string) (*Session, error) {
	var sess Session
	err := s.cache.GetJSON(ctx, sessionKeyPrefix+phone, &sess)
	if err == cache.ErrNotFound {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) UpdateSession(ctx context.Context, phone string, sess Session) error {
	key := sessionKeyPrefix + phone
	ttl, err := s.cache.TTL(ctx, key)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return ErrNoSession
	}
	return s.cache.SetJSON(ctx, key, sess, ttl)
}

func (s *RedisStore) DeleteSession(ctx context.Context, phone string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+phone)
}

func (s *RedisStore) SetCooldown(ctx context.Context, phone string, ttl time.Duration) error {
	return s.cache.Set(ctx, cooldownKeyPrefix+phone, time.Now().Unix(), ttl)
}

func (s *RedisStore) CooldownRemaining(ctx context.Context, phone string) (time.Duration, error) {
	ttl, err := s.cache.TTL(ctx, cooldownKeyPrefix+phone)
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

// MemoryStore is the in-process fallback used when Redis is unreachable,
// and by tests. Expiry is judged at read time.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memEntry
	cooldowns map[string]time.Time
	now       func() time.Time
}

type memEntry struct {
	sess      Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-process OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]memEntry),
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (s *MemoryStore) PutSession(_ context.Context, phone string, sess Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[phone] = memEntry{sess: sess, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, phone string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[phone]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, phone)
		return nil, ErrNoSession
	}
	sess := entry.sess
	return &sess, nil
}

func (s *MemoryStore) UpdateSession(_ context.Context, phone string, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[phone]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, phone)
		return ErrNoSession
	}
	entry.sess = sess
	s.sessions[phone] = entry
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phone)
	return nil
}

func (s *MemoryStore) SetCooldown(_ context.Context, phone string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldowns[phone] = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) CooldownRemaining(_ context.Context, phone string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.cooldowns[phone]
	if !ok {
		return 0, nil
	}
	remaining := until.Sub(s.now())
	if remaining <= 0 {
		delete(s.cooldowns, phone)
		return 0, nil
	}
	return remaining, nil
}
