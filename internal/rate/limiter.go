package rate

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRateLimited = errors.New("rate limited")

// Config holds limiter tuning parameters.
type Config struct {
	MaxLoginAttempts int
	LoginCooldown    time.Duration
	MaxResetRequests int
	ResetCooldown    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxLoginAttempts: 10,
		LoginCooldown:    15 * time.Minute,
		MaxResetRequests: 5,
		ResetCooldown:    time.Hour,
	}
}

// Limiter enforces per-email and per-IP budgets for login and
// forgot-password using Redis counters. A nil Limiter, or an unreachable
// Redis, never blocks a request: availability of login beats throttling.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

func (l *Limiter) AllowLogin(ctx context.Context, email, ip string) bool {
	if l == nil || l.redis == nil {
		return true
	}
	if !l.withinBudget(ctx, loginEmailKey(email), l.config.MaxLoginAttempts) {
		return false
	}
	if ip != "" && !l.withinBudget(ctx, loginIPKey(ip), l.config.MaxLoginAttempts) {
		return false
	}
	return true
}

// RecordLoginFailure counts one failed attempt against both keys.
func (l *Limiter) RecordLoginFailure(ctx context.Context, email, ip string) {
	if l == nil || l.redis == nil {
		return
	}
	l.increment(ctx, loginEmailKey(email), l.config.LoginCooldown)
	if ip != "" {
		l.increment(ctx, loginIPKey(ip), l.config.LoginCooldown)
	}
}

// ClearLogin drops the counters after a successful login.
func (l *Limiter) ClearLogin(ctx context.Context, email, ip string) {
	if l == nil || l.redis == nil {
		return
	}
	keys := []string{loginEmailKey(email)}
	if ip != "" {
		keys = append(keys, loginIPKey(ip))
	}
	l.redis.Del(ctx, keys...)
}

func (l *Limiter) AllowReset(ctx context.Context, email string) bool {
	if l == nil || l.redis == nil {
		return true
	}
	if !l.withinBudget(ctx, resetKey(email), l.config.MaxResetRequests) {
		return false
	}
	l.increment(ctx, resetKey(email), l.config.ResetCooldown)
	return true
}

func (l *Limiter) withinBudget(ctx context.Context, key string, max int) bool {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		// missing key or redis down: allow
		return true
	}
	return count < int64(max)
}

func (l *Limiter) increment(ctx context.Context, key string, ttl time.Duration) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	if count == 1 {
		l.redis.Expire(ctx, key, ttl)
	}
}

func loginEmailKey(email string) string { return "rl:login:email:" + email }
func loginIPKey(ip string) string       { return "rl:login:ip:" + ip }
func resetKey(email string) string      { return "rl:reset:" + email }
