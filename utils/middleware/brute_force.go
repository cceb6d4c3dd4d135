package middleware

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/utils/response"
)

// attemptWindow is how long failed logins are remembered.
const attemptWindow = 15 * time.Minute

// AttemptStore counts failed logins and holds lockouts. utils/cache.RedisCache
// implements it.
type AttemptStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Lock(ctx context.Context, key string, d time.Duration) error
	LockTTL(ctx context.Context, key string) (time.Duration, bool, error)
	Clear(ctx context.Context, keys ...string) error
}

// BruteForceProtection locks out an IP after repeated failed logins.
// A nil store disables it.
type BruteForceProtection struct {
	store AttemptStore
}

func NewBruteForceProtection(store AttemptStore) *BruteForceProtection {
	return &BruteForceProtection{store: store}
}

func attemptKeys(ip string) (attemptKey, lockKey string) {
	ip = strings.TrimSpace(ip)
	return "login:attempts:" + ip, "login:lock:" + ip
}

func (b *BruteForceProtection) enabled() bool {
	return b != nil && b.store != nil
}

// CheckLock rejects requests from a locked-out IP with 429.
func (b *BruteForceProtection) CheckLock() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !b.enabled() {
			return c.Next()
		}
		_, lockKey := attemptKeys(c.IP())

		ttl, locked, err := b.store.LockTTL(c.UserContext(), lockKey)
		if err != nil || !locked {
			// fail open when Redis is unavailable
			return c.Next()
		}

		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = 60
		}
		c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// lockDuration applies progressive lockouts.
func lockDuration(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	}
	return 0
}

// RecordFailure counts a failed login from ip and locks it out once the
// threshold is reached.
func (b *BruteForceProtection) RecordFailure(ctx context.Context, ip string) {
	if !b.enabled() {
		return
	}
	attemptKey, lockKey := attemptKeys(ip)

	attempts, err := b.store.Hit(ctx, attemptKey, attemptWindow)
	if err != nil {
		return
	}
	if d := lockDuration(attempts); d > 0 {
		_ = b.store.Lock(ctx, lockKey, d)
	}
}

// RecordSuccess clears the failure count for ip.
func (b *BruteForceProtection) RecordSuccess(ctx context.Context, ip string) {
	if !b.enabled() {
		return
	}
	attemptKey, lockKey := attemptKeys(ip)
	_ = b.store.Clear(ctx, attemptKey, lockKey)
}
