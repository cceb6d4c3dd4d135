package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	counts map[string]int64
	locks  map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counts: map[string]int64{}, locks: map[string]time.Duration{}}
}

func (m *memoryStore) Hit(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.counts[key]++
	return m.counts[key], nil
}

func (m *memoryStore) Lock(_ context.Context, key string, d time.Duration) error {
	m.locks[key] = d
	return nil
}

func (m *memoryStore) LockTTL(_ context.Context, key string) (time.Duration, bool, error) {
	d, ok := m.locks[key]
	return d, ok, nil
}

func (m *memoryStore) Clear(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.counts, k)
		delete(m.locks, k)
	}
	return nil
}

func TestLockDuration(t *testing.T) {
	assert.Zero(t, lockDuration(4))
	assert.Equal(t, 2*time.Minute, lockDuration(5))
	assert.Equal(t, time.Hour, lockDuration(10))
	assert.Equal(t, 24*time.Hour, lockDuration(30))
}

func TestBruteForceLocksAfterFiveFailures(t *testing.T) {
	store := newMemoryStore()
	bf := NewBruteForceProtection(store)

	app := fiber.New()
	app.Post("/login", bf.CheckLock(), func(c *fiber.Ctx) error {
		bf.RecordFailure(c.UserContext(), c.IP())
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	for i := 0; i < 5; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "120", resp.Header.Get("Retry-After"))

	assert.EqualValues(t, 5, store.counts["login:attempts:0.0.0.0"])

	bf.RecordSuccess(context.Background(), "0.0.0.0")
	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestNilBruteForceIsDisabled(t *testing.T) {
	var bf *BruteForceProtection
	app := fiber.New()
	app.Get("/", bf.CheckLock(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	bf.RecordFailure(context.Background(), "1.2.3.4")
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
