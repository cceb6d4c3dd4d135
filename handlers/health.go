package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/kpi-tracker-api/database"
)

// Pinger is an optional dependency reported by the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleCheckHealth answers /ping. The database must be reachable; Redis is
// reported but does not fail the check since logins work without it.
func HandleCheckHealth(store database.Storage, redis Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := fiber.Map{"status": "ok", "database": "up", "redis": "disabled"}

		if redis != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := redis.Ping(ctx); err != nil {
				status["redis"] = "down"
			} else {
				status["redis"] = "up"
			}
		}

		if err := store.HealthCheck(); err != nil {
			status["status"] = "unavailable"
			status["database"] = "down"
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	}
}
