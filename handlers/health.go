package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shiksha-labs/shiksha-api/database"
)

// HealthCheck reports liveness of the API and its database connection.
func HealthCheck(store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := store.HealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  "database unreachable",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
