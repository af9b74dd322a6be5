package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StoreDeadline bounds every downstream store call made with the request
// context. WebSocket upgrades are long-lived and skipped.
func StoreDeadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 || c.Get(fiber.HeaderUpgrade) != "" {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}
