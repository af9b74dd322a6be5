package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(StoreDeadline(250 * time.Millisecond))

	var remaining time.Duration
	var hasDeadline bool
	app.Get("/", func(c *fiber.Ctx) error {
		var deadline time.Time
		deadline, hasDeadline = c.UserContext().Deadline()
		remaining = time.Until(deadline)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.True(t, hasDeadline)
	assert.LessOrEqual(t, remaining, 250*time.Millisecond)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderUpgrade, "websocket")
	_, err = app.Test(req)
	require.NoError(t, err)
	assert.False(t, hasDeadline)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("Warning").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
