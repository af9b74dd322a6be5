package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"folio/internal/middleware"
	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityMiddleware(t *testing.T) {
	app := fiber.New()

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	t.Run("Security Headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
		assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	})

	t.Run("Structured Logging", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestServerApp_SecurityHeadersOnAPIRoutes(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp := env.do(t, http.MethodGet, "/api/essays", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
}

func TestServerApp_UnknownRouteIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil, "")

	resp := env.do(t, http.MethodGet, "/api/nope/1/2/3", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// Optional routes fall back to anonymous access when the token is forged.
func TestServerApp_ForgedTokenOnOptionalRoute(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.createEssay(t, env.token(t, 1, ""))

	resp := env.do(t, http.MethodGet, "/api/essays", "eyJhbGciOiJub25lIn0.e30.", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Essay](t, resp), 1)
}
