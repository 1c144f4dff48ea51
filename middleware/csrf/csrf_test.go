package csrf_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-syr-auth/middleware/csrf"
)

func newApp(cfg ...csrf.Config) *fiber.App {
	app := fiber.New()
	app.Use(csrf.New(cfg...))
	app.Get("/profile", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/profile", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestCSRF(t *testing.T) {
	app := newApp(csrf.Config{AllowedOrigins: []string{"https://syr.example/"}})

	tests := []struct {
		name    string
		method  string
		cookie  bool
		headers map[string]string
		status  int
	}{
		{"safe method", fiber.MethodGet, true, map[string]string{"Origin": "https://evil.example"}, fiber.StatusOK},
		{"no session cookie", fiber.MethodPost, false, map[string]string{"Origin": "https://evil.example"}, fiber.StatusOK},
		{"same origin", fiber.MethodPost, true, map[string]string{"Origin": "http://example.com"}, fiber.StatusOK},
		{"allowed origin", fiber.MethodPost, true, map[string]string{"Origin": "https://SYR.example"}, fiber.StatusOK},
		{"referer fallback", fiber.MethodPost, true, map[string]string{"Referer": "https://syr.example/settings"}, fiber.StatusOK},
		{"foreign origin", fiber.MethodPost, true, map[string]string{"Origin": "https://evil.example"}, fiber.StatusForbidden},
		{"foreign referer", fiber.MethodPost, true, map[string]string{"Referer": "https://evil.example/x"}, fiber.StatusForbidden},
		{"missing origin", fiber.MethodPost, true, nil, fiber.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "http://example.com/profile", nil)
			if tc.cookie {
				req.Header.Set("Cookie", "session=abc")
			}
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestCSRFSkip(t *testing.T) {
	app := newApp(csrf.Config{Skip: func(*fiber.Ctx) bool { return true }})

	req := httptest.NewRequest(fiber.MethodPost, "http://example.com/profile", nil)
	req.Header.Set("Cookie", "session=abc")
	req.Header.Set("Origin", "https://evil.example")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
