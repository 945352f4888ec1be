package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/winnerqin/jimeng4-image-generator/internal/middleware"
)

func newVersionedApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.VersionMiddleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestVersionNegotiation(t *testing.T) {
	app := newVersionedApp()

	cases := []struct {
		name      string
		requested string
		status    int
	}{
		{"default", "", 200},
		{"major pin", "1", 200},
		{"minor pin", "1.0", 200},
		{"patch pin", "1.0.0", 200},
		{"future major", "2", 400},
		{"garbage", "latest", 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tc.requested != "" {
				req.Header.Set("X-Api-Version", tc.requested)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("Failed to execute request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("Expected status %d, got %d", tc.status, resp.StatusCode)
			}
			if tc.status == 200 {
				if got := resp.Header.Get("X-Api-Version"); got != "1" {
					t.Errorf("Expected X-Api-Version 1 on the response, got %q", got)
				}
			}
		})
	}
}
