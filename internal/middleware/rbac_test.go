package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(role interface{}, allowed ...string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != nil {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole(allowed...))
	app.Get("/seed", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	for _, role := range []string{"admin", " Instructor "} {
		resp, err := roleApp(role, "admin", "instructor").Test(httptest.NewRequest(http.MethodGet, "/seed", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, role)
	}
}

func TestRequireRoleRejectsOtherRoles(t *testing.T) {
	resp, err := roleApp("viewer", "admin").Test(httptest.NewRequest(http.MethodGet, "/seed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var body struct {
		Success bool              `json:"success"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, "admin", body.Details["required_role"])
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	resp, err := roleApp(nil, "admin").Test(httptest.NewRequest(http.MethodGet, "/seed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
