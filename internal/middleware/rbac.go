package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/labgen-api/internal/utils"
)

// RequireRole admits requests whose user_role local matches one of roles.
// Must run after JWTProtected.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized == "" {
			continue
		}
		if _, seen := allowed[normalized]; !seen {
			names = append(names, normalized)
		}
		allowed[normalized] = struct{}{}
	}
	required := strings.Join(names, ",")

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			if claims, ok := ClaimsFromContext(c); ok {
				role = claims.Role
			}
		}

		if _, ok := allowed[role]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", map[string]string{"required_role": required})
		}
		return c.Next()
	}
}
