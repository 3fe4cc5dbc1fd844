package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/labgen-api/internal/utils"
)

// Claims are the identity fields read from a validated access token.
type Claims struct {
	Subject         string
	Email           string
	FirstName       string
	LastName        string
	ProfileImageURL string
	Role            string
}

const claimsLocalKey = "user_claims"

// JWTProtected returns a middleware that validates JWT bearer tokens.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		mapClaims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		claims := Claims{
			Subject:         extractSubject(mapClaims),
			Email:           stringClaim(mapClaims, "email"),
			FirstName:       stringClaim(mapClaims, "first_name", "given_name"),
			LastName:        stringClaim(mapClaims, "last_name", "family_name"),
			ProfileImageURL: stringClaim(mapClaims, "profile_image_url", "picture"),
			Role:            extractUserRoleFromClaims(mapClaims),
		}
		if claims.Subject == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token subject missing")
		}

		c.Locals("user_id", claims.Subject)
		if claims.Role != "" {
			c.Locals("user_role", claims.Role)
		}
		c.Locals(claimsLocalKey, claims)

		return c.Next()
	}
}

// ClaimsFromContext returns the claims stored by JWTProtected.
func ClaimsFromContext(c *fiber.Ctx) (Claims, bool) {
	claims, ok := c.Locals(claimsLocalKey).(Claims)
	return claims, ok
}

func extractSubject(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

func stringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if value, ok := claims[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRole(value); role != "" {
				return role
			}
		}
	}
	return ""
}

func normalizeRole(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				role := strings.ToLower(strings.TrimSpace(str))
				if role != "" {
					return role
				}
			}
		}
	}
	return ""
}
