package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// CorrelationHeader carries the request correlation identifier in both directions.
const CorrelationHeader = "X-Correlation-ID"

type correlationIDKey struct{}

// CorrelationID reuses an incoming X-Correlation-ID (or X-Request-ID) and otherwise
// mints one. The identifier is echoed back and stored on the request context.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := firstNonEmpty(c.Get(CorrelationHeader), c.Get(fiber.HeaderXRequestID))
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals("correlation_id", id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), correlationIDKey{}, id))

		return c.Next()
	}
}

// CorrelationIDFromContext returns the identifier stored by CorrelationID, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// GetCorrelationID returns the correlation identifier bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals("correlation_id").(string); ok && id != "" {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
