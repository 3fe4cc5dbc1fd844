package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/generation"
	"github.com/noah-isme/labgen-api/internal/middleware"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func userIDStringFromContext(c *fiber.Ctx) string {
	if id, ok := c.Locals("user_id").(string); ok {
		return strings.TrimSpace(id)
	}
	return ""
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals("user_role").(string); ok {
		return role
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.Actor {
	return service.Actor{
		ID:   userIDStringFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendServiceError maps service errors onto HTTP statuses. Unknown errors are logged and hidden.
func sendServiceError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	if details := utils.ValidationDetails(err); details != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", details)
	}

	switch {
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrTemplateNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrBatchNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, generation.ErrNoEligibleTemplates),
		errors.Is(err, service.ErrUnknownStudents),
		errors.Is(err, service.ErrInvalidTemplate),
		errors.Is(err, service.ErrTemplateImportType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrStudentExists),
		errors.Is(err, service.ErrInvalidStatusTransition):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTemplateImportTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrMissingSubject):
		return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
	}

	requestLogger(base, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
