package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/middleware"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// AuthHandler exposes the signed-in instructor.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches auth endpoints to the router group.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Get("/user", h.currentUser)
}

func (h *AuthHandler) currentUser(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		claims = middleware.Claims{Subject: userIDStringFromContext(c), Role: userRoleFromContext(c)}
	}

	user, err := h.service.CurrentUser(c.UserContext(), service.UserClaims{
		Subject:         claims.Subject,
		Email:           claims.Email,
		FirstName:       claims.FirstName,
		LastName:        claims.LastName,
		ProfileImageURL: claims.ProfileImageURL,
		Role:            claims.Role,
	})
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "user retrieved", user)
}
