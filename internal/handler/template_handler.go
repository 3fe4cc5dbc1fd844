package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// TemplateHandler wires question template routes.
type TemplateHandler struct {
	service service.TemplateService
	logger  zerolog.Logger
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(service service.TemplateService, logger zerolog.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		logger:  logger.With().Str("component", "template_handler").Logger(),
	}
}

// Register attaches template endpoints to the router group.
func (h *TemplateHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/import", h.importFile)
	router.Get("/:id", h.get)
}

func (h *TemplateHandler) list(c *fiber.Ctx) error {
	templates, err := h.service.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "templates retrieved", templates)
}

func (h *TemplateHandler) get(c *fiber.Ctx) error {
	template, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "template retrieved", template)
}

func (h *TemplateHandler) create(c *fiber.Ctx) error {
	var payload dto.TemplateCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	template, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "template created", template)
}

func (h *TemplateHandler) importFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Import(c.UserContext(), activityActorFromContext(c), file)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	status := fiber.StatusCreated
	if len(result.Imported) == 0 {
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(utils.APIResponse{
		Success: len(result.Imported) > 0,
		Data:    result,
		Message: "templates imported",
	})
}
