package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// AssignmentHandler wires assignment HTTP routes.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Post("/bulk", h.bulk)
	router.Patch("/:id", h.update)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.service.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) bulk(c *fiber.Ctx) error {
	var payload dto.BulkAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignments, err := h.service.Bulk(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	message := fmt.Sprintf("Successfully assigned questions to %d students", len(payload.StudentIDs))
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, message, assignments)
}

func (h *AssignmentHandler) update(c *fiber.Ctx) error {
	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	assignment, err := h.service.Update(c.UserContext(), activityActorFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignment updated", assignment)
}
