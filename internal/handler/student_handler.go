package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// StudentHandler wires student HTTP routes.
type StudentHandler struct {
	service     service.StudentService
	assignments service.AssignmentService
	logger      zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.StudentService, assignments service.AssignmentService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:     service,
		assignments: assignments,
		logger:      logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student endpoints to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Get("/:id/assignments", h.listAssignments)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.service.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	student, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	var payload dto.StudentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Update(c.UserContext(), activityActorFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) listAssignments(c *fiber.Ctx) error {
	assignments, err := h.assignments.ListByStudent(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "assignments retrieved", assignments)
}
