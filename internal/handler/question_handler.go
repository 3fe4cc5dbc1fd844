package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// QuestionHandler wires generated question routes, including generation itself.
type QuestionHandler struct {
	questions  service.QuestionService
	generation service.GenerationService
	logger     zerolog.Logger
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(questions service.QuestionService, generation service.GenerationService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions:  questions,
		generation: generation,
		logger:     logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register attaches question endpoints to the router group. generateGuards run before generation, e.g. a rate limiter.
func (h *QuestionHandler) Register(router fiber.Router, generateGuards ...fiber.Handler) {
	router.Get("", h.list)
	router.Post("/generate", append(generateGuards, h.generate)...)
	router.Post("/evaluate-difficulty", h.evaluateDifficulty)
	router.Get("/:id", h.get)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	questions, err := h.questions.List(c.UserContext(), dto.QuestionListRequest{
		Subject:    c.Query("subject"),
		Topic:      c.Query("topic"),
		TemplateID: c.Query("template_id"),
		BatchID:    c.Query("batch_id"),
	})
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.OK(c, questions, "questions retrieved", fiber.Map{"count": len(questions)})
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	question, err := h.questions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "question retrieved", question)
}

func (h *QuestionHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateQuestionsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	requestLogger(h.logger, c).Info().
		Str("user_id", actor.ID).
		Str("subject", payload.Subject).
		Str("topic", payload.Topic).
		Int("count", payload.QuestionCount).
		Msg("question generation requested")

	result, err := h.generation.Generate(c.UserContext(), actor, payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, result.Message, result)
}

func (h *QuestionHandler) evaluateDifficulty(c *fiber.Ctx) error {
	var payload dto.EvaluateDifficultyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	evaluation, err := h.questions.EvaluateDifficulty(c.UserContext(), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "difficulty evaluated", evaluation)
}
