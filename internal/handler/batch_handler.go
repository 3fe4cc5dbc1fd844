package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// BatchHandler exposes generation batch history.
type BatchHandler struct {
	service service.BatchService
	logger  zerolog.Logger
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(service service.BatchService, logger zerolog.Logger) *BatchHandler {
	return &BatchHandler{
		service: service,
		logger:  logger.With().Str("component", "batch_handler").Logger(),
	}
}

// Register attaches batch endpoints to the router group.
func (h *BatchHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *BatchHandler) list(c *fiber.Ctx) error {
	batches, err := h.service.List(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "batches retrieved", batches)
}

func (h *BatchHandler) get(c *fiber.Ctx) error {
	batch, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "batch retrieved", batch)
}
