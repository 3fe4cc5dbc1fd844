package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/service"
	"github.com/noah-isme/labgen-api/internal/utils"
)

// DashboardHandler serves the dashboard counters and the recent activity feed.
type DashboardHandler struct {
	stats    service.StatsService
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(stats service.StatsService, activity service.ActivityService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:    stats,
		activity: activity,
		logger:   logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches dashboard endpoints to the router group.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/stats", h.summary)
	router.Get("/activity", h.recentActivity)
}

func (h *DashboardHandler) summary(c *fiber.Ctx) error {
	summary, err := h.stats.Summary(c.UserContext())
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "stats retrieved", summary)
}

func (h *DashboardHandler) recentActivity(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be a number")
	}

	entries, err := h.activity.List(c.UserContext(), limit)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}
	return utils.OK(c, entries, "activity retrieved", fiber.Map{"count": len(entries)})
}
