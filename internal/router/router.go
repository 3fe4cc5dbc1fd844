package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/labgen-api/internal/config"
	"github.com/noah-isme/labgen-api/internal/handler"
	"github.com/noah-isme/labgen-api/internal/middleware"
	"github.com/noah-isme/labgen-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler       *handler.AuthHandler
	DashboardHandler  *handler.DashboardHandler
	StudentHandler    *handler.StudentHandler
	TemplateHandler   *handler.TemplateHandler
	QuestionHandler   *handler.QuestionHandler
	AssignmentHandler *handler.AssignmentHandler
	BatchHandler      *handler.BatchHandler
	SeedHandler       *handler.SeedHandler
	JWTMiddleware     fiber.Handler
	HealthProbes      []handler.HealthProbe
	// GenerateLimiter guards question generation. Defaults to a per-user limiter.
	GenerateLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	generateLimiter := deps.GenerateLimiter
	if generateLimiter == nil {
		generateLimiter = middleware.RateLimit("generate", cfg.GenerationRateLimit, time.Minute)
	}

	// Everything registered below requires a valid token; health and metrics stay public.
	protected := api.Group("", jwtMiddleware)

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(protected.Group("/seed", middleware.RequireRole("admin")))
	}
	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(protected.Group("/auth"))
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(protected)
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(protected.Group("/students"))
	}
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.Register(protected.Group("/question-templates"))
	}
	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(protected.Group("/questions"), generateLimiter)
	}
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(protected.Group("/assignments"))
	}
	if deps.BatchHandler != nil {
		deps.BatchHandler.Register(protected.Group("/question-batches"))
	}
}
