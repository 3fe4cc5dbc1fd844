package middleware

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger *zerolog.Logger
	// AllowOrigins lists CORS origins; empty allows any origin.
	AllowOrigins []string
}

// Register attaches the middlewares shared by every route: panic recovery,
// correlation IDs, request logging and metrics, security headers and CORS.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}

	origins := "*"
	if len(cfg.AllowOrigins) > 0 {
		origins = strings.Join(cfg.AllowOrigins, ",")
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: requestLogger.GetLevel() <= zerolog.DebugLevel}))
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Correlation-ID, X-Seed-Token",
		AllowMethods:  "GET,POST,PATCH,OPTIONS",
		ExposeHeaders: CorrelationHeader,
	}))
}
