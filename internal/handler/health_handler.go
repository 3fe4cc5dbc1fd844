package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/labgen-api/internal/config"
	"github.com/noah-isme/labgen-api/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks one backing dependency such as the database or Redis.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Store       string            `json:"store"`
	AIProvider  string            `json:"ai_provider"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// HealthCheck reports service metadata and the result of every probe. Any failing
// probe turns the status into "degraded" with HTTP 503.
func HealthCheck(cfg config.Config, probes ...HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Store:       cfg.DatabaseDriver,
			AIProvider:  cfg.AIProvider,
		}

		if len(probes) > 0 {
			payload.Checks = make(map[string]string, len(probes))
			ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
			defer cancel()

			for _, probe := range probes {
				if err := probe.Check(ctx); err != nil {
					payload.Checks[probe.Name] = err.Error()
					payload.Status = "degraded"
					continue
				}
				payload.Checks[probe.Name] = "ok"
			}
		}

		if payload.Status != "ok" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(utils.APIResponse{
				Success: false,
				Data:    payload,
				Message: "service degraded",
			})
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
