package handlers

import (
	"coffeetrace/internal/relay/config"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles liveness endpoints.
type HealthHandler struct {
	cfg *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Root handles GET /.
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "Coffee provenance relay is running",
		"mode":    h.cfg.AppMode,
	})
}

// HealthCheck handles GET /health.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"checks": fiber.Map{
			"api": "healthy",
		},
	})
}
