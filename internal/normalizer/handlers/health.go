package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Handlers
// ============================================================

func (h *Handler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

// Ready reports whether the run history can be reached.
func (h *Handler) Ready(c fiber.Ctx) error {
	if err := h.repo.Ping(c.Context()); err != nil {
		log.Printf("[HEALTH] Database not ready: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not ready",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}

func (h *Handler) Startup(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "started"})
}

// Register mounts every route on app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health/live", h.Live)
	app.Get("/health/ready", h.Ready)
	app.Get("/health/startup", h.Startup)

	app.Post("/normalize", h.Normalize)
	app.Post("/render", h.Render)

	app.Get("/runs", h.ListRuns)
	app.Get("/runs/:id", h.GetRun)
	app.Get("/runs/:id/output", h.GetOutput)
	app.Get("/runs/:id/preview", h.GetPreview)

	app.Get("/docs", SwaggerUI)
	app.Get("/docs/openapi.yaml", SwaggerSpec)
}
