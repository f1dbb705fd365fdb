package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"dxf-normalizer/internal/normalizer/history"
	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/store"
)

// ============================================================
// Render Handler
// ============================================================

// Render returns an SVG preview of an uploaded DXF or SVG file without
// normalizing it.
func (h *Handler) Render(c fiber.Ctx) error {
	log.Printf("[RENDER] Received request")

	name, data, err := readUpload(c)
	if err != nil {
		return respond(c, err)
	}

	doc, err := store.Read(bytes.NewReader(data), store.FormatOf(name))
	if err != nil {
		log.Printf("[RENDER] Read error: %v", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	svg, err := mapper.NewRenderer().Render(doc.ReadAll())
	if err != nil {
		log.Printf("[RENDER] Render error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set(fiber.HeaderContentType, "image/svg+xml")
	return c.SendString(svg)
}

// ============================================================
// Run Handlers
// ============================================================

// ListRuns returns recorded runs, newest first. ?limit caps the count.
func (h *Handler) ListRuns(c fiber.Ctx) error {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be an integer",
			})
		}
		limit = n
	}

	runs, err := h.repo.List(c.Context(), limit)
	if err != nil {
		log.Printf("[RUNS] List error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list runs",
		})
	}
	return c.JSON(fiber.Map{"runs": runs})
}

func (h *Handler) GetRun(c fiber.Ctx) error {
	run, err := h.repo.Get(c.Context(), c.Params("id"))
	if err != nil {
		return runError(c, err)
	}
	return c.JSON(run)
}

// GetOutput sends the normalized DXF of a run.
func (h *Handler) GetOutput(c fiber.Ctx) error {
	return h.sendArtifact(c, h.files.OutputPath, "application/dxf", "output.dxf")
}

// GetPreview sends the SVG preview of a run's output.
func (h *Handler) GetPreview(c fiber.Ctx) error {
	return h.sendArtifact(c, h.files.PreviewPath, "image/svg+xml", "")
}

func (h *Handler) sendArtifact(c fiber.Ctx, pathOf func(string) string, contentType, attachment string) error {
	run, err := h.repo.Get(c.Context(), c.Params("id"))
	if err != nil {
		return runError(c, err)
	}

	data, err := os.ReadFile(pathOf(run.ID))
	if err != nil {
		log.Printf("[RUNS] Artifact error for %s: %v", run.ID, err)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "artifact missing",
		})
	}

	c.Set(fiber.HeaderContentType, contentType)
	if attachment != "" {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, attachment))
	}
	return c.Send(data)
}

func runError(c fiber.Ctx, err error) error {
	if errors.Is(err, history.ErrRunNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	log.Printf("[RUNS] Lookup error: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "failed to load run",
	})
}
