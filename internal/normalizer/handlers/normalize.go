package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"dxf-normalizer/internal/normalizer/assembler"
	"dxf-normalizer/internal/normalizer/history"
	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/models"
	"dxf-normalizer/internal/normalizer/store"
)

// RunRepository is the run history the handlers record into.
type RunRepository interface {
	Ping(ctx context.Context) error
	Record(ctx context.Context, run models.Run) (*models.Run, error)
	Get(ctx context.Context, id string) (*models.Run, error)
	List(ctx context.Context, limit int) ([]models.Run, error)
}

type Handler struct {
	repo  RunRepository
	files *history.FileStorage
	opts  mapper.Options
}

func NewHandler(repo RunRepository, files *history.FileStorage, opts mapper.Options) *Handler {
	return &Handler{repo: repo, files: files, opts: opts}
}

// ============================================================
// Normalize Handler
// ============================================================

// Normalize runs the normalizer over an uploaded DXF or SVG file, stores
// the input, output and preview under a new run, and returns the report.
func (h *Handler) Normalize(c fiber.Ctx) error {
	log.Printf("[NORMALIZE] Received request")

	name, data, err := readUpload(c)
	if err != nil {
		return respond(c, err)
	}

	opts, err := h.requestOptions(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	doc, err := store.Read(bytes.NewReader(data), store.FormatOf(name))
	if err != nil {
		log.Printf("[NORMALIZE] Read error: %v", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	report, err := mapper.New(opts).Normalize(doc)
	if err != nil {
		log.Printf("[NORMALIZE] Normalize error: %v", err)
		status := fiber.StatusInternalServerError
		if errors.Is(err, models.ErrUnsupportedEntity) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	for _, w := range doc.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}

	runID := uuid.NewString()
	if err := h.saveArtifacts(runID, name, data, doc, report); err != nil {
		log.Printf("[NORMALIZE] Storage error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to store run",
		})
	}

	run := history.RunFromReport(name, "http", report)
	run.ID = runID
	saved, err := h.repo.Record(c.Context(), run)
	if err != nil {
		log.Printf("[NORMALIZE] Record error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record run",
		})
	}

	log.Printf("[NORMALIZE] Run %s: %d loops, %d warnings", runID, report.Loops, len(report.Warnings))
	return c.JSON(fiber.Map{
		"run":    saved,
		"report": report,
	})
}

func (h *Handler) saveArtifacts(runID, name string, data []byte, doc *store.Document, report *mapper.Report) error {
	if err := h.files.SaveFile(runID, h.files.InputPath(runID, name), data); err != nil {
		return err
	}
	if err := store.Save(doc, h.files.OutputPath(runID)); err != nil {
		return err
	}
	if err := store.Save(doc, h.files.PreviewPath(runID)); err != nil {
		return err
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return h.files.SaveFile(runID, h.files.ReportPath(runID), body)
}

// requestOptions applies query overrides to the configured options.
func (h *Handler) requestOptions(c fiber.Ctx) (mapper.Options, error) {
	opts := h.opts

	if v := c.Query("arc_mode"); v != "" {
		mode, err := assembler.ParseArcMode(v)
		if err != nil {
			return opts, err
		}
		opts.ArcMode = mode
	}
	if v := c.Query("chord_ratio"); v != "" {
		ratio, err := strconv.ParseFloat(v, 64)
		if err != nil || !(ratio > 0) {
			return opts, errors.New("chord_ratio must be a positive number")
		}
		opts.ChordRatio = ratio
	}
	for key, dst := range map[string]*bool{
		"strict":           &opts.Strict,
		"keep_circle_arcs": &opts.KeepCircleArcs,
	} {
		if v := c.Query(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return opts, errors.New(key + " must be a boolean")
			}
			*dst = b
		}
	}
	return opts, nil
}

// requestError is a failure that maps onto an HTTP status.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// respond writes err as a JSON error body.
func respond(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var rerr *requestError
	if errors.As(err, &rerr) {
		status = rerr.status
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// readUpload returns the name and content of the multipart "file" field.
func readUpload(c fiber.Ctx) (string, []byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		log.Printf("[NORMALIZE] FormFile error: %v", err)
		return "", nil, &requestError{fiber.StatusBadRequest, "file required in multipart/form-data"}
	}

	log.Printf("[NORMALIZE] File received: %s, size: %d", file.Filename, file.Size)

	f, err := file.Open()
	if err != nil {
		return "", nil, &requestError{fiber.StatusInternalServerError, "failed to open file"}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, &requestError{fiber.StatusInternalServerError, "failed to read file"}
	}
	return file.Filename, data, nil
}
