package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/models"
	"dxf-normalizer/internal/normalizer/parser"
)

// ============================================================
// Load / Save
// ============================================================

// Format is a document file format.
type Format string

const (
	FormatDXF Format = "dxf"
	FormatSVG Format = "svg"
)

// FormatOf picks the format from a file name. Anything that is not .svg
// is treated as DXF.
func FormatOf(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".svg") {
		return FormatSVG
	}
	return FormatDXF
}

// Load reads a DXF or SVG document. Read and parse failures are returned
// as *models.InputError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.InputError{Path: path, Err: err}
	}
	doc, err := Read(bytes.NewReader(data), FormatOf(path))
	if err != nil {
		var ierr *models.InputError
		if errors.As(err, &ierr) {
			ierr.Path = path
		}
		return nil, err
	}
	log.Printf("[STORE] loaded %s: %d entities", path, doc.Len())
	return doc, nil
}

// Read parses a document from r.
func Read(r io.Reader, format Format) (*Document, error) {
	var (
		drawing  *models.Drawing
		warnings []error
		err      error
	)
	switch format {
	case FormatSVG:
		drawing, warnings, err = parser.ParseSVG(r)
	default:
		drawing, err = parser.ParseDXF(r)
	}
	if err != nil {
		return nil, &models.InputError{Err: err}
	}

	doc := NewDocument(drawing)
	doc.Warnings = warnings
	return doc, nil
}

// Write serializes the document. SVG output is a preview rendering.
func Write(w io.Writer, doc *Document, format Format) error {
	if format == FormatSVG {
		svg, err := mapper.NewRenderer().Render(doc.ReadAll())
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, svg)
		return err
	}
	return mapper.WriteDXF(w, doc.Drawing(), doc.HandleSeed())
}

// Save writes the document to path, choosing the format from its
// extension. The file is replaced atomically.
func Save(doc *Document, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, doc, FormatOf(path)); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	log.Printf("[STORE] saved %s: %d entities", path, doc.Len())
	return nil
}

// OutputPath appends .dxf to a path that has no extension.
func OutputPath(path string) string {
	if filepath.Ext(path) == "" {
		return path + ".dxf"
	}
	return path
}
