package history

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage keeps the artifacts of each run under <root>/<run id>/.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

// InputPath keeps the uploaded file's extension so the format survives.
func (s *FileStorage) InputPath(runID, filename string) string {
	return filepath.Join(s.RunDir(runID), "input"+filepath.Ext(filename))
}

func (s *FileStorage) OutputPath(runID string) string {
	return filepath.Join(s.RunDir(runID), "output.dxf")
}

func (s *FileStorage) PreviewPath(runID string) string {
	return filepath.Join(s.RunDir(runID), "preview.svg")
}

func (s *FileStorage) ReportPath(runID string) string {
	return filepath.Join(s.RunDir(runID), "report.json")
}

func (s *FileStorage) EnsureDir(runID string) error {
	path := s.RunDir(runID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir run dir: %w", err)
	}
	return nil
}

func (s *FileStorage) SaveFile(runID, target string, data []byte) error {
	if err := s.EnsureDir(runID); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// Exists reports whether a run artifact is present.
func (s *FileStorage) Exists(target string) bool {
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}
