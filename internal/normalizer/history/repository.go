package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"dxf-normalizer/internal/normalizer/mapper"
	"dxf-normalizer/internal/normalizer/models"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

//go:embed migrations/001_init_runs.sql
var initSchema string

// ============================================================
// SQLite Repository
// ============================================================

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init creates the schema if it is missing.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, initSchema); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Record stores a run. An empty ID is filled with a new UUID; the stored
// run is returned with its ID and creation time.
func (r *Repository) Record(ctx context.Context, run models.Run) (*models.Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Source == "" {
		run.Source = "cli"
	}

	_, err := r.db.ExecContext(ctx, `
        INSERT INTO runs (id, input_name, source, circles, arcs, loops, polylines, deleted, inserted, warnings, truncated)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ID, run.InputName, run.Source,
		run.Circles, run.Arcs, run.Loops, run.Polylines,
		run.Deleted, run.Inserted, run.Warnings, run.Truncated,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r.Get(ctx, run.ID)
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Run, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, input_name, source, circles, arcs, loops, polylines, deleted, inserted, warnings, truncated, created_at
        FROM runs
        WHERE id = ?
    `, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. A limit of zero or less
// returns every run.
func (r *Repository) List(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, input_name, source, circles, arcs, loops, polylines, deleted, inserted, warnings, truncated, created_at
        FROM runs
        ORDER BY created_at DESC, rowid DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var run models.Run
	err := s.Scan(&run.ID, &run.InputName, &run.Source,
		&run.Circles, &run.Arcs, &run.Loops, &run.Polylines,
		&run.Deleted, &run.Inserted, &run.Warnings, &run.Truncated, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// RunFromReport summarizes a normalization report as a run row.
func RunFromReport(inputName, source string, report *mapper.Report) models.Run {
	return models.Run{
		InputName: inputName,
		Source:    source,
		Circles:   report.Circles,
		Arcs:      report.Arcs,
		Loops:     report.Loops,
		Polylines: len(report.Polylines),
		Deleted:   report.Deleted,
		Inserted:  report.Inserted,
		Warnings:  len(report.Warnings),
		Truncated: report.Truncated,
	}
}

// OpenSQLite opens the sqlite database at dbPath, creating its directory.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
