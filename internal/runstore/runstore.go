// Package runstore persists classification run records in a local
// sqlite database so past runs can be listed and their artifacts
// located after the process restarts.
package runstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned for lookups of unknown run ids.
var ErrRunNotFound = errors.New("run not found")

// Run is one classification run's persistent record.
type Run struct {
	ID          string     `json:"run_id"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	SourceName string `json:"source_name"`
	ParamsJSON string `json:"params_json"`
	Status     string `json:"status"`

	NumClusters          int    `json:"num_clusters"`
	TotalPixels          int    `json:"total_pixels"`
	InterpretationMethod string `json:"interpretation_method"`
	OutputDir            string `json:"output_dir"`
	ErrorMessage         string `json:"error_message,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// Closing m would close the shared DB connection, so it is left to
	// be garbage collected.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// InsertRun records a new run in the running state. CreatedAt defaults
// to now when unset.
func (s *Store) InsertRun(r *Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.Status == "" {
		r.Status = StatusRunning
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if r.ParamsJSON == "" {
		r.ParamsJSON = "{}"
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, created_unix, source_name, params_json, status,
		                  num_clusters, total_pixels, interpretation_method, output_dir, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.Unix(), r.SourceName, r.ParamsJSON, r.Status,
		r.NumClusters, r.TotalPixels, r.InterpretationMethod, r.OutputDir, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// CompleteRun marks a run as finished and records its outcome.
func (s *Store) CompleteRun(id string, numClusters, totalPixels int, method string) error {
	res, err := s.db.Exec(`
		UPDATE runs
		SET status = ?, completed_unix = ?, num_clusters = ?, total_pixels = ?, interpretation_method = ?
		WHERE run_id = ?`,
		StatusCompleted, time.Now().Unix(), numClusters, totalPixels, method, id)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// FailRun marks a run as failed with the given message.
func (s *Store) FailRun(id, message string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET status = ?, completed_unix = ?, error_message = ? WHERE run_id = ?`,
		StatusFailed, time.Now().Unix(), message, id)
	if err != nil {
		return fmt.Errorf("fail run %s: %w", id, err)
	}
	return requireRowAffected(res, id)
}

// GetRun returns one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, created_unix, completed_unix, source_name, params_json, status,
		       num_clusters, total_pixels, interpretation_method, output_dir, error_message
		FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns up to 100.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT run_id, created_unix, completed_unix, source_name, params_json, status,
		       num_clusters, total_pixels, interpretation_method, output_dir, error_message
		FROM runs ORDER BY created_unix DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var createdUnix int64
	var completedUnix sql.NullInt64
	err := row.Scan(&r.ID, &createdUnix, &completedUnix, &r.SourceName, &r.ParamsJSON, &r.Status,
		&r.NumClusters, &r.TotalPixels, &r.InterpretationMethod, &r.OutputDir, &r.ErrorMessage)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(createdUnix, 0)
	if completedUnix.Valid {
		t := time.Unix(completedUnix.Int64, 0)
		r.CompletedAt = &t
	}
	return &r, nil
}

func requireRowAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
