package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists solver runs, per-quarter convergence reports, and
// solved values in SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// A solver run is a single writer; a small pool covers readers.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations from the embedded migration files.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateRun inserts a new run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (id, start_period, end_period, status, config_json, started_at, completed_at, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Start,
		run.End,
		run.Status,
		run.ConfigJSON,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// UpdateRun updates the status, completion time, and error of a run.
func (s *SQLiteStore) UpdateRun(ctx context.Context, run *Run) error {
	query := `
		UPDATE runs SET status = ?, completed_at = ?, error = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		run.Status,
		run.CompletedAt,
		run.Error,
		time.Now().UTC(),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, start_period, end_period, status, config_json, started_at, completed_at, error, created_at, updated_at
		FROM runs
		WHERE id = ?
	`
	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Start,
		&run.End,
		&run.Status,
		&run.ConfigJSON,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs ordered most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, start_period, end_period, status, config_json, started_at, completed_at, error, created_at, updated_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(
			&run.ID,
			&run.Start,
			&run.End,
			&run.Status,
			&run.ConfigJSON,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
			&run.CreatedAt,
			&run.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveQuarterReport inserts or replaces the convergence report for one
// quarter of a run.
func (s *SQLiteStore) SaveQuarterReport(ctx context.Context, report *QuarterReport) error {
	query := `
		INSERT INTO quarter_reports (run_id, period, iterations, converged, final_max_change, worst_variable, duration_ms, failure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, period) DO UPDATE SET
			iterations = excluded.iterations,
			converged = excluded.converged,
			final_max_change = excluded.final_max_change,
			worst_variable = excluded.worst_variable,
			duration_ms = excluded.duration_ms,
			failure = excluded.failure
	`
	_, err := s.db.ExecContext(ctx, query,
		report.RunID,
		report.Period,
		report.Iterations,
		report.Converged,
		report.FinalMaxChange,
		report.WorstVariable,
		report.DurationMs,
		report.Failure,
	)
	if err != nil {
		return fmt.Errorf("failed to save quarter report: %w", err)
	}
	return nil
}

// ListQuarterReports returns a run's reports in period order.
func (s *SQLiteStore) ListQuarterReports(ctx context.Context, runID string) ([]QuarterReport, error) {
	query := `
		SELECT id, run_id, period, iterations, converged, final_max_change, worst_variable, duration_ms, failure
		FROM quarter_reports
		WHERE run_id = ?
		ORDER BY period
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarter reports: %w", err)
	}
	defer rows.Close()

	var reports []QuarterReport
	for rows.Next() {
		var r QuarterReport
		if err := rows.Scan(
			&r.ID,
			&r.RunID,
			&r.Period,
			&r.Iterations,
			&r.Converged,
			&r.FinalMaxChange,
			&r.WorstVariable,
			&r.DurationMs,
			&r.Failure,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quarter report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// SaveSolvedValues bulk-inserts solved values in a single transaction.
func (s *SQLiteStore) SaveSolvedValues(ctx context.Context, values []SolvedValue) error {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO solved_values (run_id, variable, period, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, v.RunID, v.Variable, v.Period, v.Value); err != nil {
			return fmt.Errorf("failed to insert solved value %s@%s: %w", v.Variable, v.Period, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit solved values: %w", err)
	}
	return nil
}

// GetSolvedValues returns a run's solved values for one variable in
// period order.
func (s *SQLiteStore) GetSolvedValues(ctx context.Context, runID, variable string) ([]SolvedValue, error) {
	query := `
		SELECT run_id, variable, period, value
		FROM solved_values
		WHERE run_id = ? AND variable = ?
		ORDER BY period
	`
	rows, err := s.db.QueryContext(ctx, query, runID, variable)
	if err != nil {
		return nil, fmt.Errorf("failed to get solved values: %w", err)
	}
	defer rows.Close()

	var values []SolvedValue
	for rows.Next() {
		var v SolvedValue
		if err := rows.Scan(&v.RunID, &v.Variable, &v.Period, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan solved value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
