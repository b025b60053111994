package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jgoulah/gridhours/pkg/models"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run ID has no stored run
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so started_at sorts lexically
const timeLayout = "2006-01-02 15:04:05.000000000"

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		data_file TEXT NOT NULL,
		output_file TEXT NOT NULL,
		started_at TEXT NOT NULL,
		rows_loaded INTEGER NOT NULL,
		rows_dropped INTEGER NOT NULL,
		rows_deduplicated INTEGER NOT NULL,
		max_feedin_hour INTEGER NOT NULL,
		max_feedin REAL NOT NULL,
		published INTEGER DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS hourly_aggregates (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		hour INTEGER NOT NULL,
		grid_purchase REAL NOT NULL,
		grid_feedin REAL NOT NULL,
		is_max_feedin_hour INTEGER NOT NULL,
		PRIMARY KEY (run_id, hour)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_published ON runs(published);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun stores a run and its hourly rows in one transaction
func (db *DB) SaveRun(ctx context.Context, run *models.Run) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, data_file, output_file, started_at, rows_loaded, rows_dropped,
		rows_deduplicated, max_feedin_hour, max_feedin, published)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.DataFile, run.OutputFile, run.StartedAt.UTC().Format(timeLayout),
		run.RowsLoaded, run.RowsDropped, run.RowsDeduplicated, run.MaxFeedinHour, run.MaxFeedin, run.Published)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO hourly_aggregates (run_id, hour, grid_purchase, grid_feedin, is_max_feedin_hour)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing hourly insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range run.Hours {
		if _, err := stmt.ExecContext(ctx, run.ID, h.Hour, h.GridPurchase, h.GridFeedin, h.IsMaxFeedinHour); err != nil {
			return fmt.Errorf("inserting hour %d: %w", h.Hour, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}
	return nil
}

const runColumns = `id, data_file, output_file, started_at, rows_loaded, rows_dropped,
	rows_deduplicated, max_feedin_hour, max_feedin, published`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (models.Run, error) {
	var run models.Run
	var startedAt string
	if err := s.Scan(&run.ID, &run.DataFile, &run.OutputFile, &startedAt, &run.RowsLoaded, &run.RowsDropped,
		&run.RowsDeduplicated, &run.MaxFeedinHour, &run.MaxFeedin, &run.Published); err != nil {
		return run, err
	}

	var err error
	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return run, fmt.Errorf("parsing started_at: %w", err)
	}
	return run, nil
}

// ListRuns retrieves stored runs, newest first. A limit of 0 means no limit.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var results []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// GetRun retrieves a run with its hourly rows
func (db *DB) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	run.Hours, err = db.GetHourly(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestRun retrieves the most recent run with its hourly rows
func (db *DB) LatestRun(ctx context.Context) (*models.Run, error) {
	runs, err := db.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrRunNotFound
	}
	return db.GetRun(ctx, runs[0].ID)
}

// GetHourly retrieves a run's hourly rows ordered by hour
func (db *DB) GetHourly(ctx context.Context, runID string) ([]models.HourlyAggregate, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT hour, grid_purchase, grid_feedin, is_max_feedin_hour
	FROM hourly_aggregates
	WHERE run_id = ?
	ORDER BY hour
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying hourly aggregates: %w", err)
	}
	defer rows.Close()

	var results []models.HourlyAggregate
	for rows.Next() {
		var h models.HourlyAggregate
		if err := rows.Scan(&h.Hour, &h.GridPurchase, &h.GridFeedin, &h.IsMaxFeedinHour); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, h)
	}

	return results, rows.Err()
}

// ListUnpublishedRuns retrieves runs not yet published, oldest first
func (db *DB) ListUnpublishedRuns(ctx context.Context) ([]models.Run, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE published = 0 ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("querying unpublished runs: %w", err)
	}
	defer rows.Close()

	var results []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// MarkPublished marks a run as published
func (db *DB) MarkPublished(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE runs SET published = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking run as published: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
