package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/storage/sqlite/migrations"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	return nil
}

// Repository is a SQLite implementation of storage.Repository.
type Repository struct {
	db     *sql.DB
	logger log.Logger
}

// NewRepository creates a new SQLite repository.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	version, err := migrations.Up(ctx, db, cfg.DBPath, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not prepare run history: %w", err)
	}

	cfg.Logger.Debugf("SQLite repository initialized at %s (schema version %d)", cfg.DBPath, version)

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// DB returns the underlying database so other repositories can share it.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error { return r.db.Close() }

const runColumns = `
	id, repository, repository_path, workers,
	status, error,
	todo_count, precache_failed, warnings,
	created_at, finished_at
`

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	args, err := runArgs(run)
	if err != nil {
		return err
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: runs.") {
			return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert run: %w", err)
	}

	r.logger.Debugf("Created run in repository: %s", run.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query run: %w", err)
	}

	return &run, nil
}

// ListRuns returns all runs, newest first.
func (r *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	args, err := runArgs(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE runs
		SET
			repository = ?,
			repository_path = ?,
			workers = ?,
			status = ?,
			error = ?,
			todo_count = ?,
			precache_failed = ?,
			warnings = ?,
			created_at = ?,
			finished_at = ?
		WHERE id = ?
	`

	// Same order as the insert but with the ID at the end.
	args = append(args[1:], run.ID)
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated run in repository: %s", run.ID)
	return nil
}

// DeleteRun deletes a run and its phases.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	r.logger.Debugf("Deleted run from repository: %s", id)
	return nil
}

func runArgs(run model.Run) ([]any, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("run ID is required: %w", model.ErrNotValid)
	}

	var finishedAt *int64
	if run.FinishedAt != nil {
		u := run.FinishedAt.Unix()
		finishedAt = &u
	}

	var todoCount *int
	precacheFailed, warnings := []string{}, []string{}
	if run.Summary != nil {
		todoCount = &run.Summary.TodoCount
		if run.Summary.PrecacheFailed != nil {
			precacheFailed = run.Summary.PrecacheFailed
		}
		if run.Summary.Warnings != nil {
			warnings = run.Summary.Warnings
		}
	}
	pf, err := json.Marshal(precacheFailed)
	if err != nil {
		return nil, fmt.Errorf("could not encode precache failures: %w", err)
	}
	ws, err := json.Marshal(warnings)
	if err != nil {
		return nil, fmt.Errorf("could not encode warnings: %w", err)
	}

	return []any{
		run.ID,
		run.Repository,
		run.RepositoryPath,
		run.Workers,
		run.Status,
		run.Error,
		todoCount,
		string(pf),
		string(ws),
		run.CreatedAt.Unix(),
		finishedAt,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (model.Run, error) {
	var run model.Run
	var todoCount, finishedAt sql.NullInt64
	var createdAt int64
	var precacheFailed, warnings string

	err := s.Scan(
		&run.ID,
		&run.Repository,
		&run.RepositoryPath,
		&run.Workers,
		&run.Status,
		&run.Error,
		&todoCount,
		&precacheFailed,
		&warnings,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return model.Run{}, err
	}

	run.CreatedAt = timeFromUnix(createdAt)
	if finishedAt.Valid {
		t := timeFromUnix(finishedAt.Int64)
		run.FinishedAt = &t
	}

	if todoCount.Valid {
		summary := &model.PrepareSummary{TodoCount: int(todoCount.Int64)}
		if err := json.Unmarshal([]byte(precacheFailed), &summary.PrecacheFailed); err != nil {
			return model.Run{}, fmt.Errorf("could not decode precache failures: %w", err)
		}
		if err := json.Unmarshal([]byte(warnings), &summary.Warnings); err != nil {
			return model.Run{}, fmt.Errorf("could not decode warnings: %w", err)
		}
		run.Summary = summary
	}

	return run, nil
}

func timeFromUnix(unix int64) time.Time { return time.Unix(unix, 0).UTC() }
