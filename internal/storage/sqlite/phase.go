package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
)

// PhaseRepositoryConfig is the configuration for the SQLite phase repository.
type PhaseRepositoryConfig struct {
	DB     *sql.DB
	Logger log.Logger
}

func (c *PhaseRepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.PhaseRepository"})
	return nil
}

// PhaseRepository is a SQLite implementation of storage.PhaseRepository.
type PhaseRepository struct {
	db     *sql.DB
	logger log.Logger
}

// NewPhaseRepository creates a new SQLite phase repository.
func NewPhaseRepository(cfg PhaseRepositoryConfig) (*PhaseRepository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &PhaseRepository{
		db:     cfg.DB,
		logger: cfg.Logger,
	}, nil
}

// AddPhases adds the phases of a run in execution order.
func (r *PhaseRepository) AddPhases(ctx context.Context, runID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq int
	query := `SELECT COALESCE(MAX(sequence), 0) FROM phases WHERE run_id = ?`
	if err := tx.QueryRowContext(ctx, query, runID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("could not get max sequence: %w", err)
	}

	insertQuery := `
		INSERT INTO phases (id, run_id, sequence, name, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, '', ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("could not prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, name := range names {
		_, err := stmt.ExecContext(ctx, ulid.Make().String(), runID, maxSeq+i+1, name, model.PhaseStatusPending, now.Unix())
		if err != nil {
			return fmt.Errorf("could not insert phase: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	r.logger.Debugf("Added %d phases for run %s", len(names), runID)
	return nil
}

const phaseColumns = `id, run_id, sequence, name, status, error, created_at`

// NextPhase returns the next pending phase of a run, or nil if there are none.
func (r *PhaseRepository) NextPhase(ctx context.Context, runID string) (*model.PhaseRecord, error) {
	query := `
		SELECT ` + phaseColumns + `
		FROM phases
		WHERE run_id = ? AND status = ?
		ORDER BY sequence ASC
		LIMIT 1
	`

	p, err := scanPhase(r.db.QueryRowContext(ctx, query, runID, model.PhaseStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not query next phase: %w", err)
	}

	return &p, nil
}

// StartPhase marks a phase as running.
func (r *PhaseRepository) StartPhase(ctx context.Context, phaseID string) error {
	return r.setStatus(ctx, phaseID, model.PhaseStatusRunning, "")
}

// CompletePhase marks a phase as succeeded.
func (r *PhaseRepository) CompletePhase(ctx context.Context, phaseID string) error {
	return r.setStatus(ctx, phaseID, model.PhaseStatusSucceeded, "")
}

// FailPhase marks a phase as failed with an error message.
func (r *PhaseRepository) FailPhase(ctx context.Context, phaseID string, phaseErr error) error {
	errMsg := ""
	if phaseErr != nil {
		errMsg = phaseErr.Error()
	}
	return r.setStatus(ctx, phaseID, model.PhaseStatusFailed, errMsg)
}

func (r *PhaseRepository) setStatus(ctx context.Context, phaseID string, status model.PhaseStatus, errMsg string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE phases SET status = ?, error = ? WHERE id = ?`, status, errMsg, phaseID)
	if err != nil {
		return fmt.Errorf("could not update phase: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("phase %s: %w", phaseID, model.ErrNotFound)
	}

	r.logger.Debugf("Phase %s is %s", phaseID, status)
	return nil
}

// ListPhases returns the phases of a run in execution order.
func (r *PhaseRepository) ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error) {
	query := `SELECT ` + phaseColumns + ` FROM phases WHERE run_id = ? ORDER BY sequence ASC`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query phases: %w", err)
	}
	defer rows.Close()

	var phases []model.PhaseRecord
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		phases = append(phases, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return phases, nil
}

// Progress returns the completion progress of a run.
func (r *PhaseRepository) Progress(ctx context.Context, runID string) (*model.PhaseProgress, error) {
	query := `
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as done
		FROM phases
		WHERE run_id = ?
	`

	var total, done int
	err := r.db.QueryRowContext(ctx, query, model.PhaseStatusSucceeded, runID).Scan(&total, &done)
	if err != nil {
		return nil, fmt.Errorf("could not query progress: %w", err)
	}

	return &model.PhaseProgress{Done: done, Total: total}, nil
}

func scanPhase(s scanner) (model.PhaseRecord, error) {
	var p model.PhaseRecord
	var createdAt int64

	err := s.Scan(&p.ID, &p.RunID, &p.Sequence, &p.Name, &p.Status, &p.Error, &createdAt)
	if err != nil {
		return model.PhaseRecord{}, err
	}
	p.CreatedAt = timeFromUnix(createdAt)

	return p, nil
}
