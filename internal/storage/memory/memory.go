package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})
	return nil
}

// Repository is an in-memory implementation of storage.Repository and
// storage.PhaseRepository. Used when the history is disabled and in tests.
type Repository struct {
	runs   map[string]model.Run
	phases map[string]model.PhaseRecord
	mu     sync.RWMutex
	logger log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		runs:   make(map[string]model.Run),
		phases: make(map[string]model.PhaseRecord),
		logger: cfg.Logger,
	}, nil
}

// CreateRun creates a new run in the repository.
func (r *Repository) CreateRun(ctx context.Context, run model.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrAlreadyExists)
	}

	r.runs[run.ID] = copyRun(run)
	r.logger.Debugf("Created run in repository: %s", run.ID)

	return nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	runCopy := copyRun(run)
	return &runCopy, nil
}

// ListRuns returns all runs, newest first.
func (r *Repository) ListRuns(ctx context.Context) ([]model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, copyRun(run))
	}

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})

	return runs, nil
}

// UpdateRun updates an existing run.
func (r *Repository) UpdateRun(ctx context.Context, run model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; !ok {
		return fmt.Errorf("run %s: %w", run.ID, model.ErrNotFound)
	}

	r.runs[run.ID] = copyRun(run)
	r.logger.Debugf("Updated run in repository: %s", run.ID)

	return nil
}

// DeleteRun deletes a run and its phases.
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, model.ErrNotFound)
	}

	delete(r.runs, id)
	for pid, p := range r.phases {
		if p.RunID == id {
			delete(r.phases, pid)
		}
	}
	r.logger.Debugf("Deleted run from repository: %s", id)

	return nil
}

// AddPhases adds the phases of a run in execution order.
func (r *Repository) AddPhases(ctx context.Context, runID string, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(names) == 0 {
		return nil
	}

	if _, ok := r.runs[runID]; !ok {
		return fmt.Errorf("run %s: %w", runID, model.ErrNotFound)
	}

	maxSeq := 0
	for _, p := range r.phases {
		if p.RunID == runID && p.Sequence > maxSeq {
			maxSeq = p.Sequence
		}
	}

	now := time.Now().UTC()
	for i, name := range names {
		id := ulid.Make().String()
		r.phases[id] = model.PhaseRecord{
			ID:        id,
			RunID:     runID,
			Sequence:  maxSeq + i + 1,
			Name:      name,
			Status:    model.PhaseStatusPending,
			CreatedAt: now,
		}
	}

	r.logger.Debugf("Added %d phases for run %s", len(names), runID)
	return nil
}

// NextPhase returns the next pending phase of a run, or nil if there are none.
func (r *Repository) NextPhase(ctx context.Context, runID string) (*model.PhaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.runPhases(runID) {
		if p.Status == model.PhaseStatusPending {
			return &p, nil
		}
	}

	return nil, nil
}

// StartPhase marks a phase as running.
func (r *Repository) StartPhase(ctx context.Context, phaseID string) error {
	return r.setStatus(phaseID, model.PhaseStatusRunning, "")
}

// CompletePhase marks a phase as succeeded.
func (r *Repository) CompletePhase(ctx context.Context, phaseID string) error {
	return r.setStatus(phaseID, model.PhaseStatusSucceeded, "")
}

// FailPhase marks a phase as failed with an error message.
func (r *Repository) FailPhase(ctx context.Context, phaseID string, phaseErr error) error {
	errMsg := ""
	if phaseErr != nil {
		errMsg = phaseErr.Error()
	}
	return r.setStatus(phaseID, model.PhaseStatusFailed, errMsg)
}

// ListPhases returns the phases of a run in execution order.
func (r *Repository) ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.runPhases(runID), nil
}

// Progress returns the completion progress of a run.
func (r *Repository) Progress(ctx context.Context, runID string) (*model.PhaseProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prog := &model.PhaseProgress{}
	for _, p := range r.runPhases(runID) {
		prog.Total++
		if p.Status == model.PhaseStatusSucceeded {
			prog.Done++
		}
	}

	return prog, nil
}

func (r *Repository) setStatus(phaseID string, status model.PhaseStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.phases[phaseID]
	if !ok {
		return fmt.Errorf("phase %s: %w", phaseID, model.ErrNotFound)
	}

	p.Status = status
	p.Error = errMsg
	r.phases[phaseID] = p
	r.logger.Debugf("Phase %s is %s", phaseID, status)

	return nil
}

// runPhases must be called with the lock held.
func (r *Repository) runPhases(runID string) []model.PhaseRecord {
	var phases []model.PhaseRecord
	for _, p := range r.phases {
		if p.RunID == runID {
			phases = append(phases, p)
		}
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].Sequence < phases[j].Sequence })

	return phases
}

func copyRun(run model.Run) model.Run {
	if run.Summary != nil {
		s := *run.Summary
		s.PrecacheFailed = slices.Clone(s.PrecacheFailed)
		s.Warnings = slices.Clone(s.Warnings)
		run.Summary = &s
	}
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		run.FinishedAt = &t
	}
	return run
}
