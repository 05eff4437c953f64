package storage

import (
	"context"

	"github.com/slok/revdeprun/internal/model"
)

// Repository is the interface for run history persistence.
type Repository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns the runs, newest first.
	ListRuns(ctx context.Context) ([]model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
	DeleteRun(ctx context.Context, id string) error
}

// PhaseRepository tracks the phases of a run.
type PhaseRepository interface {
	// AddPhases adds the phases of a run in execution order.
	AddPhases(ctx context.Context, runID string, names []string) error
	// NextPhase returns the next pending phase of a run, or nil if there are none.
	NextPhase(ctx context.Context, runID string) (*model.PhaseRecord, error)
	// StartPhase marks a phase as running.
	StartPhase(ctx context.Context, phaseID string) error
	// CompletePhase marks a phase as succeeded.
	CompletePhase(ctx context.Context, phaseID string) error
	// FailPhase marks a phase as failed with an error message.
	FailPhase(ctx context.Context, phaseID string, err error) error
	// ListPhases returns the phases of a run in execution order.
	ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error)
	// Progress returns the completion progress of a run.
	Progress(ctx context.Context, runID string) (*model.PhaseProgress, error)
}
