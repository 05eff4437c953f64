package model

import (
	"fmt"
	"time"
)

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is the history record of one pipeline execution.
type Run struct {
	ID             string
	Repository     string
	RepositoryPath string
	Workers        int
	Status         RunStatus
	Error          string
	Summary        *PrepareSummary
	CreatedAt      time.Time
	FinishedAt     *time.Time
}

// PhaseStatus represents the state of a single phase of a run.
type PhaseStatus string

const (
	PhaseStatusPending   PhaseStatus = "pending"
	PhaseStatusRunning   PhaseStatus = "running"
	PhaseStatusSucceeded PhaseStatus = "succeeded"
	PhaseStatusFailed    PhaseStatus = "failed"
)

// PhaseRecord is the history record of a single phase of a run.
type PhaseRecord struct {
	ID        string
	RunID     string
	Sequence  int
	Name      string
	Status    PhaseStatus
	Error     string
	CreatedAt time.Time
}

// PhaseProgress represents the completion state of a run: the number of
// succeeded phases over all of its phases.
type PhaseProgress struct {
	Done  int
	Total int
}

func (p PhaseProgress) String() string { return fmt.Sprintf("%d/%d", p.Done, p.Total) }

// RunOverview is a run together with the progress of its phases.
type RunOverview struct {
	Run      Run
	Progress PhaseProgress
}
