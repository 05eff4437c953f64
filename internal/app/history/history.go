package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository      storage.Repository
	PhaseRepository storage.PhaseRepository
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.PhaseRepository == nil {
		return fmt.Errorf("phase repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.History"})
	return nil
}

// Service queries and manages the run history.
type Service struct {
	repo      storage.Repository
	phaseRepo storage.PhaseRepository
	logger    log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:      cfg.Repository,
		phaseRepo: cfg.PhaseRepository,
		logger:    cfg.Logger,
	}, nil
}

// ListRequest represents the list request parameters.
type ListRequest struct {
	// StatusFilter is an optional filter to only show runs with this status.
	StatusFilter *model.RunStatus
	// Limit caps the number of returned runs, 0 means no limit.
	Limit int
}

// List lists the runs with their phase progress, newest first.
func (s *Service) List(ctx context.Context, req ListRequest) ([]model.RunOverview, error) {
	s.logger.Debugf("listing runs with filter: %v", req.StatusFilter)

	runs, err := s.repo.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	filtered := make([]model.RunOverview, 0, len(runs))
	for _, r := range runs {
		if req.StatusFilter != nil && r.Status != *req.StatusFilter {
			continue
		}

		prog, err := s.phaseRepo.Progress(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("could not get progress of run %s: %w", r.ID, err)
		}
		filtered = append(filtered, model.RunOverview{Run: r, Progress: *prog})

		if req.Limit > 0 && len(filtered) == req.Limit {
			break
		}
	}

	s.logger.Debugf("found %d runs", len(filtered))
	return filtered, nil
}

// RunDetail is a run with its phases and their progress.
type RunDetail struct {
	model.RunOverview
	Phases []model.PhaseRecord
}

// Show returns a run and its phases. The ID can be a unique prefix of the run ID.
func (s *Service) Show(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	phases, err := s.phaseRepo.ListPhases(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list run phases: %w", err)
	}

	prog, err := s.phaseRepo.Progress(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("could not get run progress: %w", err)
	}

	return &RunDetail{
		RunOverview: model.RunOverview{Run: *run, Progress: *prog},
		Phases:      phases,
	}, nil
}

// Remove removes a run and its phases from the history.
func (s *Service) Remove(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteRun(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("could not delete run: %w", err)
	}

	s.logger.Infof("Removed run: %s", run.ID)
	return run, nil
}

func (s *Service) resolve(ctx context.Context, id string) (*model.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("run ID is required: %w", model.ErrNotValid)
	}

	run, err := s.repo.GetRun(ctx, id)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("could not get run: %w", err)
	}

	runs, lerr := s.repo.ListRuns(ctx)
	if lerr != nil {
		return nil, fmt.Errorf("could not list runs: %w", lerr)
	}

	var matches []model.Run
	prefix := strings.ToUpper(id)
	for _, r := range runs {
		if strings.HasPrefix(r.ID, prefix) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("could not get run: %w", err)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run ID prefix %q matches %d runs: %w", id, len(matches), model.ErrNotValid)
	}
}
