package revdep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/job"
	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/monitor"
	"github.com/slok/revdeprun/internal/phase"
	"github.com/slok/revdeprun/internal/progress"
	"github.com/slok/revdeprun/internal/storage"
	"github.com/slok/revdeprun/internal/summary"
	"github.com/slok/revdeprun/internal/workspace"
)

// Reporter is where the whole run is narrated.
type Reporter interface {
	Task(label string) *progress.Task
	Println(msg string)
}

// RepositoryAcquirer resolves the repository input into a local package source tree.
type RepositoryAcquirer interface {
	PrepareRepository(ctx context.Context, ws model.Workspace, spec string) (*model.ResolvedRepository, error)
}

// JobBuilder renders the job descriptor of a pipeline phase.
type JobBuilder interface {
	Build(phase, repoPath string, workers int, env model.EnvironmentFacts) (*model.JobDescriptor, error)
}

// PhaseRunner runs a job descriptor.
type PhaseRunner interface {
	Run(ctx context.Context, desc model.JobDescriptor, opts phase.RunOptions) (*model.Outcome, error)
}

// ServiceConfig is the configuration for the revdep service.
type ServiceConfig struct {
	Repository      storage.Repository
	PhaseRepository storage.PhaseRepository
	Reporter        Reporter
	Acquirer        RepositoryAcquirer
	Builder         JobBuilder
	PhaseRunner     PhaseRunner
	// Pipeline must be the same pipeline the builder was created with.
	Pipeline    model.PipelineConfig
	Environment model.EnvironmentFacts
	// MonitorInterval is the sampling interval of the cache monitor.
	MonitorInterval time.Duration
	Logger          log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.PhaseRepository == nil {
		return fmt.Errorf("phase repository is required")
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Acquirer == nil {
		return fmt.Errorf("acquirer is required")
	}
	if c.Builder == nil {
		return fmt.Errorf("builder is required")
	}
	if c.PhaseRunner == nil {
		return fmt.Errorf("phase runner is required")
	}
	if len(c.Pipeline.Phases) == 0 {
		c.Pipeline = job.DefaultPipeline()
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Revdep"})
	return nil
}

// Service runs the reverse dependency check pipeline and records it in the run history.
type Service struct {
	repo       storage.Repository
	phaseRepo  storage.PhaseRepository
	reporter   Reporter
	acquirer   RepositoryAcquirer
	builder    JobBuilder
	runner     PhaseRunner
	phases     map[string]model.PhaseConfig
	phaseNames []string
	env        model.EnvironmentFacts
	interval   time.Duration
	logger     log.Logger
}

// NewService creates a new revdep service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	phases := map[string]model.PhaseConfig{}
	for _, ph := range cfg.Pipeline.Phases {
		phases[ph.Name] = ph
	}

	return &Service{
		repo:       cfg.Repository,
		phaseRepo:  cfg.PhaseRepository,
		reporter:   cfg.Reporter,
		acquirer:   cfg.Acquirer,
		builder:    cfg.Builder,
		runner:     cfg.PhaseRunner,
		phases:     phases,
		phaseNames: cfg.Pipeline.PhaseNames(),
		env:        cfg.Environment,
		interval:   cfg.MonitorInterval,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the run request parameters.
type Request struct {
	// Repository is a local directory, a local archive or a git locator.
	Repository string
	// WorkDir is an optional custom workspace directory.
	WorkDir string
	// CurrentDir is where the default workspace is created, defaults to the
	// process working directory.
	CurrentDir string
	// Workers is the parallelism of the phases, defaults to the host CPUs.
	Workers int
}

// Run runs the whole pipeline. It stops at the first failing step and always
// returns the run record when the run could be recorded.
func (s *Service) Run(ctx context.Context, req Request) (*model.Run, error) {
	if strings.TrimSpace(req.Repository) == "" {
		return nil, fmt.Errorf("repository is required: %w", model.ErrNotValid)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = s.env.CPUs
	}
	workers = max(workers, 1)

	run := model.Run{
		ID:         ulid.Make().String(),
		Repository: req.Repository,
		Workers:    workers,
		Status:     model.RunStatusRunning,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("could not save run: %w", err)
	}
	if err := s.phaseRepo.AddPhases(ctx, run.ID, s.phaseNames); err != nil {
		return nil, fmt.Errorf("could not save run phases: %w", err)
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID})
	ctx = logger.SetValuesOnCtx(ctx, log.Kv{"run-id": run.ID})
	logger.Debugf("Run created with %d workers", workers)

	err := s.run(ctx, &run, req)
	if err != nil {
		s.finish(ctx, &run, err)
		return &run, err
	}
	s.finish(ctx, &run, nil)

	s.reporter.Println(fmt.Sprintf(
		"revdep check finished successfully.\n  • run: %s\n  • repository: %s\n  • results: %s",
		run.ID,
		run.RepositoryPath,
		conventions.ResultsPath(run.RepositoryPath),
	))

	return &run, nil
}

func (s *Service) run(ctx context.Context, run *model.Run, req Request) error {
	ws, err := s.prepareWorkspace(req)
	if err != nil {
		return err
	}

	repo, err := s.acquirer.PrepareRepository(ctx, *ws, req.Repository)
	if err != nil {
		return fmt.Errorf("could not prepare target repository: %w", err)
	}
	run.RepositoryPath = repo.Path
	if err := s.repo.UpdateRun(ctx, *run); err != nil {
		return fmt.Errorf("could not save run: %w", err)
	}

	results := conventions.ResultsPath(repo.Path)
	if err := os.MkdirAll(results, 0o755); err != nil {
		return fmt.Errorf("could not create results directory %s: %w", results, err)
	}

	for {
		rec, err := s.phaseRepo.NextPhase(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("could not get next phase: %w", err)
		}
		if rec == nil {
			return nil
		}

		if err := s.runPhase(ctx, run, *ws, *rec); err != nil {
			if ferr := s.phaseRepo.FailPhase(context.WithoutCancel(ctx), rec.ID, err); ferr != nil {
				s.logger.Errorf("Could not record phase %s failure: %s", rec.Name, ferr)
			}
			return err
		}

		if err := s.phaseRepo.CompletePhase(ctx, rec.ID); err != nil {
			return fmt.Errorf("could not save phase %s: %w", rec.Name, err)
		}
	}
}

func (s *Service) prepareWorkspace(req Request) (*model.Workspace, error) {
	label := "Preparing workspace directory"
	if req.WorkDir != "" {
		label = fmt.Sprintf("Preparing workspace %s", req.WorkDir)
	}

	t := s.reporter.Task(label)
	defer t.Close()

	ws, err := workspace.Prepare(workspace.Config{CustomDir: req.WorkDir, CurrentDir: req.CurrentDir})
	if err != nil {
		t.Fail(t.Label() + " (failed)")
		return nil, fmt.Errorf("could not prepare workspace: %w", err)
	}
	t.Finish(fmt.Sprintf("Workspace ready at %s", ws.TempDir))

	return ws, nil
}

func (s *Service) runPhase(ctx context.Context, run *model.Run, ws model.Workspace, rec model.PhaseRecord) error {
	ph, ok := s.phases[rec.Name]
	if !ok {
		return fmt.Errorf("phase %q is not part of the pipeline: %w", rec.Name, model.ErrNotFound)
	}

	logger := s.logger.WithValues(log.Kv{"run-id": run.ID, "phase": ph.Name})

	if err := s.phaseRepo.StartPhase(ctx, rec.ID); err != nil {
		return fmt.Errorf("could not save phase %s: %w", ph.Name, err)
	}

	desc, err := s.builder.Build(ph.Name, run.RepositoryPath, run.Workers, s.env)
	if err != nil {
		return fmt.Errorf("could not build %s phase: %w", ph.Name, err)
	}

	opts := phase.RunOptions{Stream: ph.Stream, ScriptDir: ws.TempDir}
	if ph.Stream {
		s.reporter.Println(fmt.Sprintf("Launching %s phase...", ph.Name))
	} else {
		t := s.reporter.Task(fmt.Sprintf("Running %s phase", ph.Name))
		defer t.Close()
		opts.Task = t

		if ph.Monitor {
			m, err := monitor.New(monitor.Config{
				Task:     t,
				Interval: s.interval,
				Prefix:   t.Label(),
				Samples: []monitor.Sample{
					{Label: conventions.CacheSourceDir, Dir: conventions.CacheSourcePath(run.RepositoryPath)},
					{Label: conventions.CacheBinaryDir, Dir: conventions.CacheBinaryPath(run.RepositoryPath)},
				},
				Logger: logger,
			})
			if err != nil {
				return fmt.Errorf("could not create cache monitor: %w", err)
			}
			opts.Monitor = m
		}
	}

	logger.Debugf("Running phase")
	outcome, err := s.runner.Run(ctx, *desc, opts)
	if err != nil {
		return err
	}

	if ph.Summary {
		dec, err := summary.NewDecoder(summary.DecoderConfig{Reporter: s.reporter, Label: fmt.Sprintf("%s phase", ph.Name)})
		if err != nil {
			return fmt.Errorf("could not create summary decoder: %w", err)
		}
		sum, err := dec.Decode(outcome.Stdout)
		if err != nil {
			return fmt.Errorf("could not decode %s phase summary: %w", ph.Name, err)
		}
		run.Summary = sum
		s.reportSummary(*sum)

		if err := s.repo.UpdateRun(ctx, *run); err != nil {
			return fmt.Errorf("could not save run: %w", err)
		}
	}

	return nil
}

func (s *Service) reportSummary(sum model.PrepareSummary) {
	s.reporter.Println(fmt.Sprintf("Reverse dependencies to check: %d", sum.TodoCount))
	for _, w := range sum.Warnings {
		s.reporter.Println(fmt.Sprintf("warning: %s", w))
	}
	if len(sum.PrecacheFailed) > 0 {
		s.reporter.Println(fmt.Sprintf("Could not precache %d packages: %s", len(sum.PrecacheFailed), strings.Join(sum.PrecacheFailed, ", ")))
	}
}

// finish records the final state of the run even if the context was cancelled.
func (s *Service) finish(ctx context.Context, run *model.Run, runErr error) {
	ctx = context.WithoutCancel(ctx)

	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = model.RunStatusSucceeded
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}

	if err := s.repo.UpdateRun(ctx, *run); err != nil {
		s.logger.Errorf("Could not record run %s result: %s", run.ID, err)
	}

	if errors.Is(runErr, context.Canceled) {
		s.logger.Warningf("Run %s was cancelled", run.ID)
	}
}
