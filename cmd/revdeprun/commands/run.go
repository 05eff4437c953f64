package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/revdeprun/internal/app/revdep"
	"github.com/slok/revdeprun/internal/environment"
	"github.com/slok/revdeprun/internal/job"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/monitor"
	"github.com/slok/revdeprun/internal/phase"
	"github.com/slok/revdeprun/internal/process"
	"github.com/slok/revdeprun/internal/repo"
	storageio "github.com/slok/revdeprun/internal/storage/io"
	"github.com/slok/revdeprun/internal/utils/env"
)

type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	repository      string
	workDir         string
	numWorkers      int
	pipelinePath    string
	interpreter     string
	monitorInterval time.Duration
	envSpecs        []string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run the reverse dependency checks of an R package.").Default()
	c.Cmd.Arg("repository", "Local package directory, package archive (.tar.gz, .tgz, .tar, .zip) or git URL.").Required().StringVar(&c.repository)
	c.Cmd.Flag("work-dir", "Workspace directory for clones and temporary files (default: ./revdeprun-work/run-<id>).").StringVar(&c.workDir)
	c.Cmd.Flag("num-workers", "Number of parallel workers (default: number of CPUs).").Short('j').IntVar(&c.numWorkers)
	c.Cmd.Flag("pipeline", "YAML file with a custom phase pipeline.").StringVar(&c.pipelinePath)
	c.Cmd.Flag("interpreter", "Interpreter the phase scripts are run with.").Default(phase.DefaultInterpreter).StringVar(&c.interpreter)
	c.Cmd.Flag("monitor-interval", "Package cache sampling interval.").Default(monitor.DefaultInterval.String()).DurationVar(&c.monitorInterval)
	c.Cmd.Flag("env", "Environment variable for the phase processes as KEY=VALUE or KEY to take it from the current environment (repeatable).").Short('e').StringsVar(&c.envSpecs)

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	reporter := c.rootCmd.Progress

	if c.numWorkers < 0 {
		return fmt.Errorf("num workers must be positive, got: %d", c.numWorkers)
	}

	hostEnv := environment.Detect(environment.Config{Logger: logger})
	if hostEnv.OS != "linux" {
		return fmt.Errorf("only Linux hosts are supported, got %s: %w", hostEnv.OS, model.ErrNotValid)
	}

	phaseEnv, err := env.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("invalid env: %w", err)
	}

	pipeline, templates, err := loadPipeline(ctx, c.pipelinePath)
	if err != nil {
		return fmt.Errorf("could not load pipeline: %w", err)
	}

	builder, err := job.NewBuilder(job.BuilderConfig{Pipeline: pipeline, Templates: templates})
	if err != nil {
		return fmt.Errorf("could not create job builder: %w", err)
	}

	proc := process.NewExecRunner(logger)
	runner, err := phase.NewRunner(phase.RunnerConfig{
		Process:     proc,
		Reporter:    reporter,
		Interpreter: c.interpreter,
		Env:         phaseEnv,
		Stdout:      c.rootCmd.Stdout,
		Stderr:      c.rootCmd.Stderr,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create phase runner: %w", err)
	}

	acquirer, err := repo.NewAcquirer(repo.AcquirerConfig{
		Reporter:  reporter,
		Fetcher:   repo.NewGitFetcher(proc),
		Extractor: repo.NewArchiveExtractor(proc),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository acquirer: %w", err)
	}

	hist, err := c.rootCmd.openHistory(ctx)
	if err != nil {
		return err
	}
	defer hist.Close()

	svc, err := revdep.NewService(revdep.ServiceConfig{
		Repository:      hist.Runs,
		PhaseRepository: hist.Phases,
		Reporter:        reporter,
		Acquirer:        acquirer,
		Builder:         builder,
		PhaseRunner:     runner,
		Pipeline:        pipeline,
		Environment:     hostEnv,
		MonitorInterval: c.monitorInterval,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	run, err := svc.Run(ctx, revdep.Request{
		Repository: c.repository,
		WorkDir:    c.workDir,
		Workers:    c.numWorkers,
	})
	if err != nil {
		if run != nil {
			return fmt.Errorf("run %s failed: %w", run.ID, err)
		}
		return err
	}

	return nil
}

// loadPipeline loads a custom pipeline file, the default pipeline is used
// when no file is given.
func loadPipeline(ctx context.Context, path string) (model.PipelineConfig, map[string]string, error) {
	if path == "" {
		return job.DefaultPipeline(), nil, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return model.PipelineConfig{}, nil, fmt.Errorf("could not resolve %s: %w", path, err)
	}

	// Templates are resolved relative to the pipeline file.
	r := storageio.NewPipelineYAMLRepository(os.DirFS(filepath.Dir(abs)))
	return r.GetPipeline(ctx, filepath.Base(abs))
}
