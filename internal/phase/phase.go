package phase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/process"
	"github.com/slok/revdeprun/internal/progress"
	"github.com/slok/revdeprun/internal/utils/env"
)

// DefaultInterpreter is the interpreter the job payloads are run with.
const DefaultInterpreter = "Rscript"

// DefaultInterpreterArgs are the interpreter arguments placed before the script.
var DefaultInterpreterArgs = []string{"--vanilla"}

// Reporter is where the phase execution is narrated.
type Reporter interface {
	Task(label string) *progress.Task
	Println(msg string)
	Suspend(fn func() error) error
}

// Monitor is a background sampler attached to a phase while it runs.
type Monitor interface {
	Start(ctx context.Context)
	Stop()
}

// RunnerConfig is the phase runner configuration.
type RunnerConfig struct {
	Process         process.Runner
	Reporter        Reporter
	Interpreter     string
	InterpreterArgs []string
	// ScriptDir is where the job payloads are written before running them
	// when a run doesn't set its own.
	ScriptDir string
	// Env is added to the environment of every phase process.
	Env map[string]string
	// Stdout and Stderr receive the output of streamed phases.
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

func (c *RunnerConfig) defaults() error {
	if c.Process == nil {
		return fmt.Errorf("process runner is required")
	}
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Interpreter == "" {
		c.Interpreter = DefaultInterpreter
	}
	if c.InterpreterArgs == nil {
		c.InterpreterArgs = DefaultInterpreterArgs
	}
	if c.ScriptDir == "" {
		c.ScriptDir = os.TempDir()
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "phase.Runner"})
	return nil
}

// Runner runs job descriptors as interpreter processes.
type Runner struct {
	process         process.Runner
	reporter        Reporter
	interpreter     string
	interpreterArgs []string
	scriptDir       string
	env             []string
	stdout          io.Writer
	stderr          io.Writer
	logger          log.Logger
}

// NewRunner returns a new phase runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		process:         cfg.Process,
		reporter:        cfg.Reporter,
		interpreter:     cfg.Interpreter,
		interpreterArgs: cfg.InterpreterArgs,
		scriptDir:       cfg.ScriptDir,
		env:             env.List(cfg.Env),
		stdout:          cfg.Stdout,
		stderr:          cfg.Stderr,
		logger:          cfg.Logger,
	}, nil
}

// RunOptions are the options of a single phase run.
type RunOptions struct {
	// Task narrates the phase, when missing a new one is created.
	Task *progress.Task
	// Monitor is started right before launching the process and always
	// stopped before returning.
	Monitor Monitor
	// Stream hands the terminal to the process while still capturing its output.
	Stream bool
	// SuccessMessage is the task message on success.
	SuccessMessage string
	// ScriptDir overrides the runner script directory, usually the run
	// workspace temporary directory.
	ScriptDir string
}

// Run runs the job descriptor and classifies its outcome. A non successful
// outcome is returned together with an error after failing the task and
// forwarding the captured output.
func (r *Runner) Run(ctx context.Context, desc model.JobDescriptor, opts RunOptions) (*model.Outcome, error) {
	if opts.Monitor != nil {
		defer opts.Monitor.Stop()
	}

	t := opts.Task
	if t == nil {
		t = r.reporter.Task(fmt.Sprintf("Running %s phase", desc.Phase))
		defer t.Close()
	}

	logger := r.logger.WithValues(log.Kv{"phase": desc.Phase})

	scriptDir := opts.ScriptDir
	if scriptDir == "" {
		scriptDir = r.scriptDir
	}
	script, err := writeScript(scriptDir, desc)
	if err != nil {
		t.Fail(fmt.Sprintf("Preparing %s phase failed", desc.Phase))
		return nil, err
	}
	defer os.Remove(script)

	cmd := process.Command{
		Name: r.interpreter,
		Args: append(append([]string{}, r.interpreterArgs...), script),
		Dir:  desc.WorkingDir,
		Env:  r.env,
	}

	if opts.Monitor != nil {
		opts.Monitor.Start(ctx)
	}

	logger.Debugf("Launching %s", cmd)
	var outcome *model.Outcome
	if opts.Stream {
		err = r.reporter.Suspend(func() error {
			cmd.Stdout = r.stdout
			cmd.Stderr = r.stderr
			var err error
			outcome, err = r.process.Run(ctx, cmd)
			return err
		})
	} else {
		outcome, err = r.process.Run(ctx, cmd)
	}

	if opts.Monitor != nil {
		opts.Monitor.Stop()
	}

	if err != nil {
		t.Fail(fmt.Sprintf("%s phase interrupted", desc.Phase))
		return nil, fmt.Errorf("could not run %s phase: %w", desc.Phase, err)
	}

	if !outcome.Success() {
		if outcome.Status == model.OutcomeStatusLaunchFailure {
			t.Fail(fmt.Sprintf("%s phase failed to start", desc.Phase))
		} else {
			t.Fail(fmt.Sprintf("%s phase failed with exit status %d", desc.Phase, outcome.ExitCode))
		}
		EmitOutput(r.reporter, fmt.Sprintf("%s phase", desc.Phase), outcome)
		logger.Debugf("Phase failed: %s", outcome.Status)
		return outcome, fmt.Errorf("%s phase failed: %w", desc.Phase, outcome.Err())
	}

	msg := opts.SuccessMessage
	if msg == "" {
		msg = fmt.Sprintf("%s phase completed", desc.Phase)
	}
	t.Finish(msg)
	logger.Debugf("Phase succeeded")

	return outcome, nil
}

func writeScript(scriptDir string, desc model.JobDescriptor) (string, error) {
	dir, err := filepath.Abs(scriptDir)
	if err != nil {
		return "", fmt.Errorf("could not resolve script directory %s: %w", scriptDir, err)
	}

	f, err := os.CreateTemp(dir, "revdeprun-*.R")
	if err != nil {
		return "", fmt.Errorf("could not create %s phase script in %s: %w", desc.Phase, dir, err)
	}

	if _, err := f.WriteString(desc.Payload); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("could not write %s phase script %s: %w", desc.Phase, f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("could not write %s phase script %s: %w", desc.Phase, f.Name(), err)
	}

	return f.Name(), nil
}
