package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
)

// Command is an external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory, empty means the current one.
	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Stdout and Stderr, when set, receive the output while it is being
	// captured.
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line, only for display purposes.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs external processes capturing their output.
type Runner interface {
	// Run runs the command until it exits. Process failures (non zero exit status
	// or launch failures) are reported in the outcome, the error is only returned
	// when the run has been interrupted by the context.
	Run(ctx context.Context, cmd Command) (*model.Outcome, error)
}

var _ Runner = &ExecRunner{}

// ExecRunner is a Runner based on os/exec.
type ExecRunner struct {
	logger log.Logger
}

// NewExecRunner returns a new os/exec based process runner.
func NewExecRunner(logger log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.Noop
	}

	return &ExecRunner{
		logger: logger.WithValues(log.Kv{"svc": "process.ExecRunner"}),
	}
}

func (r ExecRunner) Run(ctx context.Context, cmd Command) (*model.Outcome, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("command name is required: %w", model.ErrNotValid)
	}

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	c.Stdout = &stdout
	if cmd.Stdout != nil {
		c.Stdout = io.MultiWriter(&stdout, cmd.Stdout)
	}
	c.Stderr = &stderr
	if cmd.Stderr != nil {
		c.Stderr = io.MultiWriter(&stderr, cmd.Stderr)
	}

	r.logger.Debugf("Executing command: %s", cmd)
	err := c.Run()

	if ctx.Err() != nil {
		return nil, fmt.Errorf("command %q interrupted: %w", cmd.Name, ctx.Err())
	}

	outcome := &model.Outcome{
		Status: model.OutcomeStatusSuccess,
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.Status = model.OutcomeStatusExitStatus
			outcome.ExitCode = exitErr.ExitCode()
		} else {
			outcome.Status = model.OutcomeStatusLaunchFailure
			outcome.LaunchErr = err
		}
	}

	r.logger.Debugf("Command %q finished: %s", cmd.Name, outcome.Status)

	return outcome, nil
}
