package model

import "fmt"

// OutcomeStatus is the classification of an external process execution.
type OutcomeStatus string

const (
	OutcomeStatusSuccess       OutcomeStatus = "success"
	OutcomeStatusExitStatus    OutcomeStatus = "failed-with-exit-status"
	OutcomeStatusLaunchFailure OutcomeStatus = "failed-to-launch"
)

// Outcome is the result of running an external process with its output captured.
type Outcome struct {
	Status OutcomeStatus
	// ExitCode is only meaningful with OutcomeStatusExitStatus.
	ExitCode int
	// LaunchErr is only set with OutcomeStatusLaunchFailure.
	LaunchErr error
	Stdout    []byte
	Stderr    []byte
}

// Success returns true if the process exited with status 0.
func (o Outcome) Success() bool { return o.Status == OutcomeStatusSuccess }

// Err returns nil on success and an error describing the failure otherwise.
func (o Outcome) Err() error {
	switch o.Status {
	case OutcomeStatusSuccess:
		return nil
	case OutcomeStatusExitStatus:
		return fmt.Errorf("process exited with status %d", o.ExitCode)
	case OutcomeStatusLaunchFailure:
		return fmt.Errorf("process failed to launch: %w", o.LaunchErr)
	default:
		return fmt.Errorf("unknown process outcome %q", o.Status)
	}
}
