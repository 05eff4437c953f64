package progress

type taskState int

const (
	stateRunning taskState = iota
	stateFinished
	stateFailed
)

// Task is a live status line owned by the caller that created it.
//
// Finish and Fail are terminal and mutually exclusive, only the first terminal
// call has effect. A task that is closed without reaching a terminal state is
// rendered as failed and cancelled, so the usual pattern is:
//
//	t := p.Task("Doing something")
//	defer t.Close()
type Task struct {
	p       *Progress
	label   string
	message string
	state   taskState
}

// Label returns the label the task was created with.
func (t *Task) Label() string { return t.label }

// Message returns the current task message.
func (t *Task) Message() string {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	return t.message
}

// SetMessage updates the message of a running task in place.
func (t *Task) SetMessage(msg string) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()

	if t.state != stateRunning {
		return
	}
	t.message = msg
	if t.p.suspended == 0 {
		t.p.clear()
		t.p.draw()
	}
}

// Finish marks the task as successfully completed with a message.
func (t *Task) Finish(msg string) {
	t.terminate(stateFinished, msg)
}

// Fail marks the task as failed with a message.
func (t *Task) Fail(msg string) {
	t.terminate(stateFailed, msg)
}

// Close marks the task as cancelled if it didn't reach a terminal state.
func (t *Task) Close() {
	t.terminate(stateFailed, t.label+" (cancelled)")
}

// Done returns true if the task reached a terminal state.
func (t *Task) Done() bool {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	return t.state != stateRunning
}

func (t *Task) terminate(state taskState, msg string) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()

	if t.state != stateRunning {
		return
	}
	t.state = state
	t.message = msg
	t.p.refresh()
}
