package progress

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

const (
	markFinished = "✓"
	markFailed   = "✗"

	// ANSI sequences used to tear down the live region.
	ansiCursorUp    = "\x1b[%dA"
	ansiClearScreen = "\r\x1b[J"
)

// Config is the configuration of the progress reporter.
type Config struct {
	// Out is where everything is rendered, defaults to os.Stderr.
	Out io.Writer
	// Interactive forces the live rendering mode on or off. By default it is
	// enabled when Out is a terminal.
	Interactive *bool
	// Width clips the live lines, 0 autodetects the terminal width.
	Width int
}

func (c *Config) defaults() {
	if c.Out == nil {
		c.Out = os.Stderr
	}

	if c.Interactive == nil {
		interactive := false
		if f, ok := c.Out.(interface{ Fd() uintptr }); ok {
			interactive = term.IsTerminal(f.Fd())
		}
		c.Interactive = &interactive
	}
}

// Progress owns the output stream and multiplexes task status lines on it.
// All the writes to the output must go through it while tasks are active.
//
// In interactive mode the active tasks are drawn in a live region at the bottom
// that is redrawn on every spinner frame. Otherwise only the terminal state of
// each task is printed.
type Progress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	width       int
	frames      []string
	frame       int
	tasks       []*Task
	drawn       int
	suspended   int
	partial     []byte
	closed      bool

	spinnerStyle lipgloss.Style
	finishStyle  lipgloss.Style
	failStyle    lipgloss.Style

	stopc chan struct{}
	wg    sync.WaitGroup
}

// New returns a new progress reporter. Close must be called once the reporter
// is not needed anymore.
func New(cfg Config) *Progress {
	cfg.defaults()

	r := lipgloss.NewRenderer(cfg.Out)
	p := &Progress{
		out:          cfg.Out,
		interactive:  *cfg.Interactive,
		width:        cfg.Width,
		frames:       spinner.Line.Frames,
		spinnerStyle: r.NewStyle().Foreground(lipgloss.Color("2")),
		finishStyle:  r.NewStyle().Foreground(lipgloss.Color("2")),
		failStyle:    r.NewStyle().Foreground(lipgloss.Color("1")),
		stopc:        make(chan struct{}),
	}

	if p.interactive {
		p.wg.Add(1)
		go p.tickLoop(spinner.Line.FPS)
	}

	return p
}

// Task starts a new task with the provided label, it is rendered right away.
func (p *Progress) Task(label string) *Task {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := &Task{p: p, label: label, message: label}
	p.tasks = append(p.tasks, t)
	p.refresh()

	return t
}

// WithTask runs body with a new task. If body returns an error the task is
// marked as failed, otherwise it is finished with its current message unless
// body already finished it. A panicking body leaves the task cancelled.
func (p *Progress) WithTask(label string, body func(t *Task) error) error {
	t := p.Task(label)
	defer t.Close()

	if err := body(t); err != nil {
		t.Fail(label + " (failed)")
		return err
	}

	t.Finish(t.Message())
	return nil
}

// Println prints a standalone message without interleaving it with the live tasks.
func (p *Progress) Println(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.println(msg)
}

// Printf is like Println with formatting.
func (p *Progress) Printf(format string, args ...any) {
	p.Println(fmt.Sprintf(format, args...))
}

// Write implements io.Writer so loggers can write through the reporter, every
// complete line is printed as a standalone message.
func (p *Progress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.partial = append(p.partial, b...)
	for {
		i := bytes.IndexByte(p.partial, '\n')
		if i < 0 {
			break
		}
		line := string(p.partial[:i])
		p.partial = p.partial[i+1:]
		p.println(line)
	}

	return len(b), nil
}

// Suspend tears down the live region, runs fn and restores the rendering
// afterwards, even if fn fails or panics. It is used to hand the terminal to
// processes that write to the same stream.
func (p *Progress) Suspend(fn func() error) error {
	p.mu.Lock()
	p.clear()
	p.suspended++
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.suspended--
		p.refresh()
		p.mu.Unlock()
	}()

	return fn()
}

// Close cancels the tasks that are still running, flushes them and stops the
// rendering loop.
func (p *Progress) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, t := range p.tasks {
		if t.state == stateRunning {
			t.state = stateFailed
			t.message = t.label + " (cancelled)"
		}
	}
	p.refresh()
	if len(p.partial) > 0 {
		p.println(string(p.partial))
		p.partial = nil
	}
	p.mu.Unlock()

	close(p.stopc)
	p.wg.Wait()
}

func (p *Progress) tickLoop(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopc:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.suspended == 0 && len(p.tasks) > 0 {
				p.frame = (p.frame + 1) % len(p.frames)
				p.clear()
				p.draw()
			}
			p.mu.Unlock()
		}
	}
}

// println must be called with the lock held.
func (p *Progress) println(msg string) {
	p.clear()
	p.flush()
	fmt.Fprintln(p.out, msg)
	p.draw()
}

// refresh must be called with the lock held.
func (p *Progress) refresh() {
	p.clear()
	p.flush()
	p.draw()
}

// clear removes the live region from the screen.
func (p *Progress) clear() {
	if p.drawn == 0 {
		return
	}
	fmt.Fprintf(p.out, ansiCursorUp, p.drawn)
	fmt.Fprint(p.out, ansiClearScreen)
	p.drawn = 0
}

// flush prints permanently the leading tasks that reached a terminal state,
// tasks are released in creation order.
func (p *Progress) flush() {
	n := 0
	for _, t := range p.tasks {
		if t.state == stateRunning {
			break
		}
		fmt.Fprintln(p.out, p.render(t))
		n++
	}
	p.tasks = p.tasks[n:]
}

// draw renders the live region, only in interactive mode.
func (p *Progress) draw() {
	if !p.interactive || p.suspended > 0 || p.closed {
		return
	}

	width := p.liveWidth()
	drawn := 0
	for _, t := range p.tasks {
		line := p.render(t)
		if width > 0 {
			line = lipgloss.NewStyle().MaxWidth(width).Render(line)
		}
		fmt.Fprintln(p.out, line)
		// Multiline messages take more than one row of the live region.
		drawn += strings.Count(line, "\n") + 1
	}
	p.drawn = drawn
}

func (p *Progress) render(t *Task) string {
	switch t.state {
	case stateFinished:
		return p.finishStyle.Render(markFinished) + " " + t.message
	case stateFailed:
		return p.failStyle.Render(markFailed) + " " + t.message
	default:
		return p.spinnerStyle.Render(p.frames[p.frame]) + " " + t.message
	}
}

func (p *Progress) liveWidth() int {
	if p.width > 0 {
		return p.width
	}

	f, ok := p.out.(interface{ Fd() uintptr })
	if !ok {
		return 0
	}
	w, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}

	// Leave the last column free so lines never wrap.
	return w - 1
}
