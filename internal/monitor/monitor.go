package monitor

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/log"
)

// DefaultInterval is the default sampling interval.
const DefaultInterval = time.Second

// Messenger is the task whose message is updated with the samples.
type Messenger interface {
	SetMessage(msg string)
}

// Sample is a directory sampled by the monitor.
type Sample struct {
	Label string
	Dir   string
}

// Config is the cache monitor configuration.
type Config struct {
	Task     Messenger
	Samples  []Sample
	Interval time.Duration
	// Prefix is prepended to the sampled counts on the task message.
	Prefix string
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Task == nil {
		return fmt.Errorf("task is required")
	}
	if len(c.Samples) == 0 {
		return fmt.Errorf("at least one sample is required")
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "monitor.Monitor"})
	return nil
}

// Monitor periodically counts the artifacts staged in a set of directories and
// shows the counts on a task. It never fails, unreadable directories count as 0.
type Monitor struct {
	cfg Config

	startOnce sync.Once
	stopOnce  sync.Once
	stopc     chan struct{}
	wg        sync.WaitGroup
	last      string
}

// New returns a new cache monitor.
func New(cfg Config) (*Monitor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Monitor{
		cfg:   cfg,
		stopc: make(chan struct{}),
	}, nil
}

// Start starts sampling in background until Stop is called or the context is done.
// Only the first call has effect.
func (m *Monitor) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.wg.Add(1)
		go m.loop(ctx)
	})
}

// Stop stops the sampling and waits until the background loop has finished.
// It's safe to call it more than once, and without calling Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopc)
	})
	m.wg.Wait()
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopc:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *Monitor) sample() {
	summary := Summarize(m.cfg.Samples)
	if summary == m.last {
		return
	}
	m.last = summary

	msg := summary
	if m.cfg.Prefix != "" {
		msg = fmt.Sprintf("%s (%s)", m.cfg.Prefix, summary)
	}
	m.cfg.Logger.Debugf("Cache sampled: %s", summary)
	m.cfg.Task.SetMessage(msg)
}

// Summarize returns the human readable artifact counts of the samples.
func Summarize(samples []Sample) string {
	parts := make([]string, 0, len(samples))
	for _, s := range samples {
		parts = append(parts, fmt.Sprintf("%s: %d", s.Label, CountArtifacts(s.Dir)))
	}
	return strings.Join(parts, " | ")
}

// CountArtifacts returns the number of regular files in a directory ignoring
// the repository index files. Missing or unreadable directories count as 0.
func CountArtifacts(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	count := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || slices.Contains(conventions.CacheMetadataFiles, e.Name()) {
			continue
		}
		count++
	}

	return count
}
