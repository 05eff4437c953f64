package workspace

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/model"
)

// Config is the workspace configuration.
type Config struct {
	// CustomDir is an operator supplied directory used both as temporary
	// directory and clone root. It's created if missing.
	CustomDir string
	// CurrentDir is the directory the default workspace is created under,
	// defaults to the process working directory.
	CurrentDir string
}

func (c *Config) defaults() error {
	if c.CustomDir != "" || c.CurrentDir != "" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("could not get current directory: %w", err)
	}
	c.CurrentDir = wd

	return nil
}

// Prepare resolves and creates the directories used by a run.
func Prepare(cfg Config) (*model.Workspace, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.CustomDir != "" {
		if err := os.MkdirAll(cfg.CustomDir, 0o755); err != nil {
			return nil, fmt.Errorf("could not create workspace directory %s: %w", cfg.CustomDir, err)
		}
		dir, err := Canonicalize(cfg.CustomDir)
		if err != nil {
			return nil, err
		}

		return &model.Workspace{TempDir: dir, CloneRoot: dir}, nil
	}

	cloneRoot, err := Canonicalize(cfg.CurrentDir)
	if err != nil {
		return nil, err
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), rand.Reader).String()
	tempDir := filepath.Join(cloneRoot, conventions.WorkDir, "run-"+runID)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create workspace temporary directory %s: %w", tempDir, err)
	}

	return &model.Workspace{TempDir: tempDir, CloneRoot: cloneRoot}, nil
}

// Canonicalize returns the absolute path with all the symlinks resolved, the path must exist.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not get absolute path of %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("could not resolve %s: %w", path, err)
	}

	return resolved, nil
}
