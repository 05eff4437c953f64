package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/phase"
	"github.com/slok/revdeprun/internal/progress"
	"github.com/slok/revdeprun/internal/workspace"
)

// Reporter is where the acquisition steps are narrated.
type Reporter interface {
	Task(label string) *progress.Task
	Println(msg string)
}

// AcquirerConfig is the configuration of the repository acquirer.
type AcquirerConfig struct {
	Reporter  Reporter
	Fetcher   Fetcher
	Extractor Extractor
	Logger    log.Logger
}

func (c *AcquirerConfig) defaults() error {
	if c.Reporter == nil {
		return fmt.Errorf("reporter is required")
	}
	if c.Fetcher == nil {
		return fmt.Errorf("fetcher is required")
	}
	if c.Extractor == nil {
		return fmt.Errorf("extractor is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "repo.Acquirer"})
	return nil
}

// Acquirer resolves repository inputs into a local package source tree.
type Acquirer struct {
	reporter  Reporter
	fetcher   Fetcher
	extractor Extractor
	logger    log.Logger
}

// NewAcquirer returns a new repository acquirer.
func NewAcquirer(cfg AcquirerConfig) (*Acquirer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Acquirer{
		reporter:  cfg.Reporter,
		fetcher:   cfg.Fetcher,
		extractor: cfg.Extractor,
		logger:    cfg.Logger,
	}, nil
}

// PrepareRepository classifies the repository input and makes it available
// as a canonical local directory.
func (a *Acquirer) PrepareRepository(ctx context.Context, ws model.Workspace, spec string) (*model.ResolvedRepository, error) {
	rs, err := Classify(spec)
	if err != nil {
		return nil, err
	}

	logger := a.logger.WithValues(log.Kv{"repository": rs.Raw, "kind": rs.Kind})
	logger.Debugf("Repository input classified")

	var path string
	switch rs.Kind {
	case model.RepositoryKindLocalDirectory:
		path, err = a.useLocal(rs.Raw)
	case model.RepositoryKindLocalArchive:
		path, err = a.extract(ctx, ws, rs.Raw)
	default:
		path, err = a.fetch(ctx, ws, rs.Raw)
	}
	if err != nil {
		return nil, err
	}

	logger.Infof("Repository ready at %s", path)

	return &model.ResolvedRepository{Path: path, Kind: rs.Kind, Source: rs.Raw}, nil
}

func (a *Acquirer) useLocal(dir string) (string, error) {
	t := a.reporter.Task(fmt.Sprintf("Using local repository at %s", dir))
	defer t.Close()

	path, err := resolve(dir)
	if err != nil {
		t.Fail(fmt.Sprintf("Failed to use local repository %s", dir))
		return "", err
	}

	t.Finish(fmt.Sprintf("Using %s", path))
	return path, nil
}

func (a *Acquirer) extract(ctx context.Context, ws model.Workspace, archive string) (string, error) {
	t := a.reporter.Task(fmt.Sprintf("Extracting %s", archive))
	defer t.Close()

	failed := fmt.Sprintf("Extracting %s failed", archive)

	src, err := workspace.Canonicalize(archive)
	if err != nil {
		t.Fail(failed)
		return "", err
	}

	dst, err := os.MkdirTemp(ws.TempDir, "extract-*")
	if err != nil {
		t.Fail(failed)
		return "", fmt.Errorf("could not create extraction directory in %s: %w", ws.TempDir, err)
	}

	outcome, err := a.extractor.Extract(ctx, src, dst)
	if err != nil {
		t.Fail(failed)
		return "", fmt.Errorf("could not extract archive %s: %w", archive, err)
	}
	if err := a.checkOutcome(t, fmt.Sprintf("Extracting %s", archive), "archive extraction", outcome); err != nil {
		return "", fmt.Errorf("could not extract archive %s: %w", archive, err)
	}

	root, err := FindPackageRoot(dst)
	if err != nil {
		t.Fail(failed)
		return "", fmt.Errorf("could not find package root in archive %s: %w", archive, err)
	}

	path, err := resolve(root)
	if err != nil {
		t.Fail(failed)
		return "", err
	}

	t.Finish(fmt.Sprintf("Extracted into %s", path))
	return path, nil
}

func (a *Acquirer) fetch(ctx context.Context, ws model.Workspace, locator string) (string, error) {
	name, ok := GuessRepoName(locator)
	if !ok {
		return "", fmt.Errorf("unable to infer repository name from %s: %w", locator, model.ErrNotValid)
	}

	if err := os.MkdirAll(ws.CloneRoot, 0o755); err != nil {
		return "", fmt.Errorf("could not create clone root %s: %w", ws.CloneRoot, err)
	}

	dst := filepath.Join(ws.CloneRoot, name)
	_, err := os.Lstat(dst)
	if err == nil {
		return "", fmt.Errorf("refusing to clone into %s because the directory already exists: %w", dst, model.ErrAlreadyExists)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("could not check clone destination %s: %w", dst, err)
	}

	t := a.reporter.Task(fmt.Sprintf("Cloning %s into %s", locator, dst))
	defer t.Close()

	outcome, err := a.fetcher.Fetch(ctx, locator, dst)
	if err != nil {
		t.Fail(fmt.Sprintf("Cloning %s failed", locator))
		return "", fmt.Errorf("could not clone repository %s: %w", locator, err)
	}
	if err := a.checkOutcome(t, fmt.Sprintf("Cloning %s", locator), "git clone "+locator, outcome); err != nil {
		return "", fmt.Errorf("could not clone repository %s: %w", locator, err)
	}

	path, err := resolve(dst)
	if err != nil {
		t.Fail(fmt.Sprintf("Cloning %s failed", locator))
		return "", err
	}

	t.Finish(fmt.Sprintf("Cloned into %s", path))
	return path, nil
}

// checkOutcome fails the task and forwards the captured output when the
// process didn't succeed.
func (a *Acquirer) checkOutcome(t *progress.Task, action, outputLabel string, o *model.Outcome) error {
	if o.Success() {
		return nil
	}

	if o.Status == model.OutcomeStatusLaunchFailure {
		t.Fail(action + " failed to start")
	} else {
		t.Fail(action + " failed")
	}
	phase.EmitOutput(a.reporter, outputLabel, o)

	return o.Err()
}

// resolve canonicalizes a directory and checks it can be read.
func resolve(dir string) (string, error) {
	path, err := workspace.Canonicalize(dir)
	if err != nil {
		return "", err
	}

	if _, err := os.ReadDir(path); err != nil {
		return "", fmt.Errorf("repository %s is not a readable directory: %w", path, err)
	}

	return path, nil
}
