package repo

import (
	"context"
	"strings"

	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/process"
)

// Fetcher fetches a remote repository into a local destination.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dst string) (*model.Outcome, error)
}

// Extractor extracts an archive into an existing destination directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dst string) (*model.Outcome, error)
}

// GitFetcher fetches repositories with a shallow git clone.
type GitFetcher struct {
	runner process.Runner
}

// NewGitFetcher returns a new git based fetcher.
func NewGitFetcher(runner process.Runner) *GitFetcher {
	return &GitFetcher{runner: runner}
}

func (g GitFetcher) Fetch(ctx context.Context, locator, dst string) (*model.Outcome, error) {
	return g.runner.Run(ctx, process.Command{
		Name: "git",
		Args: []string{"clone", "--depth", "1", "--", locator, dst},
	})
}

// ArchiveExtractor extracts archives with tar, or unzip for zip archives.
type ArchiveExtractor struct {
	runner process.Runner
}

// NewArchiveExtractor returns a new tar/unzip based extractor.
func NewArchiveExtractor(runner process.Runner) *ArchiveExtractor {
	return &ArchiveExtractor{runner: runner}
}

func (a ArchiveExtractor) Extract(ctx context.Context, archive, dst string) (*model.Outcome, error) {
	cmd := process.Command{Name: "tar", Args: []string{"-xf", archive, "-C", dst}}
	if strings.HasSuffix(strings.ToLower(archive), ".zip") {
		cmd = process.Command{Name: "unzip", Args: []string{"-q", archive, "-d", dst}}
	}

	return a.runner.Run(ctx, cmd)
}
