package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/model"
)

// ErrNoManifest is returned when an extracted archive has no package root.
var ErrNoManifest = errors.New("archive did not contain a " + conventions.ManifestFile + " manifest")

// AmbiguousArchiveError is returned when an extracted archive has more than one
// candidate package root.
type AmbiguousArchiveError struct {
	// Candidates are the sorted candidate package roots.
	Candidates []string
}

func (e *AmbiguousArchiveError) Error() string {
	return fmt.Sprintf("ambiguous archive layout, multiple package roots found: %s", strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousArchiveError) Unwrap() error { return model.ErrNotValid }

var archiveSuffixes = []string{".tar.gz", ".tgz", ".tar.bz2", ".tbz2", ".tar.xz", ".txz", ".tar", ".zip"}

// IsArchive returns true if the file name has a supported archive suffix.
func IsArchive(name string) bool {
	name = strings.ToLower(name)
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// Classify classifies a raw repository input, the first match wins:
//   - An existing directory is a local directory.
//   - An existing file with a supported archive suffix is a local archive.
//   - Any other existing file is not supported.
//   - Anything else is a remote locator.
func Classify(spec string) (model.RepositorySpec, error) {
	if strings.TrimSpace(spec) == "" {
		return model.RepositorySpec{}, fmt.Errorf("repository is required: %w", model.ErrNotValid)
	}

	info, err := os.Stat(spec)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return model.RepositorySpec{Raw: spec, Kind: model.RepositoryKindRemote}, nil
	case err != nil:
		return model.RepositorySpec{}, fmt.Errorf("could not inspect %s: %w", spec, err)
	case info.IsDir():
		return model.RepositorySpec{Raw: spec, Kind: model.RepositoryKindLocalDirectory}, nil
	case IsArchive(info.Name()):
		return model.RepositorySpec{Raw: spec, Kind: model.RepositoryKindLocalArchive}, nil
	default:
		return model.RepositorySpec{}, fmt.Errorf("unsupported input %s, expected a directory, an archive (%s) or a remote locator: %w",
			spec, strings.Join(archiveSuffixes, " "), model.ErrNotValid)
	}
}

// GuessRepoName returns the directory name a remote locator is cloned into.
func GuessRepoName(locator string) (string, bool) {
	name := strings.TrimRight(strings.TrimSpace(locator), "/")
	if name == "" {
		return "", false
	}

	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	name = strings.TrimRight(name, "/")
	if name == "" || name == "." || name == ".." {
		return "", false
	}

	return name, true
}

// FindPackageRoot returns the package root inside an extracted archive. The
// directory itself is used when it has the manifest, otherwise exactly one of
// its immediate subdirectories must have it.
func FindPackageRoot(dir string) (string, error) {
	if hasManifest(dir) {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("could not read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if hasManifest(path) {
			candidates = append(candidates, path)
		}
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNoManifest, dir)
	case 1:
		return candidates[0], nil
	default:
		sort.Strings(candidates)
		return "", &AmbiguousArchiveError{Candidates: candidates}
	}
}

func hasManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, conventions.ManifestFile))
	return err == nil && info.Mode().IsRegular()
}
