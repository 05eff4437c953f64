package repo_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/repo"
)

func TestGuessRepoName(t *testing.T) {
	tests := map[string]struct {
		locator string
		expName string
		expOK   bool
	}{
		"HTTPS locator with .git suffix.":          {locator: "https://github.com/r-lib/revdepcheck.git", expName: "revdepcheck", expOK: true},
		"HTTPS locator with .git and trailing /.":  {locator: "https://host/org/pkg.git/", expName: "pkg", expOK: true},
		"HTTPS locator without .git.":              {locator: "https://host/org/pkg", expName: "pkg", expOK: true},
		"HTTPS locator with trailing slashes.":     {locator: "https://host/org/pkg//", expName: "pkg", expOK: true},
		"SSH locator.":                             {locator: "git@host:org/pkg.git", expName: "pkg", expOK: true},
		"SSH locator without path.":                {locator: "git@host:pkg.git", expName: "pkg", expOK: true},
		"Locator with surrounding spaces.":         {locator: "  https://host/org/pkg.git  ", expName: "pkg", expOK: true},
		"Plain name.":                              {locator: "pkg", expName: "pkg", expOK: true},
		"Empty locator.":                           {locator: "", expOK: false},
		"Only slashes.":                            {locator: "///", expOK: false},
		"Locator ending in .git without a name.":   {locator: "https://host/org/.git", expOK: false},
		"Locator ending in a colon without a name": {locator: "git@host:", expOK: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got, ok := repo.GuessRepoName(test.locator)
			assert.Equal(test.expOK, ok)
			assert.Equal(test.expName, got)
		})
	}
}

func TestGuessRepoNameTrailingSlashIdempotent(t *testing.T) {
	a, okA := repo.GuessRepoName("https://host/org/pkg.git/")
	b, okB := repo.GuessRepoName("https://host/org/pkg.git")
	assert.True(t, okA)
	assert.True(t, okB)
	assert.Equal(t, a, b)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "pkg_0.1.0.tar.gz"), "")
	mustWrite(t, filepath.Join(dir, "pkg.ZIP"), "")
	mustWrite(t, filepath.Join(dir, "notes.txt"), "")

	tests := map[string]struct {
		spec    string
		expKind model.RepositoryKind
		expErr  error
	}{
		"An existing directory should be a local directory.": {
			spec:    dir,
			expKind: model.RepositoryKindLocalDirectory,
		},
		"An existing tarball should be a local archive.": {
			spec:    filepath.Join(dir, "pkg_0.1.0.tar.gz"),
			expKind: model.RepositoryKindLocalArchive,
		},
		"Archive suffixes should be case insensitive.": {
			spec:    filepath.Join(dir, "pkg.ZIP"),
			expKind: model.RepositoryKindLocalArchive,
		},
		"An existing file that is not an archive should be rejected.": {
			spec:   filepath.Join(dir, "notes.txt"),
			expErr: model.ErrNotValid,
		},
		"A missing path should be a remote locator.": {
			spec:    "https://github.com/r-lib/revdepcheck.git",
			expKind: model.RepositoryKindRemote,
		},
		"A missing archive path should be a remote locator.": {
			spec:    filepath.Join(dir, "missing.tar.gz"),
			expKind: model.RepositoryKindRemote,
		},
		"An empty input should be rejected.": {
			spec:   " ",
			expErr: model.ErrNotValid,
		},
		"A path that can't be inspected should fail instead of being a remote locator.": {
			spec:   filepath.Join(dir, "notes.txt", "pkg"),
			expErr: syscall.ENOTDIR,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got, err := repo.Classify(test.spec)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			assert.NoError(err)
			assert.Equal(test.expKind, got.Kind)
			assert.Equal(test.spec, got.Raw)
		})
	}
}

func TestClassifyPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.MkdirAll(filepath.Join(locked, "pkg"), 0o755))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	_, err := repo.Classify(filepath.Join(locked, "pkg"))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.ErrorContains(t, err, filepath.Join(locked, "pkg"))
}

func TestIsArchive(t *testing.T) {
	for _, name := range []string{"a.tar.gz", "a.tgz", "a.tar.bz2", "a.tbz2", "a.tar.xz", "a.txz", "a.tar", "a.zip"} {
		assert.True(t, repo.IsArchive(name), name)
	}
	for _, name := range []string{"a.gz", "a.txt", "tar", "a.rar"} {
		assert.False(t, repo.IsArchive(name), name)
	}
}

func TestFindPackageRoot(t *testing.T) {
	tests := map[string]struct {
		layout   []string
		expRoot  string
		expErr   error
		expCands []string
	}{
		"A manifest on the root should use the root.": {
			layout:  []string{"DESCRIPTION", "sub/DESCRIPTION"},
			expRoot: ".",
		},
		"A single subdirectory with manifest should be used.": {
			layout:  []string{"pkg/DESCRIPTION", "pkg/R/a.R", "other/README"},
			expRoot: "pkg",
		},
		"Without manifests it should fail.": {
			layout: []string{"pkg/README", "NEWS.md"},
			expErr: repo.ErrNoManifest,
		},
		"Nested manifests beyond one level should not count.": {
			layout: []string{"a/b/DESCRIPTION"},
			expErr: repo.ErrNoManifest,
		},
		"A manifest that is a directory should not count.": {
			layout: []string{"pkg/DESCRIPTION/file"},
			expErr: repo.ErrNoManifest,
		},
		"Multiple candidates should fail listing all of them.": {
			layout:   []string{"pkgb/DESCRIPTION", "pkga/DESCRIPTION"},
			expErr:   model.ErrNotValid,
			expCands: []string{"pkga", "pkgb"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dir := t.TempDir()
			for _, f := range test.layout {
				mustWrite(t, filepath.Join(dir, f), "x")
			}

			got, err := repo.FindPackageRoot(dir)
			if test.expErr != nil {
				require.ErrorIs(err, test.expErr)
				if test.expCands != nil {
					var aerr *repo.AmbiguousArchiveError
					require.True(errors.As(err, &aerr))
					exp := []string{}
					for _, c := range test.expCands {
						exp = append(exp, filepath.Join(dir, c))
					}
					assert.Equal(exp, aerr.Candidates)
					for _, c := range exp {
						assert.Contains(err.Error(), c)
					}
				}
				return
			}
			require.NoError(err)
			assert.Equal(filepath.Join(dir, test.expRoot), got)
		})
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
