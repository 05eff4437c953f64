package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default revdeprun data directory name (relative to home).
	DefaultDataDir = ".revdeprun"
	// DBFile is the run history database filename inside the data directory.
	DBFile = "revdeprun.db"

	// WorkDir is the directory created under the current directory when no
	// custom workspace is used.
	WorkDir = "revdeprun-work"

	// ManifestFile marks a directory as an R package root.
	ManifestFile = "DESCRIPTION"

	// Repository-level layout.

	// ResultsDir is the results directory created under the package root.
	ResultsDir = "revdep"
	// LibraryDir is the library directory, relative to the results directory.
	LibraryDir = "library"
	// CacheDir is the package cache directory, relative to the results directory.
	CacheDir = "cache"
	// CacheSourceDir holds the precached source packages, relative to the cache directory.
	CacheSourceDir = "src"
	// CacheBinaryDir holds the precached binary packages, relative to the cache directory.
	CacheBinaryDir = "bin"
)

// CacheMetadataFiles are the repository index files that live next to cached
// packages and are not packages themselves.
var CacheMetadataFiles = []string{"PACKAGES", "PACKAGES.gz", "PACKAGES.rds"}

// ResultsPath returns the results directory of a package repository.
func ResultsPath(repoPath string) string {
	return filepath.Join(repoPath, ResultsDir)
}

// CachePath returns the package cache directory of a package repository.
func CachePath(repoPath string) string {
	return filepath.Join(ResultsPath(repoPath), CacheDir)
}

// CacheSourcePath returns the precached source packages directory.
func CacheSourcePath(repoPath string) string {
	return filepath.Join(CachePath(repoPath), CacheSourceDir)
}

// CacheBinaryPath returns the precached binary packages directory.
func CacheBinaryPath(repoPath string) string {
	return filepath.Join(CachePath(repoPath), CacheBinaryDir)
}
