package model

// RepositoryKind is the classification of an operator supplied repository input.
type RepositoryKind string

const (
	RepositoryKindLocalDirectory RepositoryKind = "local-directory"
	RepositoryKindLocalArchive   RepositoryKind = "local-archive"
	RepositoryKindRemote         RepositoryKind = "remote"
)

// RepositorySpec is the raw repository input once it has been classified.
type RepositorySpec struct {
	Raw  string
	Kind RepositoryKind
}

// ResolvedRepository is a package source tree ready to be used by the pipeline.
type ResolvedRepository struct {
	// Path is canonical, absolute and points to a readable directory.
	Path   string
	Kind   RepositoryKind
	Source string
}
