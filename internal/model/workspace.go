package model

// Workspace holds the directories used during a single run.
// When a custom directory is used both fields point to the same path.
type Workspace struct {
	// TempDir is where temporary files (scripts, extracted archives) are staged.
	TempDir string
	// CloneRoot is where remote repositories are cloned into.
	CloneRoot string
}
