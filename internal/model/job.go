package model

// JobDescriptor is a rendered phase payload ready to be executed.
type JobDescriptor struct {
	Phase      string
	Payload    string
	WorkingDir string
}

// EnvironmentFacts are the host facts the job payloads are parameterized with.
// They are collected once at pipeline start.
type EnvironmentFacts struct {
	OS            string
	Arch          string
	DistroID      string
	DistroVersion string
	// Codename is the lowercased distribution codename (e.g. noble), empty if unknown.
	Codename string
	CPUs     int
}

// PrepareSummary is the structured result emitted by the summary phase.
type PrepareSummary struct {
	TodoCount      int
	PrecacheFailed []string
	Warnings       []string
}
