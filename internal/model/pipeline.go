package model

import "fmt"

// PhaseConfig describes one phase of the pipeline.
type PhaseConfig struct {
	Name string
	// Template is the job payload template source for the phase.
	Template string
	// Summary marks the phase whose stdout carries the prepare summary.
	Summary bool
	// Monitor attaches the cache monitor while the phase runs.
	Monitor bool
	// Stream hands the terminal to the phase process while it runs.
	Stream bool
}

// PipelineConfig is the ordered list of phases executed on every run.
type PipelineConfig struct {
	Phases []PhaseConfig
}

// Validate validates the pipeline configuration.
func (p PipelineConfig) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("at least one phase is required: %w", ErrNotValid)
	}

	names := map[string]bool{}
	summaries := 0
	for i, ph := range p.Phases {
		if ph.Name == "" {
			return fmt.Errorf("phase %d: name is required: %w", i, ErrNotValid)
		}
		if names[ph.Name] {
			return fmt.Errorf("phase %q is declared more than once: %w", ph.Name, ErrNotValid)
		}
		names[ph.Name] = true

		if ph.Template == "" {
			return fmt.Errorf("phase %q: template is required: %w", ph.Name, ErrNotValid)
		}
		if ph.Summary {
			summaries++
		}
		if ph.Summary && ph.Stream {
			return fmt.Errorf("phase %q: a streamed phase can't produce the summary: %w", ph.Name, ErrNotValid)
		}
	}

	if summaries > 1 {
		return fmt.Errorf("only one phase can produce the summary, got %d: %w", summaries, ErrNotValid)
	}

	return nil
}

// PhaseNames returns the phase names in execution order.
func (p PipelineConfig) PhaseNames() []string {
	names := make([]string, 0, len(p.Phases))
	for _, ph := range p.Phases {
		names = append(names, ph.Name)
	}
	return names
}
