package io

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"github.com/slok/revdeprun/internal/job"
	"github.com/slok/revdeprun/internal/model"
)

// PipelineYAMLRepository loads pipeline definitions from YAML files.
type PipelineYAMLRepository struct {
	fs fs.FS
}

// NewPipelineYAMLRepository creates a new YAML pipeline repository.
func NewPipelineYAMLRepository(filesystem fs.FS) *PipelineYAMLRepository {
	return &PipelineYAMLRepository{fs: filesystem}
}

// GetPipeline loads a pipeline definition from a YAML file and returns a validated
// domain model together with the sources of the custom templates it references.
// Templates that are not builtin are read relative to the pipeline file.
func (r *PipelineYAMLRepository) GetPipeline(ctx context.Context, file string) (model.PipelineConfig, map[string]string, error) {
	data, err := fs.ReadFile(r.fs, file)
	if err != nil {
		return model.PipelineConfig{}, nil, fmt.Errorf("reading pipeline file: %w", err)
	}

	if ctx.Err() != nil {
		return model.PipelineConfig{}, nil, ctx.Err()
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.PipelineConfig{}, nil, fmt.Errorf("parsing YAML: %w", err)
	}

	pipeline := cfg.toModel()
	if err := pipeline.Validate(); err != nil {
		return model.PipelineConfig{}, nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	templates := map[string]string{}
	dir := path.Dir(file)
	for _, ph := range pipeline.Phases {
		if job.IsBuiltinTemplate(ph.Template) {
			continue
		}
		if _, ok := templates[ph.Template]; ok {
			continue
		}

		src, err := fs.ReadFile(r.fs, path.Join(dir, ph.Template))
		if err != nil {
			return model.PipelineConfig{}, nil, fmt.Errorf("reading template %q of phase %q: %w", ph.Template, ph.Name, err)
		}
		templates[ph.Template] = string(src)
	}

	return pipeline, templates, nil
}

// PipelineConfig represents the YAML structure for a pipeline definition.
type PipelineConfig struct {
	Phases []PhaseConfig `yaml:"phases"`
}

// PhaseConfig represents the YAML structure for a single phase.
type PhaseConfig struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Summary  bool   `yaml:"summary"`
	Monitor  bool   `yaml:"monitor"`
	Stream   bool   `yaml:"stream"`
}

func (c PipelineConfig) toModel() model.PipelineConfig {
	cfg := model.PipelineConfig{Phases: make([]model.PhaseConfig, 0, len(c.Phases))}
	for _, ph := range c.Phases {
		tpl := ph.Template
		// Phases named after a builtin template use it by default.
		if tpl == "" && job.IsBuiltinTemplate(ph.Name) {
			tpl = ph.Name
		}
		cfg.Phases = append(cfg.Phases, model.PhaseConfig{
			Name:     ph.Name,
			Template: tpl,
			Summary:  ph.Summary,
			Monitor:  ph.Monitor,
			Stream:   ph.Stream,
		})
	}
	return cfg
}
