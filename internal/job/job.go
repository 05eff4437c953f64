package job

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/slok/revdeprun/internal/conventions"
	"github.com/slok/revdeprun/internal/model"
)

const (
	// MaxConnections is the upper bound of concurrent download connections.
	MaxConnections = 64

	sourceRepoURL       = "https://packagemanager.posit.co/cran/latest"
	binaryRepoURLFmt    = "https://packagemanager.posit.co/cran/__linux__/%s/latest"
	bioconductorRepoURL = "https://packagemanager.posit.co/bioconductor"
)

// Builtin template names.
const (
	TemplateSetup   = "setup"
	TemplatePrepare = "prepare"
	TemplateRun     = "run"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// IsBuiltinTemplate returns true if the template name is one of the embedded templates.
func IsBuiltinTemplate(name string) bool {
	switch name {
	case TemplateSetup, TemplatePrepare, TemplateRun:
		return true
	}
	return false
}

// DefaultPipeline returns the builtin three phase pipeline.
func DefaultPipeline() model.PipelineConfig {
	return model.PipelineConfig{
		Phases: []model.PhaseConfig{
			{Name: "setup", Template: TemplateSetup},
			{Name: "prepare", Template: TemplatePrepare, Summary: true, Monitor: true},
			{Name: "run", Template: TemplateRun, Stream: true},
		},
	}
}

// BuilderConfig is the configuration of the job descriptor builder.
type BuilderConfig struct {
	Pipeline model.PipelineConfig
	// Templates are custom template sources indexed by the name the phases
	// reference them with. They take precedence over the builtin ones.
	Templates map[string]string
}

func (c *BuilderConfig) defaults() error {
	if len(c.Pipeline.Phases) == 0 {
		c.Pipeline = DefaultPipeline()
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	return nil
}

// Builder renders the job payload of each pipeline phase.
type Builder struct {
	templates map[string]*template.Template
}

// NewBuilder parses every phase template of the pipeline.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	base, err := template.New("base").
		Funcs(template.FuncMap{"rstring": Escape}).
		Option("missingkey=error").
		ParseFS(builtinTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("could not parse builtin templates: %w", err)
	}

	tpls := map[string]*template.Template{}
	for _, ph := range cfg.Pipeline.Phases {
		src, ok := cfg.Templates[ph.Template]
		if !ok {
			t := base.Lookup(ph.Template + ".R.tmpl")
			if t == nil {
				return nil, fmt.Errorf("phase %q: unknown template %q: %w", ph.Name, ph.Template, model.ErrNotFound)
			}
			tpls[ph.Name] = t
			continue
		}

		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("could not clone base templates: %w", err)
		}
		t, err = t.New(ph.Template).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("phase %q: could not parse template %q: %w", ph.Name, ph.Template, err)
		}
		tpls[ph.Name] = t
	}

	return &Builder{templates: tpls}, nil
}

type templateData struct {
	Phase            string
	RepoPath         string
	Workers          int
	Connections      int
	ManifestFile     string
	ResultsDir       string
	LibraryDir       string
	CacheDir         string
	CacheSourceDir   string
	CacheBinaryDir   string
	SourceRepo       string
	BinaryRepo       string
	BioconductorRepo string
	Env              model.EnvironmentFacts
}

// Build renders the job descriptor of a phase. It doesn't do any I/O.
func (b *Builder) Build(phase, repoPath string, workers int, env model.EnvironmentFacts) (*model.JobDescriptor, error) {
	t, ok := b.templates[phase]
	if !ok {
		return nil, fmt.Errorf("unknown phase %q: %w", phase, model.ErrNotFound)
	}

	workers = max(workers, 1)
	data := templateData{
		Phase:            phase,
		RepoPath:         repoPath,
		Workers:          workers,
		Connections:      ConnectionLimit(workers),
		ManifestFile:     conventions.ManifestFile,
		ResultsDir:       conventions.ResultsDir,
		LibraryDir:       filepath.Join(conventions.ResultsDir, conventions.LibraryDir),
		CacheDir:         filepath.Join(conventions.ResultsDir, conventions.CacheDir),
		CacheSourceDir:   filepath.Join(conventions.ResultsDir, conventions.CacheDir, conventions.CacheSourceDir),
		CacheBinaryDir:   filepath.Join(conventions.ResultsDir, conventions.CacheDir, conventions.CacheBinaryDir),
		SourceRepo:       sourceRepoURL,
		BinaryRepo:       BinaryRepoURL(env),
		BioconductorRepo: bioconductorRepoURL,
		Env:              env,
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("could not render phase %q: %w", phase, err)
	}

	return &model.JobDescriptor{
		Phase:      phase,
		Payload:    buf.String(),
		WorkingDir: repoPath,
	}, nil
}

// ConnectionLimit returns the concurrent download connections for a number of workers.
func ConnectionLimit(workers int) int {
	return max(min(workers*2, MaxConnections), 1)
}

// BinaryRepoURL returns the Linux binary package repository for the host, empty
// when the distribution codename is unknown.
func BinaryRepoURL(env model.EnvironmentFacts) string {
	if env.Codename == "" || (env.OS != "" && env.OS != "linux") {
		return ""
	}
	return fmt.Sprintf(binaryRepoURLFmt, env.Codename)
}
