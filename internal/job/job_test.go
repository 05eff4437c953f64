package job_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/job"
	"github.com/slok/revdeprun/internal/model"
)

var noble = model.EnvironmentFacts{OS: "linux", Arch: "amd64", DistroID: "ubuntu", Codename: "noble", CPUs: 8}

func TestNewBuilder(t *testing.T) {
	tests := map[string]struct {
		cfg    job.BuilderConfig
		expErr error
	}{
		"An empty config should use the default pipeline.": {
			cfg: job.BuilderConfig{},
		},
		"Unknown templates should fail.": {
			cfg: job.BuilderConfig{Pipeline: model.PipelineConfig{Phases: []model.PhaseConfig{
				{Name: "check", Template: "missing"},
			}}},
			expErr: model.ErrNotFound,
		},
		"Invalid pipelines should fail.": {
			cfg: job.BuilderConfig{Pipeline: model.PipelineConfig{Phases: []model.PhaseConfig{
				{Name: "check", Template: "run"},
				{Name: "check", Template: "run"},
			}}},
			expErr: model.ErrNotValid,
		},
		"Custom templates should be parsed.": {
			cfg: job.BuilderConfig{
				Pipeline:  model.PipelineConfig{Phases: []model.PhaseConfig{{Name: "check", Template: "custom.R.tmpl"}}},
				Templates: map[string]string{"custom.R.tmpl": `cat({{rstring .RepoPath}})`},
			},
		},
		"Broken custom templates should fail.": {
			cfg: job.BuilderConfig{
				Pipeline:  model.PipelineConfig{Phases: []model.PhaseConfig{{Name: "check", Template: "custom.R.tmpl"}}},
				Templates: map[string]string{"custom.R.tmpl": `{{ .RepoPath `},
			},
			expErr: errors.New("any"),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := job.NewBuilder(test.cfg)
			switch {
			case test.expErr == nil:
				assert.NoError(t, err)
			case errors.Is(test.expErr, model.ErrNotFound) || errors.Is(test.expErr, model.ErrNotValid):
				assert.ErrorIs(t, err, test.expErr)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	tests := map[string]struct {
		phase       string
		repoPath    string
		workers     int
		env         model.EnvironmentFacts
		expContains []string
		expMissing  []string
	}{
		"The setup phase should install the toolchain.": {
			phase:    "setup",
			repoPath: "/tmp/example",
			workers:  8,
			env:      noble,
			expContains: []string{
				`setwd('/tmp/example')`,
				`ensure_installed("pak")`,
				`ensure_installed("xfun")`,
				`binary_repo <- 'https://packagemanager.posit.co/cran/__linux__/noble/latest'`,
				`install_workers <- 8L`,
				`connection_limit <- 16L`,
			},
		},
		"The prepare phase should emit the summary.": {
			phase:    "prepare",
			repoPath: "/tmp/example",
			workers:  4,
			env:      noble,
			expContains: []string{
				`pak::pkg_install`,
				`paste0("any::", revdeps)`,
				`"\"todo_count\":"`,
				`cache_src_dir <- 'revdep/cache/src'`,
				`cache_bin_dir <- 'revdep/cache/bin'`,
				`library_dir <- 'revdep/library'`,
			},
		},
		"The run phase should invoke the reverse dependency check.": {
			phase:    "run",
			repoPath: "/tmp/example",
			workers:  2,
			env:      noble,
			expContains: []string{
				`xfun::rev_check(package_name, src = ".")`,
				`options(mc.cores = install_workers)`,
			},
		},
		"Workers should be clamped to at least one.": {
			phase:       "run",
			repoPath:    "/tmp/example",
			workers:     -3,
			env:         noble,
			expContains: []string{`install_workers <- 1L`, `connection_limit <- 2L`},
		},
		"Connections should be capped.": {
			phase:       "run",
			repoPath:    "/tmp/example",
			workers:     100,
			env:         noble,
			expContains: []string{`install_workers <- 100L`, `connection_limit <- 64L`},
		},
		"Without codename the source repository should be used for binaries.": {
			phase:       "setup",
			repoPath:    "/tmp/example",
			workers:     1,
			env:         model.EnvironmentFacts{OS: "linux"},
			expContains: []string{`binary_repo <- source_repo`},
			expMissing:  []string{`__linux__`},
		},
		"Repository paths should be escaped.": {
			phase:       "run",
			repoPath:    `/tmp/it's a \trap`,
			workers:     1,
			env:         noble,
			expContains: []string{`setwd('/tmp/it\'s a \\trap')`},
			expMissing:  []string{`setwd('/tmp/it's`},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			b, err := job.NewBuilder(job.BuilderConfig{})
			require.NoError(err)

			desc, err := b.Build(test.phase, test.repoPath, test.workers, test.env)
			require.NoError(err)

			assert.Equal(test.phase, desc.Phase)
			assert.Equal(test.repoPath, desc.WorkingDir)
			for _, exp := range test.expContains {
				assert.Contains(desc.Payload, exp)
			}
			for _, exp := range test.expMissing {
				assert.NotContains(desc.Payload, exp)
			}
			assert.NotContains(desc.Payload, "<no value>")
		})
	}
}

func TestBuilderBuildIsDeterministic(t *testing.T) {
	b, err := job.NewBuilder(job.BuilderConfig{})
	require.NoError(t, err)

	d1, err := b.Build("prepare", "/tmp/example", 4, noble)
	require.NoError(t, err)
	d2, err := b.Build("prepare", "/tmp/example", 4, noble)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
}

func TestBuilderBuildUnknownPhase(t *testing.T) {
	b, err := job.NewBuilder(job.BuilderConfig{})
	require.NoError(t, err)

	_, err = b.Build("missing", "/tmp/example", 1, noble)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestBuilderCustomTemplateUsesPrelude(t *testing.T) {
	require := require.New(t)

	b, err := job.NewBuilder(job.BuilderConfig{
		Pipeline: model.PipelineConfig{Phases: []model.PhaseConfig{{Name: "check", Template: "check.R.tmpl"}}},
		Templates: map[string]string{
			"check.R.tmpl": "{{template \"prelude\" .}}\ncat({{rstring .Env.Codename}}, {{.Workers}})\n",
		},
	})
	require.NoError(err)

	desc, err := b.Build("check", "/tmp/example", 3, noble)
	require.NoError(err)
	assert.True(t, strings.HasPrefix(desc.Payload, "# revdeprun check phase."))
	assert.Contains(t, desc.Payload, "cat('noble', 3)")
}

func TestConnectionLimit(t *testing.T) {
	tests := map[int]int{-1: 1, 0: 1, 1: 2, 8: 16, 32: 64, 33: 64, 1000: 64}
	for workers, exp := range tests {
		assert.Equal(t, exp, job.ConnectionLimit(workers), "workers %d", workers)
	}
}

func TestBinaryRepoURL(t *testing.T) {
	assert.Equal(t, "https://packagemanager.posit.co/cran/__linux__/jammy/latest", job.BinaryRepoURL(model.EnvironmentFacts{OS: "linux", Codename: "jammy"}))
	assert.Equal(t, "", job.BinaryRepoURL(model.EnvironmentFacts{OS: "linux"}))
	assert.Equal(t, "", job.BinaryRepoURL(model.EnvironmentFacts{OS: "darwin", Codename: "sonoma"}))
}
