package doctor_test

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/app/doctor"
	"github.com/slok/revdeprun/internal/model"
)

func lookPath(found ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, f := range found {
			if f == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", exec.ErrNotFound
	}
}

func TestServiceCheck(t *testing.T) {
	ubuntu := model.EnvironmentFacts{OS: "linux", Arch: "amd64", DistroID: "ubuntu", DistroVersion: "24.04", Codename: "noble"}

	tests := map[string]struct {
		env         model.EnvironmentFacts
		interpreter string
		lookPath    func(string) (string, error)
		expStatus   map[string]model.CheckStatus
		expErrors   bool
	}{
		"A complete Ubuntu host should pass every check.": {
			env:      ubuntu,
			lookPath: lookPath("Rscript", "git", "tar", "unzip"),
			expStatus: map[string]model.CheckStatus{
				"os_supported":       model.CheckStatusOK,
				"distro_codename":    model.CheckStatusOK,
				"interpreter_binary": model.CheckStatusOK,
				"git_binary":         model.CheckStatusOK,
				"tar_binary":         model.CheckStatusOK,
				"unzip_binary":       model.CheckStatusOK,
			},
		},

		"Missing optional tools should only warn.": {
			env:      ubuntu,
			lookPath: lookPath("Rscript"),
			expStatus: map[string]model.CheckStatus{
				"interpreter_binary": model.CheckStatusOK,
				"git_binary":         model.CheckStatusWarning,
				"tar_binary":         model.CheckStatusWarning,
				"unzip_binary":       model.CheckStatusWarning,
			},
		},

		"A missing interpreter should fail.": {
			env:         ubuntu,
			interpreter: "R-devel",
			lookPath:    lookPath("Rscript", "git", "tar", "unzip"),
			expStatus: map[string]model.CheckStatus{
				"interpreter_binary": model.CheckStatusError,
			},
			expErrors: true,
		},

		"Other distributions without codename should warn.": {
			env:      model.EnvironmentFacts{OS: "linux", DistroID: "fedora"},
			lookPath: lookPath("Rscript", "git", "tar", "unzip"),
			expStatus: map[string]model.CheckStatus{
				"os_supported":    model.CheckStatusWarning,
				"distro_codename": model.CheckStatusWarning,
			},
		},

		"Non Linux hosts should fail.": {
			env:      model.EnvironmentFacts{OS: "darwin"},
			lookPath: lookPath("Rscript", "git", "tar", "unzip"),
			expStatus: map[string]model.CheckStatus{
				"os_supported": model.CheckStatusError,
			},
			expErrors: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			svc, err := doctor.NewService(doctor.ServiceConfig{
				Interpreter: test.interpreter,
				Environment: test.env,
				LookPath:    test.lookPath,
			})
			require.NoError(err)

			results := svc.Check(context.Background())
			require.Len(results, 6)

			got := map[string]model.CheckStatus{}
			for _, r := range results {
				got[r.ID] = r.Status
				assert.NotEmpty(r.Message)
			}
			for id, exp := range test.expStatus {
				assert.Equal(exp, got[id], id)
			}
			assert.Equal(test.expErrors, model.HasErrors(results))
		})
	}
}
