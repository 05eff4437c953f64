package doctor

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/slok/revdeprun/internal/environment"
	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/phase"
)

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	// Interpreter is the binary the phases are run with.
	Interpreter string
	Environment model.EnvironmentFacts
	// LookPath finds binaries, defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Interpreter == "" {
		c.Interpreter = phase.DefaultInterpreter
	}
	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})
	return nil
}

// Service runs the preflight checks of the host.
type Service struct {
	interpreter string
	env         model.EnvironmentFacts
	lookPath    func(file string) (string, error)
	logger      log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		interpreter: cfg.Interpreter,
		env:         cfg.Environment,
		lookPath:    cfg.LookPath,
		logger:      cfg.Logger,
	}, nil
}

// Check performs the preflight checks.
func (s *Service) Check(ctx context.Context) []model.CheckResult {
	results := []model.CheckResult{
		s.checkOS(),
		s.checkCodename(),
		s.checkBinary("interpreter_binary", s.interpreter, model.CheckStatusError, "phases can't run"),
		s.checkBinary("git_binary", "git", model.CheckStatusWarning, "remote repositories can't be cloned"),
		s.checkBinary("tar_binary", "tar", model.CheckStatusWarning, "tarballs can't be extracted"),
		s.checkBinary("unzip_binary", "unzip", model.CheckStatusWarning, "zip archives can't be extracted"),
	}

	ok, warnings, errors := model.CountByStatus(results)
	s.logger.Debugf("Checks finished: %d ok, %d warnings, %d errors", ok, warnings, errors)

	return results
}

func (s *Service) checkOS() model.CheckResult {
	if s.env.OS != "linux" {
		return model.CheckResult{
			ID:      "os_supported",
			Message: fmt.Sprintf("%s is not supported, only Linux hosts are", s.env.OS),
			Status:  model.CheckStatusError,
		}
	}

	if s.env.DistroID != "ubuntu" {
		distro := s.env.DistroID
		if distro == "" {
			distro = "unknown distribution"
		}
		return model.CheckResult{
			ID:      "os_supported",
			Message: fmt.Sprintf("%s is not Ubuntu, package installation may fail", distro),
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{
		ID:      "os_supported",
		Message: fmt.Sprintf("Ubuntu %s (%s)", s.env.DistroVersion, s.env.Arch),
		Status:  model.CheckStatusOK,
	}
}

func (s *Service) checkCodename() model.CheckResult {
	if s.env.Codename == "" {
		return model.CheckResult{
			ID:      "distro_codename",
			Message: fmt.Sprintf("Codename unknown, binary packages disabled (set %s)", environment.CodenameEnvVar),
			Status:  model.CheckStatusWarning,
		}
	}

	return model.CheckResult{
		ID:      "distro_codename",
		Message: fmt.Sprintf("Binary packages for %s", s.env.Codename),
		Status:  model.CheckStatusOK,
	}
}

func (s *Service) checkBinary(id, bin string, missing model.CheckStatus, consequence string) model.CheckResult {
	path, err := s.lookPath(bin)
	if err != nil {
		return model.CheckResult{
			ID:      id,
			Message: fmt.Sprintf("%s not found in PATH, %s", bin, consequence),
			Status:  missing,
		}
	}

	return model.CheckResult{
		ID:      id,
		Message: fmt.Sprintf("%s found at %s", bin, path),
		Status:  model.CheckStatusOK,
	}
}
