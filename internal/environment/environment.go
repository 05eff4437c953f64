package environment

import (
	"bufio"
	"bytes"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
)

const (
	// CodenameEnvVar overrides the detected distribution codename.
	CodenameEnvVar = "REVDEPRUN_UBUNTU_CODENAME"

	osReleasePath = "etc/os-release"
)

// Config is the environment detection configuration.
type Config struct {
	// FS is the root filesystem the OS release file is read from, defaults to /.
	FS fs.FS
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// CPUs defaults to the runtime CPU count.
	CPUs   int
	Logger log.Logger
}

func (c *Config) defaults() {
	if c.FS == nil {
		c.FS = os.DirFS("/")
	}
	if c.Getenv == nil {
		c.Getenv = os.Getenv
	}
	if c.CPUs <= 0 {
		c.CPUs = runtime.NumCPU()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "environment.Detect"})
}

// Detect collects the host facts once. Missing distribution information is
// not an error, the related facts are left empty.
func Detect(cfg Config) model.EnvironmentFacts {
	cfg.defaults()

	facts := model.EnvironmentFacts{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		CPUs: cfg.CPUs,
	}

	data, err := fs.ReadFile(cfg.FS, osReleasePath)
	if err != nil {
		cfg.Logger.Debugf("Could not read OS release information: %s", err)
	} else {
		rel := ParseOSRelease(data)
		facts.DistroID = rel["ID"]
		facts.DistroVersion = rel["VERSION_ID"]
		facts.Codename = strings.ToLower(rel["VERSION_CODENAME"])
		if facts.Codename == "" {
			facts.Codename = strings.ToLower(rel["UBUNTU_CODENAME"])
		}
	}

	if v := strings.TrimSpace(cfg.Getenv(CodenameEnvVar)); v != "" {
		facts.Codename = strings.ToLower(v)
	}

	return facts
}

// ParseOSRelease parses an os-release file into its key values. Comments,
// empty values and malformed lines are ignored and quotes are removed.
func ParseOSRelease(data []byte) map[string]string {
	res := map[string]string{}

	s := bufio.NewScanner(bytes.NewReader(data))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.Trim(strings.TrimSpace(v), `"'`)
		if k == "" || v == "" {
			continue
		}
		res[k] = v
	}

	return res
}
