// Package env parses the environment variables forwarded to the phase processes.
package env

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

var envKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ParseSpecs parses `KEY=VALUE` specs. A bare `KEY` takes its value from the
// current process environment and fails if it is not set.
func ParseSpecs(specs []string) (map[string]string, error) {
	env := make(map[string]string, len(specs))

	for _, spec := range specs {
		if spec == "" {
			return nil, fmt.Errorf("environment variable spec cannot be empty")
		}

		if key, value, ok := strings.Cut(spec, "="); ok {
			if !isValidKey(key) {
				return nil, fmt.Errorf("invalid environment variable key %q", key)
			}

			env[key] = value
			continue
		}

		if !isValidKey(spec) {
			return nil, fmt.Errorf("invalid environment variable key %q", spec)
		}

		value, ok := os.LookupEnv(spec)
		if !ok {
			return nil, fmt.Errorf("environment variable %q is not set", spec)
		}

		env[spec] = value
	}

	return env, nil
}

// List returns the variables as `KEY=VALUE` entries sorted by key.
func List(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, k+"="+env[k])
	}

	return list
}

func isValidKey(k string) bool {
	return envKeyRegexp.MatchString(k)
}
