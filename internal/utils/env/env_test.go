package env_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/revdeprun/internal/utils/env"
)

func TestParseSpecs(t *testing.T) {
	t.Setenv("REVDEPRUN_ENV_TEST", "from-host")

	tests := map[string]struct {
		specs  []string
		expEnv map[string]string
		expErr bool
	}{
		"No specs should return an empty environment.": {
			specs:  nil,
			expEnv: map[string]string{},
		},

		"Key value specs should be parsed.": {
			specs:  []string{"A=1", "B=", "C=x=y"},
			expEnv: map[string]string{"A": "1", "B": "", "C": "x=y"},
		},

		"A bare key should take the value from the host environment.": {
			specs:  []string{"REVDEPRUN_ENV_TEST"},
			expEnv: map[string]string{"REVDEPRUN_ENV_TEST": "from-host"},
		},

		"Later specs should override earlier ones.": {
			specs:  []string{"A=1", "A=2"},
			expEnv: map[string]string{"A": "2"},
		},

		"An empty spec should fail.": {
			specs:  []string{""},
			expErr: true,
		},

		"An invalid key should fail.": {
			specs:  []string{"1A=x"},
			expErr: true,
		},

		"A bare key missing on the host should fail.": {
			specs:  []string{"REVDEPRUN_ENV_TEST_MISSING"},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			gotEnv, err := env.ParseSpecs(test.specs)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expEnv, gotEnv)
			}
		})
	}
}

func TestList(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(env.List(nil))
	assert.Equal([]string{"A=1", "B=", "R_LIBS=/tmp/lib"}, env.List(map[string]string{"R_LIBS": "/tmp/lib", "B": "", "A": "1"}))
}
