package model_test

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/revdeprun/internal/model"
)

func TestOutcomeErr(t *testing.T) {
	tests := map[string]struct {
		outcome    model.Outcome
		expErr     bool
		expErrMsg  string
		expSuccess bool
	}{
		"A successful outcome should not return an error.": {
			outcome:    model.Outcome{Status: model.OutcomeStatusSuccess},
			expSuccess: true,
		},

		"A non zero exit should return an error with the status.": {
			outcome:   model.Outcome{Status: model.OutcomeStatusExitStatus, ExitCode: 3},
			expErr:    true,
			expErrMsg: "process exited with status 3",
		},

		"A launch failure should return the wrapped OS error.": {
			outcome:   model.Outcome{Status: model.OutcomeStatusLaunchFailure, LaunchErr: os.ErrPermission},
			expErr:    true,
			expErrMsg: "process failed to launch: permission denied",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := test.outcome.Err()

			assert.Equal(test.expSuccess, test.outcome.Success())
			if test.expErr {
				assert.EqualError(err, test.expErrMsg)
			} else {
				assert.NoError(err)
			}
		})
	}

	err := model.Outcome{Status: model.OutcomeStatusLaunchFailure, LaunchErr: os.ErrPermission}.Err()
	assert.True(t, errors.Is(err, os.ErrPermission))
}
