package processmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/process"
)

// Runner is a mock type for the process.Runner type.
type Runner struct {
	mock.Mock
}

// Run provides a mock function with given fields: ctx, cmd.
func (_m *Runner) Run(ctx context.Context, cmd process.Command) (*model.Outcome, error) {
	ret := _m.Called(ctx, cmd)

	var r0 *model.Outcome
	if rf, ok := ret.Get(0).(func(context.Context, process.Command) *model.Outcome); ok {
		r0 = rf(ctx, cmd)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Outcome)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, process.Command) error); ok {
		r1 = rf(ctx, cmd)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
