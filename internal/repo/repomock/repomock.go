package repomock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/revdeprun/internal/model"
)

// Fetcher is a mock type for the repo.Fetcher type.
type Fetcher struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, locator, dst.
func (_m *Fetcher) Fetch(ctx context.Context, locator string, dst string) (*model.Outcome, error) {
	ret := _m.Called(ctx, locator, dst)

	var r0 *model.Outcome
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *model.Outcome); ok {
		r0 = rf(ctx, locator, dst)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Outcome)
	}

	return r0, ret.Error(1)
}

// Extractor is a mock type for the repo.Extractor type.
type Extractor struct {
	mock.Mock
}

// Extract provides a mock function with given fields: ctx, archive, dst.
func (_m *Extractor) Extract(ctx context.Context, archive string, dst string) (*model.Outcome, error) {
	ret := _m.Called(ctx, archive, dst)

	var r0 *model.Outcome
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *model.Outcome); ok {
		r0 = rf(ctx, archive, dst)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Outcome)
	}

	return r0, ret.Error(1)
}
