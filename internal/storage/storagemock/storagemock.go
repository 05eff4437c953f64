package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/revdeprun/internal/model"
)

// MockRepository is a mock type for the storage.Repository type.
type MockRepository struct {
	mock.Mock
}

// CreateRun provides a mock function with given fields: ctx, r.
func (_m *MockRepository) CreateRun(ctx context.Context, r model.Run) error {
	ret := _m.Called(ctx, r)
	return ret.Error(0)
}

// GetRun provides a mock function with given fields: ctx, id.
func (_m *MockRepository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Run)
	}
	return r0, ret.Error(1)
}

// ListRuns provides a mock function with given fields: ctx.
func (_m *MockRepository) ListRuns(ctx context.Context) ([]model.Run, error) {
	ret := _m.Called(ctx)

	var r0 []model.Run
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Run)
	}
	return r0, ret.Error(1)
}

// UpdateRun provides a mock function with given fields: ctx, r.
func (_m *MockRepository) UpdateRun(ctx context.Context, r model.Run) error {
	ret := _m.Called(ctx, r)
	return ret.Error(0)
}

// DeleteRun provides a mock function with given fields: ctx, id.
func (_m *MockRepository) DeleteRun(ctx context.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// MockPhaseRepository is a mock type for the storage.PhaseRepository type.
type MockPhaseRepository struct {
	mock.Mock
}

// AddPhases provides a mock function with given fields: ctx, runID, names.
func (_m *MockPhaseRepository) AddPhases(ctx context.Context, runID string, names []string) error {
	ret := _m.Called(ctx, runID, names)
	return ret.Error(0)
}

// NextPhase provides a mock function with given fields: ctx, runID.
func (_m *MockPhaseRepository) NextPhase(ctx context.Context, runID string) (*model.PhaseRecord, error) {
	ret := _m.Called(ctx, runID)

	var r0 *model.PhaseRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.PhaseRecord)
	}
	return r0, ret.Error(1)
}

// StartPhase provides a mock function with given fields: ctx, phaseID.
func (_m *MockPhaseRepository) StartPhase(ctx context.Context, phaseID string) error {
	ret := _m.Called(ctx, phaseID)
	return ret.Error(0)
}

// CompletePhase provides a mock function with given fields: ctx, phaseID.
func (_m *MockPhaseRepository) CompletePhase(ctx context.Context, phaseID string) error {
	ret := _m.Called(ctx, phaseID)
	return ret.Error(0)
}

// FailPhase provides a mock function with given fields: ctx, phaseID, err.
func (_m *MockPhaseRepository) FailPhase(ctx context.Context, phaseID string, err error) error {
	ret := _m.Called(ctx, phaseID, err)
	return ret.Error(0)
}

// ListPhases provides a mock function with given fields: ctx, runID.
func (_m *MockPhaseRepository) ListPhases(ctx context.Context, runID string) ([]model.PhaseRecord, error) {
	ret := _m.Called(ctx, runID)

	var r0 []model.PhaseRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.PhaseRecord)
	}
	return r0, ret.Error(1)
}

// Progress provides a mock function with given fields: ctx, runID.
func (_m *MockPhaseRepository) Progress(ctx context.Context, runID string) (*model.PhaseProgress, error) {
	ret := _m.Called(ctx, runID)

	var r0 *model.PhaseProgress
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.PhaseProgress)
	}
	return r0, ret.Error(1)
}
