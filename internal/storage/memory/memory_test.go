package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/storage"
	"github.com/slok/revdeprun/internal/storage/memory"
)

var (
	_ storage.Repository      = &memory.Repository{}
	_ storage.PhaseRepository = &memory.Repository{}
)

func newRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)
	return repo
}

func TestRepositoryRuns(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := map[string]struct {
		exec   func(ctx context.Context, r *memory.Repository) error
		expRun *model.Run
		expErr error
	}{
		"Creating and getting a run should return it.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				return r.CreateRun(ctx, model.Run{ID: "run-1", Repository: "pkg", CreatedAt: base})
			},
			expRun: &model.Run{ID: "run-1", Repository: "pkg", CreatedAt: base},
		},

		"Creating a duplicated run should fail.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				_ = r.CreateRun(ctx, model.Run{ID: "run-1"})
				return r.CreateRun(ctx, model.Run{ID: "run-1"})
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating a run without ID should fail.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				return r.CreateRun(ctx, model.Run{})
			},
			expErr: model.ErrNotValid,
		},

		"Updating a run should replace it.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				_ = r.CreateRun(ctx, model.Run{ID: "run-1", Status: model.RunStatusRunning})
				return r.UpdateRun(ctx, model.Run{ID: "run-1", Status: model.RunStatusFailed, Error: "boom"})
			},
			expRun: &model.Run{ID: "run-1", Status: model.RunStatusFailed, Error: "boom"},
		},

		"Updating a missing run should fail.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				return r.UpdateRun(ctx, model.Run{ID: "run-1"})
			},
			expErr: model.ErrNotFound,
		},

		"Deleting a missing run should fail.": {
			exec: func(ctx context.Context, r *memory.Repository) error {
				return r.DeleteRun(ctx, "run-1")
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			repo := newRepo(t)
			err := test.exec(ctx, repo)
			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)

			got, err := repo.GetRun(ctx, test.expRun.ID)
			require.NoError(err)
			assert.Equal(test.expRun, got)
		})
	}
}

func TestRepositoryReturnsCopies(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	require.NoError(repo.CreateRun(ctx, model.Run{
		ID:      "run-1",
		Summary: &model.PrepareSummary{TodoCount: 1, Warnings: []string{"w1"}},
	}))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(err)
	got.Summary.Warnings[0] = "changed"
	got.Summary.TodoCount = 99

	got, err = repo.GetRun(ctx, "run-1")
	require.NoError(err)
	assert.Equal("w1", got.Summary.Warnings[0])
	assert.Equal(1, got.Summary.TodoCount)
}

func TestRepositoryListRuns(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	base := time.Now()
	require.NoError(repo.CreateRun(ctx, model.Run{ID: "b", CreatedAt: base}))
	require.NoError(repo.CreateRun(ctx, model.Run{ID: "c", CreatedAt: base.Add(time.Hour)}))
	require.NoError(repo.CreateRun(ctx, model.Run{ID: "a", CreatedAt: base}))

	runs, err := repo.ListRuns(ctx)
	require.NoError(err)

	ids := []string{}
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal([]string{"c", "b", "a"}, ids)
}

func TestRepositoryPhases(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	require.NoError(repo.CreateRun(ctx, model.Run{ID: "run-1"}))

	err := repo.AddPhases(ctx, "missing", []string{"setup"})
	assert.ErrorIs(err, model.ErrNotFound)

	require.NoError(repo.AddPhases(ctx, "run-1", []string{"setup", "prepare"}))
	require.NoError(repo.AddPhases(ctx, "run-1", []string{"run"}))

	var names []string
	for {
		next, err := repo.NextPhase(ctx, "run-1")
		require.NoError(err)
		if next == nil {
			break
		}
		names = append(names, next.Name)
		require.NoError(repo.StartPhase(ctx, next.ID))
		if next.Name == "run" {
			require.NoError(repo.FailPhase(ctx, next.ID, errors.New("boom")))
			continue
		}
		require.NoError(repo.CompletePhase(ctx, next.ID))
	}
	assert.Equal([]string{"setup", "prepare", "run"}, names)

	phases, err := repo.ListPhases(ctx, "run-1")
	require.NoError(err)
	require.Len(phases, 3)
	assert.Equal(3, phases[2].Sequence)
	assert.Equal(model.PhaseStatusFailed, phases[2].Status)
	assert.Equal("boom", phases[2].Error)

	prog, err := repo.Progress(ctx, "run-1")
	require.NoError(err)
	assert.Equal(&model.PhaseProgress{Done: 2, Total: 3}, prog)

	assert.ErrorIs(repo.StartPhase(ctx, "missing"), model.ErrNotFound)

	// Deleting the run removes its phases.
	require.NoError(repo.DeleteRun(ctx, "run-1"))
	phases, err = repo.ListPhases(ctx, "run-1")
	require.NoError(err)
	assert.Empty(phases)
}
