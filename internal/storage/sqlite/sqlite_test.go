package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/revdeprun/internal/log"
	"github.com/slok/revdeprun/internal/model"
	"github.com/slok/revdeprun/internal/storage"
	"github.com/slok/revdeprun/internal/storage/sqlite"
)

var _ storage.Repository = &sqlite.Repository{}

func runFixture(id string, createdAt time.Time) model.Run {
	return model.Run{
		ID:         id,
		Repository: "https://github.com/org/pkg.git",
		Workers:    4,
		Status:     model.RunStatusRunning,
		CreatedAt:  createdAt.Truncate(time.Second).UTC(),
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "nested", "test.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryRunCRUD(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	now := time.Now()
	run := runFixture("01RUN", now)

	require.NoError(repo.CreateRun(ctx, run))
	err := repo.CreateRun(ctx, run)
	assert.ErrorIs(err, model.ErrAlreadyExists)

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(err)
	assert.Equal(run, *got)

	finished := now.Add(time.Minute).Truncate(time.Second).UTC()
	run.Status = model.RunStatusSucceeded
	run.RepositoryPath = "/work/pkg"
	run.FinishedAt = &finished
	run.Summary = &model.PrepareSummary{TodoCount: 3, PrecacheFailed: []string{"a"}, Warnings: []string{}}
	require.NoError(repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(err)
	assert.Equal(run, *got)

	require.NoError(repo.DeleteRun(ctx, run.ID))
	_, err = repo.GetRun(ctx, run.ID)
	assert.ErrorIs(err, model.ErrNotFound)
}

func TestRepositoryRunErrors(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	tests := map[string]struct {
		exec   func() error
		expErr error
	}{
		"Getting a missing run should fail.": {
			exec:   func() error { _, err := repo.GetRun(ctx, "missing"); return err },
			expErr: model.ErrNotFound,
		},
		"Updating a missing run should fail.": {
			exec:   func() error { return repo.UpdateRun(ctx, runFixture("missing", time.Now())) },
			expErr: model.ErrNotFound,
		},
		"Deleting a missing run should fail.": {
			exec:   func() error { return repo.DeleteRun(ctx, "missing") },
			expErr: model.ErrNotFound,
		},
		"Creating a run without ID should fail.": {
			exec:   func() error { return repo.CreateRun(ctx, model.Run{}) },
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, test.exec(), test.expErr)
		})
	}
}

func TestRepositoryListRuns(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	repo := newRepo(t)
	runs, err := repo.ListRuns(ctx)
	require.NoError(err)
	assert.Empty(runs)

	base := time.Now()
	require.NoError(repo.CreateRun(ctx, runFixture("run-1", base.Add(-2*time.Hour))))
	require.NoError(repo.CreateRun(ctx, runFixture("run-3", base)))
	require.NoError(repo.CreateRun(ctx, runFixture("run-2", base.Add(-time.Hour))))

	runs, err = repo.ListRuns(ctx)
	require.NoError(err)
	require.Len(runs, 3)
	assert.Equal("run-3", runs[0].ID)
	assert.Equal("run-2", runs[1].ID)
	assert.Equal("run-1", runs[2].ID)
}
