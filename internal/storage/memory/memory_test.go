package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage/memory"
)

func appFixture(id, company, jobURL string, appliedAt time.Time) model.Application {
	return model.Application{
		ID:        id,
		Company:   company,
		Role:      "Engineer",
		JobURL:    jobURL,
		Status:    model.ApplicationStatusApplied,
		AppliedAt: appliedAt,
		UpdatedAt: appliedAt,
	}
}

func TestRepositoryApplications(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := map[string]struct {
		actions func(ctx context.Context, t *testing.T, repo *memory.Repository) error
		expErr  error
	}{
		"Creating an application should work": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateApplication(ctx, appFixture("a1", "Acme", "https://jobs.example.com/acme/1", t0))
				require.NoError(t, err)

				got, err := repo.GetApplication(ctx, "a1")
				require.NoError(t, err)
				assert.Equal(t, "Acme", got.Company)
				return nil
			},
		},

		"Creating an application for the same company and job should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateApplication(ctx, appFixture("a1", "Acme", "https://jobs.example.com/acme/1", t0))
				require.NoError(t, err)

				return repo.CreateApplication(ctx, appFixture("a2", "ACME", "https://jobs.example.com/acme/1", t0))
			},
			expErr: model.ErrAlreadyExists,
		},

		"Creating an invalid application should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.CreateApplication(ctx, model.Application{ID: "a1"})
			},
			expErr: model.ErrNotValid,
		},

		"Getting by job should ignore company case": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				err := repo.CreateApplication(ctx, appFixture("a1", "Acme", "https://jobs.example.com/acme/1", t0))
				require.NoError(t, err)

				got, err := repo.GetApplicationByJob(ctx, "acme", "https://jobs.example.com/acme/1")
				require.NoError(t, err)
				assert.Equal(t, "a1", got.ID)
				return nil
			},
		},

		"Getting by an unknown job should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				_, err := repo.GetApplicationByJob(ctx, "acme", "https://jobs.example.com/acme/1")
				return err
			},
			expErr: model.ErrNotFound,
		},

		"Listing should return the most recent applications first": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				require.NoError(t, repo.CreateApplication(ctx, appFixture("a1", "Acme", "https://a/1", t0)))
				require.NoError(t, repo.CreateApplication(ctx, appFixture("a2", "Globex", "https://g/1", t0.Add(time.Hour))))

				apps, err := repo.ListApplications(ctx)
				require.NoError(t, err)
				require.Len(t, apps, 2)
				assert.Equal(t, "a2", apps[0].ID)
				assert.Equal(t, "a1", apps[1].ID)
				return nil
			},
		},

		"Updating a missing application should fail": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				return repo.UpdateApplication(ctx, appFixture("a1", "Acme", "https://a/1", t0))
			},
			expErr: model.ErrNotFound,
		},

		"Updating an application should store the new state": {
			actions: func(ctx context.Context, t *testing.T, repo *memory.Repository) error {
				a := appFixture("a1", "Acme", "https://a/1", t0)
				require.NoError(t, repo.CreateApplication(ctx, a))

				a.Status = model.ApplicationStatusInterviewing
				a.EmailVerified = true
				require.NoError(t, repo.UpdateApplication(ctx, a))

				got, err := repo.GetApplication(ctx, "a1")
				require.NoError(t, err)
				assert.Equal(t, model.ApplicationStatusInterviewing, got.Status)
				assert.True(t, got.EmailVerified)
				return nil
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: log.Noop})
			require.NoError(t, err)

			err = test.actions(context.Background(), t, repo)
			if test.expErr != nil {
				assert.True(t, errors.Is(err, test.expErr), "expected %v, got %v", test.expErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRepositoryTasks(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task := model.Task{ID: "t1", JobURL: "https://a/1", Status: model.TaskStatusRunning, StartedAt: t0}
	require.NoError(t, repo.SaveTask(ctx, task))

	task.Status = model.TaskStatusCompleted
	task.Progress = 100
	require.NoError(t, repo.SaveTask(ctx, task))
	require.NoError(t, repo.SaveTask(ctx, model.Task{ID: "t2", JobURL: "https://a/2", Status: model.TaskStatusFailed, StartedAt: t0.Add(time.Minute)}))

	got, err := repo.GetTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)

	tasks, err := repo.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "t2", tasks[0].ID)

	_, err = repo.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = repo.SaveTask(ctx, model.Task{ID: "t3"})
	assert.ErrorIs(t, err, model.ErrNotValid)
}

func TestRepositoryProcessedEmails(t *testing.T) {
	ctx := context.Background()
	repo, err := memory.NewRepository(memory.RepositoryConfig{})
	require.NoError(t, err)

	ok, err := repo.IsEmailProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.MarkEmailProcessed(ctx, "m1", time.Now()))
	require.NoError(t, repo.MarkEmailProcessed(ctx, "m1", time.Now()))

	ok, err = repo.IsEmailProcessed(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, repo.MarkEmailProcessed(ctx, "", time.Now()), model.ErrNotValid)
}
