package lib_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/pkg/lib"
)

var testApplicant = lib.Applicant{
	Name:       "Jane Doe",
	Email:      "jane@example.com",
	Phone:      "+1 555 0100",
	Location:   "Berlin",
	LinkedIn:   "https://linkedin.com/in/janedoe",
	ResumeText: "Go engineer.",
}

// newTestClient creates a client with a temp SQLite DB for test isolation.
func newTestClient(t *testing.T, applicant lib.Applicant) *lib.Client {
	t.Helper()

	client, err := lib.New(context.Background(), lib.Config{
		DBPath:       filepath.Join(t.TempDir(), "test.db"),
		Provider:     lib.ProviderFake,
		Applicant:    applicant,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func waitTask(t *testing.T, client *lib.Client, id string) *lib.Task {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	task, err := client.WaitTask(ctx, id)
	require.NoError(t, err)
	return task
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg    lib.Config
		expErr bool
		expIs  error
	}{
		"An in memory client with the fake provider should work.": {
			cfg: lib.Config{InMemory: true, Provider: lib.ProviderFake},
		},

		"The browser-use provider without api key should fail.": {
			cfg:    lib.Config{InMemory: true, Provider: lib.ProviderBrowserUse},
			expErr: true,
		},

		"An unknown provider should fail.": {
			cfg:    lib.Config{InMemory: true, Provider: "carrier-pigeon"},
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client, err := lib.New(context.Background(), test.cfg)

			if test.expErr {
				require.Error(t, err)
				if test.expIs != nil {
					assert.ErrorIs(t, err, test.expIs)
				}
				return
			}

			require.NoError(t, err)
			assert.NoError(t, client.Close())
		})
	}
}

func TestApply(t *testing.T) {
	tests := map[string]struct {
		applicant lib.Applicant
		opts      lib.ApplyOpts
		expErr    bool
		expIs     error
		expTask   lib.Task
	}{
		"Applying should complete the task with the company from the URL.": {
			applicant: testApplicant,
			opts:      lib.ApplyOpts{JobURL: "https://boards.greenhouse.io/acme_corp/jobs/123"},
			expTask: lib.Task{
				JobURL:   "https://boards.greenhouse.io/acme_corp/jobs/123",
				Company:  "Acme Corp",
				Role:     "Unknown Role",
				Status:   lib.TaskStatusCompleted,
				Progress: 100,
			},
		},

		"Applying with explicit company and role should use them.": {
			applicant: testApplicant,
			opts: lib.ApplyOpts{
				JobURL:  "https://jobs.lever.co/netflix/abc",
				Company: "Netflix",
				Role:    "Platform Engineer",
			},
			expTask: lib.Task{
				JobURL:   "https://jobs.lever.co/netflix/abc",
				Company:  "Netflix",
				Role:     "Platform Engineer",
				Status:   lib.TaskStatusCompleted,
				Progress: 100,
			},
		},

		"Applying without a job URL should fail.": {
			applicant: testApplicant,
			opts:      lib.ApplyOpts{},
			expErr:    true,
			expIs:     lib.ErrNotValid,
		},

		"Applying with an incomplete profile should fail.": {
			applicant: lib.Applicant{Name: "Jane Doe"},
			opts:      lib.ApplyOpts{JobURL: "https://jobs.lever.co/netflix/abc"},
			expErr:    true,
			expIs:     lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, test.applicant)

			task, err := client.Apply(context.Background(), test.opts)
			if test.expErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, test.expIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, lib.TaskStatusRunning, task.Status)

			got := waitTask(t, client, task.ID)
			assert.Equal(t, test.expTask.JobURL, got.JobURL)
			assert.Equal(t, test.expTask.Company, got.Company)
			assert.Equal(t, test.expTask.Role, got.Role)
			assert.Equal(t, test.expTask.Status, got.Status)
			assert.Equal(t, test.expTask.Progress, got.Progress)
			assert.NotNil(t, got.FinishedAt)
			assert.True(t, got.Status.IsTerminal())
		})
	}
}

func TestApplyRecordsApplication(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	client := newTestClient(t, testApplicant)

	task, err := client.Apply(ctx, lib.ApplyOpts{JobURL: "https://boards.greenhouse.io/acme_corp/jobs/123"})
	require.NoError(err)
	waitTask(t, client, task.ID)

	apps, err := client.ListApplications(ctx, nil)
	require.NoError(err)
	require.Len(apps, 1)
	assert.Equal("Acme Corp", apps[0].Company)
	assert.Equal(lib.ApplicationStatusApplied, apps[0].Status)
	assert.False(apps[0].EmailVerified)

	tasks, err := client.ListTasks(ctx, nil)
	require.NoError(err)
	require.Len(tasks, 1)
	assert.Equal(task.ID, tasks[0].ID)

	got, err := client.GetTask(ctx, task.ID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusCompleted, got.Status)
}

func TestCancelTask(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()

	client, err := lib.New(ctx, lib.Config{
		InMemory:     true,
		Provider:     lib.ProviderFake,
		Applicant:    testApplicant,
		PollInterval: time.Hour,
	})
	require.NoError(err)
	defer client.Close()

	task, err := client.Apply(ctx, lib.ApplyOpts{JobURL: "https://jobs.lever.co/netflix/abc"})
	require.NoError(err)

	// A second task can't start while the first one runs.
	running, err := client.Apply(ctx, lib.ApplyOpts{JobURL: "https://jobs.lever.co/stripe/abc"})
	assert.ErrorIs(err, lib.ErrAlreadyRunning)
	require.NotNil(running)
	assert.Equal(task.ID, running.ID)

	cancelled, err := client.CancelTask(ctx, task.ID)
	require.NoError(err)
	assert.Equal(lib.TaskStatusCancelled, cancelled.Status)

	_, err = client.CancelTask(ctx, task.ID)
	assert.ErrorIs(err, lib.ErrNotValid)
}

func TestGetTaskMissing(t *testing.T) {
	client := newTestClient(t, testApplicant)

	_, err := client.GetTask(context.Background(), "missing")
	assert.ErrorIs(t, err, lib.ErrNotFound)
}

func TestClassifyEmail(t *testing.T) {
	tests := map[string]struct {
		email   lib.Email
		expType lib.EmailType
		expComp string
	}{
		"A rejection should be classified as rejection.": {
			email: lib.Email{
				Subject:     "Your application",
				BodyPreview: "Unfortunately we decided to move forward with other candidates.",
				FromAddress: "Acme Corp Recruiting <jobs@acme.com>",
			},
			expType: lib.EmailTypeRejection,
			expComp: "Acme Corp",
		},

		"A newsletter should be unknown.": {
			email: lib.Email{
				Subject:     "Our weekly digest",
				FromAddress: "news@example.com",
			},
			expType: lib.EmailTypeUnknown,
			expComp: "Example",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, testApplicant)

			got, err := client.ClassifyEmail(context.Background(), test.email)
			require.NoError(t, err)
			assert.Equal(t, test.expType, got.Type)
			assert.Equal(t, test.expComp, got.Company)
		})
	}
}

func TestSyncEmails(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)
	ctx := context.Background()
	client := newTestClient(t, testApplicant)

	task, err := client.Apply(ctx, lib.ApplyOpts{JobURL: "https://boards.greenhouse.io/acme_corp/jobs/123"})
	require.NoError(err)
	waitTask(t, client, task.ID)

	emails := []lib.Email{
		{
			ID:          "m1",
			Subject:     "Next steps",
			BodyPreview: "We would like to invite you to interview.",
			FromAddress: "Acme Corp Recruiting <jobs@acme.com>",
			ReceivedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "m2",
			Subject:     "Thanks for applying to Globex",
			BodyPreview: "We have received your application.",
			FromAddress: "Globex Careers <no-reply@globex.com>",
			ReceivedAt:  time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
		},
	}

	results, err := client.SyncEmails(ctx, emails, &lib.SyncEmailsOpts{AddUnmatched: true})
	require.NoError(err)
	require.Len(results, 2)
	assert.Equal(lib.EmailActionUpdated, results[0].Action)
	assert.Equal(lib.ApplicationStatusInterviewing, results[0].Status)
	assert.Equal(lib.EmailActionAdded, results[1].Action)
	assert.Equal(lib.ApplicationStatusApplied, results[1].Status)

	// Synced emails are skipped the next time.
	results, err = client.SyncEmails(ctx, emails, nil)
	require.NoError(err)
	require.Len(results, 2)
	assert.Equal(lib.EmailActionSkipped, results[0].Action)
	assert.Equal(lib.EmailActionSkipped, results[1].Action)

	status := lib.ApplicationStatusInterviewing
	apps, err := client.ListApplications(ctx, &lib.ListApplicationsOpts{Status: &status})
	require.NoError(err)
	require.Len(apps, 1)
	assert.Equal("Acme Corp", apps[0].Company)
	assert.True(apps[0].EmailVerified)
}

func TestLoadApplicant(t *testing.T) {
	tests := map[string]struct {
		content string
		exp     lib.Applicant
		expErr  bool
		expIs   error
	}{
		"A complete profile should load.": {
			content: `
personal:
  name: Jane Doe
  email: jane@example.com
  phone: "+1 555 0100"
  location: Berlin
  linkedin: https://linkedin.com/in/janedoe
resume:
  text: Go engineer.
work_authorization:
  requires_sponsorship: true
`,
			exp: lib.Applicant{
				Name:                "Jane Doe",
				Email:               "jane@example.com",
				Phone:               "+1 555 0100",
				Location:            "Berlin",
				LinkedIn:            "https://linkedin.com/in/janedoe",
				ResumeText:          "Go engineer.",
				RequiresSponsorship: true,
			},
		},

		"A profile without email should fail.": {
			content: `
personal:
  name: Jane Doe
`,
			expErr: true,
			expIs:  lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "applicant.yaml")
			require.NoError(t, os.WriteFile(path, []byte(test.content), 0o644))

			got, err := lib.LoadApplicant(context.Background(), path)

			if test.expErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, test.expIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.exp, got)
		})
	}
}
