package apply_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/app/apply"
	"github.com/peebo/peebo/internal/model"
)

func TestCompanyFromURL(t *testing.T) {
	tests := map[string]struct {
		url string
		exp string
	}{
		"Ashby URLs should use the first path segment.": {
			url: "https://jobs.ashbyhq.com/open-ai/4f9c",
			exp: "Open Ai",
		},
		"Greenhouse URLs should use the first path segment.": {
			url: "https://boards.greenhouse.io/acme_corp/jobs/123",
			exp: "Acme Corp",
		},
		"Lever URLs should use the first path segment.": {
			url: "https://jobs.lever.co/NETFLIX/abc",
			exp: "Netflix",
		},
		"An ATS URL without path should fall back to the host.": {
			url: "https://jobs.lever.co/",
			exp: "Lever",
		},
		"Generic hosts should strip known prefixes.": {
			url: "https://jobs.example.com/co/123",
			exp: "Example",
		},
		"Stacked prefixes should all be stripped.": {
			url: "https://www.careers.big-corp.io/apply",
			exp: "Big Corp",
		},
		"Workday hosts should use the tenant.": {
			url: "https://acme.wd5.myworkdayjobs.com/en-US/External/job/1",
			exp: "Acme",
		},
		"Invalid URLs should be unknown.": {
			url: "not a url",
			exp: "Unknown Company",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, apply.CompanyFromURL(test.url))
		})
	}
}

func TestEstimateProgress(t *testing.T) {
	tests := map[string]struct {
		prev   int
		polls  int
		steps  int
		budget int
		exp    int
	}{
		"Steps should be measured against the budget.": {
			prev: 5, polls: 1, steps: 3, budget: 25, exp: 20,
		},
		"Steps over the budget should cap below done.": {
			prev: 5, polls: 1, steps: 60, budget: 25, exp: 95,
		},
		"Unknown steps should use the poll count.": {
			prev: 5, polls: 1, steps: -1, budget: 25, exp: 14,
		},
		"Many polls without steps should approach 90.": {
			prev: 5, polls: 200, steps: 0, budget: 25, exp: 90,
		},
		"A lower estimate should keep the previous progress.": {
			prev: 60, polls: 2, steps: 2, budget: 25, exp: 60,
		},
		"Previous progress at done should still be below done while running.": {
			prev: 100, polls: 2, steps: 2, budget: 25, exp: 99,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, apply.EstimateProgress(test.prev, test.polls, test.steps, test.budget))
		})
	}
}

func TestRoleFromHTML(t *testing.T) {
	tests := map[string]struct {
		html   string
		exp    string
		expErr bool
	}{
		"og:title should be preferred.": {
			html: `<html><head><title>Careers | Acme</title><meta property="og:title" content="Senior Go Engineer - Acme"></head></html>`,
			exp:  "Senior Go Engineer",
		},
		"The title should be used when there is no og:title.": {
			html: `<html><head><title>Platform Engineer @ Acme</title></head></html>`,
			exp:  "Platform Engineer",
		},
		"Too short candidates should be skipped.": {
			html: `<html><head><meta property="og:title" content="QA | Acme"><title>Backend Developer | Acme</title></head></html>`,
			exp:  "Backend Developer",
		},
		"The first heading should be used when the titles are generic.": {
			html: `<html><head><title>Careers | Acme</title></head><body><h1>  Site <em>Reliability</em> Engineer </h1><h1>Benefits</h1></body></html>`,
			exp:  "Site Reliability Engineer",
		},
		"Pages with only generic titles should fail.": {
			html:   `<html><head><title>Jobs</title></head><body><h1>Careers</h1></body></html>`,
			expErr: true,
		},
		"Pages without titles should fail.": {
			html:   `<html><body><p>hello</p></body></html>`,
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := apply.RoleFromHTML(strings.NewReader(test.html))

			if test.expErr {
				assert.Error(t, err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, test.exp, got)
			}
		})
	}
}

func TestRenderInstructions(t *testing.T) {
	a := testApplicant()
	a.ResumePath = "/tmp/resume.pdf"
	a.BackgroundSummary = "Ten years building distributed systems."
	a.KeyAchievements = []string{"Led the payments migration"}
	a.AuthorizedToWorkUS = true

	got, err := apply.RenderInstructions(jobURL, a)
	require.NoError(t, err)

	for _, exp := range []string{
		"Apply to the job posting at " + jobURL,
		"- Name: Jane Doe",
		"- LinkedIn: https://linkedin.com/in/janedoe",
		"Upload this file for the resume: /tmp/resume.pdf",
		"Ten years building distributed systems.",
		"- Led the payments migration",
		"- Legally authorized to work in the US: Yes",
		"- Requires visa sponsorship now or in the future: No",
	} {
		assert.Contains(t, got, exp)
	}
}

func TestTaskRegistry(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r := apply.NewTaskRegistry()
	cancelled := false
	require.NoError(r.Insert(model.Task{ID: "t1", JobURL: jobURL, Status: model.TaskStatusRunning, Progress: 30}, func() { cancelled = true }))
	assert.ErrorIs(r.Insert(model.Task{ID: "t1", Status: model.TaskStatusRunning}, nil), model.ErrAlreadyExists)
	assert.ErrorIs(r.Insert(model.Task{ID: "t2", Status: model.TaskStatusFailed}, nil), model.ErrNotValid)

	// Updates can't regress progress nor change the status.
	got, ok := r.Update("t1", func(t *model.Task) {
		t.Progress = 10
		t.Status = model.TaskStatusCompleted
		t.CurrentStep = "Filling"
	})
	require.True(ok)
	assert.Equal(30, got.Progress)
	assert.Equal(model.TaskStatusRunning, got.Status)
	assert.Equal("Filling", got.CurrentStep)

	// Only the first terminal transition wins.
	got, ok = r.Finish("t1", model.TaskStatusCancelled, nil)
	require.True(ok)
	assert.Equal(model.TaskStatusCancelled, got.Status)
	assert.True(cancelled)
	_, ok = r.Finish("t1", model.TaskStatusCompleted, nil)
	assert.False(ok)
	_, ok = r.Update("t1", func(t *model.Task) { t.Progress = 90 })
	assert.False(ok)

	_, ok = r.Running()
	assert.False(ok)

	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Evict("t1")
	}()
	awaited, found, err := r.Await(t.Context(), "t1")
	require.NoError(err)
	assert.True(found)
	assert.Equal(model.TaskStatusCancelled, awaited.Status)

	_, ok = r.Get("t1")
	assert.False(ok)
	_, found, err = r.Await(t.Context(), "t1")
	assert.NoError(err)
	assert.False(found)
}
