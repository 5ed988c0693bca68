package printer_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/printer"
)

func taskFixture() model.Task {
	started := time.Date(2026, 1, 30, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	finished := started.Add(5 * time.Minute)
	return model.Task{
		ID:          "01JTASK",
		RemoteID:    "remote-1",
		JobURL:      "https://jobs.ashbyhq.com/acme/123",
		Company:     "Acme",
		Role:        "Backend Engineer",
		Status:      model.TaskStatusCompleted,
		Progress:    100,
		CurrentStep: "Application submitted",
		Steps:       12,
		Cost:        0.34,
		StartedAt:   started,
		FinishedAt:  &finished,
	}
}

func TestTablePrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintTask(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Company:    Acme")
	assert.Contains(t, out, "Progress:   100%")
	assert.Contains(t, out, "Cost:       $0.34")
	assert.Contains(t, out, "Started:    2026-01-30 09:00:00 UTC")
	assert.NotContains(t, out, "Error:")
}

func TestJSONPrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	err := p.PrintTask(taskFixture())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"task_id": "01JTASK"`)
	assert.Contains(t, out, `"progress": 100`)
	assert.Contains(t, out, `"started_at": "2026-01-30T09:00:00Z"`)
	assert.NotContains(t, out, `"error"`)
}

func TestPrintApplications(t *testing.T) {
	apps := []model.Application{
		{
			ID:            "a1",
			Company:       "Acme",
			Role:          "Engineer",
			Status:        model.ApplicationStatusInterviewing,
			EmailVerified: true,
			Notes:         "secret notes",
			AppliedAt:     time.Now().Add(-2 * time.Hour),
		},
	}

	tests := map[string]struct {
		newPrinter func(*bytes.Buffer) printer.Printer
		expContain []string
	}{
		"Table output should show one row per application.": {
			newPrinter: func(b *bytes.Buffer) printer.Printer { return printer.NewTablePrinter(b) },
			expContain: []string{"COMPANY", "Acme", "interviewing", "yes", "2 hours ago (UTC)"},
		},
		"JSON output should show the application summary.": {
			newPrinter: func(b *bytes.Buffer) printer.Printer { return printer.NewJSONPrinter(b) },
			expContain: []string{`"company": "Acme"`, `"email_verified": true`},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := test.newPrinter(&buf).PrintApplications(apps)
			require.NoError(t, err)

			for _, exp := range test.expContain {
				assert.Contains(t, buf.String(), exp)
			}
			assert.NotContains(t, buf.String(), "secret notes")
		})
	}
}

func TestTablePrinterEmptyListsPrintNothing(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintApplications(nil))
	require.NoError(t, p.PrintTasks(nil))
	require.NoError(t, p.PrintSyncResults(nil))
	assert.Empty(t, buf.String())
}

func TestJSONPrinterEmptyListsPrintArrays(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintSyncResults(nil))

	var got []model.EmailSyncResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTablePrinterPrintSyncResults(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintSyncResults([]model.EmailSyncResult{
		{EmailID: "e1", Action: model.EmailActionSkipped},
		{
			EmailID:        "e2",
			Classification: model.Classification{Type: model.EmailTypeInterview, Confidence: 0.7},
			Company:        "Acme",
			ApplicationID:  "a1",
			Status:         "interviewing",
			Action:         model.EmailActionUpdated,
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"e1", "-", "-", "-", "-", "skipped"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"e2", "interview", "Acme", "a1", "interviewing", "updated"}, strings.Fields(lines[2]))
}

func TestPrintClassification(t *testing.T) {
	c := model.Classification{Type: model.EmailTypeRejection, Confidence: 0.6}

	var table bytes.Buffer
	require.NoError(t, printer.NewTablePrinter(&table).PrintClassification(c, "Acme"))
	assert.Contains(t, table.String(), "Type:        rejection")
	assert.Contains(t, table.String(), "Confidence:  0.60")

	var js bytes.Buffer
	require.NoError(t, printer.NewJSONPrinter(&js).PrintClassification(c, ""))
	assert.JSONEq(t, `{"type": "rejection", "confidence": 0.6}`, js.String())
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}
