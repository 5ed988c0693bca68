package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/peebo/peebo/internal/model"
)

// JSONPrinter prints peebo information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// applicationItem is an application in the list output, without notes.
type applicationItem struct {
	ID            string    `json:"id"`
	Company       string    `json:"company"`
	Role          string    `json:"role"`
	JobURL        string    `json:"job_url"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	AppliedAt     time.Time `json:"applied_at"`
}

type classificationOutput struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Company    string  `json:"company,omitempty"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintApplications prints applications in JSON format with a subset of fields.
func (j *JSONPrinter) PrintApplications(apps []model.Application) error {
	items := make([]applicationItem, len(apps))
	for i, a := range apps {
		items[i] = applicationItem{
			ID:            a.ID,
			Company:       a.Company,
			Role:          a.Role,
			JobURL:        a.JobURL,
			Status:        string(a.Status),
			EmailVerified: a.EmailVerified,
			AppliedAt:     a.AppliedAt.UTC(),
		}
	}

	return j.encode(items)
}

// PrintTasks prints tasks in JSON format.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	return j.encode(tasks)
}

// PrintTask prints the full task in JSON format.
func (j *JSONPrinter) PrintTask(task model.Task) error {
	task.StartedAt = task.StartedAt.UTC()
	if task.FinishedAt != nil {
		utc := task.FinishedAt.UTC()
		task.FinishedAt = &utc
	}
	return j.encode(task)
}

// PrintClassification prints an email classification in JSON format.
func (j *JSONPrinter) PrintClassification(c model.Classification, company string) error {
	return j.encode(classificationOutput{
		Type:       string(c.Type),
		Confidence: c.Confidence,
		Company:    company,
	})
}

// PrintSyncResults prints email sync results in JSON format.
func (j *JSONPrinter) PrintSyncResults(results []model.EmailSyncResult) error {
	if results == nil {
		results = []model.EmailSyncResult{}
	}
	return j.encode(results)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}
