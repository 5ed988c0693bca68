package printer

import "github.com/peebo/peebo/internal/model"

// Printer knows how to print peebo information in different formats.
type Printer interface {
	PrintApplications(apps []model.Application) error
	PrintTasks(tasks []model.Task) error
	PrintTask(task model.Task) error
	PrintClassification(c model.Classification, company string) error
	PrintSyncResults(results []model.EmailSyncResult) error
	PrintMessage(msg string) error
}
