package storage

import (
	"context"
	"time"

	"github.com/peebo/peebo/internal/model"
)

// ApplicationRepository is the interface for application record persistence.
// Records are never deleted.
type ApplicationRepository interface {
	CreateApplication(ctx context.Context, a model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	// GetApplicationByJob returns the application of a company (case
	// insensitive) and job URL.
	GetApplicationByJob(ctx context.Context, company, jobURL string) (*model.Application, error)
	// ListApplications returns applications, most recently applied first.
	ListApplications(ctx context.Context) ([]model.Application, error)
	UpdateApplication(ctx context.Context, a model.Application) error
}

// TaskRepository is the interface for finished task history.
type TaskRepository interface {
	// SaveTask creates or replaces a task.
	SaveTask(ctx context.Context, t model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// ListTasks returns tasks, most recently started first.
	ListTasks(ctx context.Context) ([]model.Task, error)
}

// ProcessedEmailRepository tracks the emails already folded into applications.
type ProcessedEmailRepository interface {
	// MarkEmailProcessed records an email id, marking an already recorded one is not an error.
	MarkEmailProcessed(ctx context.Context, id string, at time.Time) error
	IsEmailProcessed(ctx context.Context, id string) (bool, error)
}

// Repository is the whole persistence layer.
type Repository interface {
	ApplicationRepository
	TaskRepository
	ProcessedEmailRepository
}
