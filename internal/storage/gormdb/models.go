package gormdb

import (
	"strings"
	"time"

	"github.com/peebo/peebo/internal/model"
)

type applicationRecord struct {
	ID               string `gorm:"primaryKey"`
	Company          string `gorm:"not null"`
	CompanyKey       string `gorm:"not null;uniqueIndex:idx_applications_job"`
	Role             string
	JobURL           string `gorm:"not null;uniqueIndex:idx_applications_job"`
	Status           string `gorm:"not null;default:'applied'"`
	AppliedAt        time.Time
	EmailVerified    bool
	Notes            string `gorm:"type:text"`
	BrowserUseTaskID string
	Cost             float64
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
}

func (applicationRecord) TableName() string { return "applications" }

func toApplicationRecord(a model.Application) applicationRecord {
	return applicationRecord{
		ID:               a.ID,
		Company:          a.Company,
		CompanyKey:       strings.ToLower(a.Company),
		Role:             a.Role,
		JobURL:           a.JobURL,
		Status:           string(a.Status),
		AppliedAt:        a.AppliedAt,
		EmailVerified:    a.EmailVerified,
		Notes:            a.Notes,
		BrowserUseTaskID: a.Metadata.BrowserUseTaskID,
		Cost:             a.Metadata.Cost,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (r applicationRecord) model() model.Application {
	return model.Application{
		ID:            r.ID,
		Company:       r.Company,
		Role:          r.Role,
		JobURL:        r.JobURL,
		Status:        model.ApplicationStatus(r.Status),
		AppliedAt:     r.AppliedAt.UTC(),
		EmailVerified: r.EmailVerified,
		Notes:         r.Notes,
		Metadata: model.ApplicationMetadata{
			BrowserUseTaskID: r.BrowserUseTaskID,
			Cost:             r.Cost,
		},
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type taskRecord struct {
	ID          string `gorm:"primaryKey"`
	RemoteID    string
	JobURL      string `gorm:"not null"`
	Company     string
	Role        string
	Status      string `gorm:"not null;index"`
	Progress    int
	CurrentStep string
	Error       string `gorm:"type:text"`
	Steps       int
	Cost        float64
	Output      string    `gorm:"type:text"`
	StartedAt   time.Time `gorm:"index"`
	FinishedAt  *time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func toTaskRecord(t model.Task) taskRecord {
	return taskRecord{
		ID:          t.ID,
		RemoteID:    t.RemoteID,
		JobURL:      t.JobURL,
		Company:     t.Company,
		Role:        t.Role,
		Status:      string(t.Status),
		Progress:    t.Progress,
		CurrentStep: t.CurrentStep,
		Error:       t.Error,
		Steps:       t.Steps,
		Cost:        t.Cost,
		Output:      t.Output,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
	}
}

func (r taskRecord) model() model.Task {
	t := model.Task{
		ID:          r.ID,
		RemoteID:    r.RemoteID,
		JobURL:      r.JobURL,
		Company:     r.Company,
		Role:        r.Role,
		Status:      model.TaskStatus(r.Status),
		Progress:    r.Progress,
		CurrentStep: r.CurrentStep,
		Error:       r.Error,
		Steps:       r.Steps,
		Cost:        r.Cost,
		Output:      r.Output,
		StartedAt:   r.StartedAt.UTC(),
	}
	if r.FinishedAt != nil {
		ft := r.FinishedAt.UTC()
		t.FinishedAt = &ft
	}
	return t
}

type processedEmail struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (processedEmail) TableName() string { return "processed_emails" }
