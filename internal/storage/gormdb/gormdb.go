// Package gormdb is a gorm based repository, used with Postgres hosted
// application trackers.
package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/storage"
)

// Postgres returns the dialector for a Postgres DSN.
func Postgres(dsn string) gorm.Dialector { return postgres.Open(dsn) }

// RepositoryConfig is the configuration for the gorm repository.
type RepositoryConfig struct {
	Dialector gorm.Dialector
	Logger    log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Dialector == nil {
		return fmt.Errorf("dialector is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Gorm"})
	return nil
}

// Repository is a gorm implementation of storage.Repository.
type Repository struct {
	db     *gorm.DB
	logger log.Logger
}

var _ storage.Repository = &Repository{}

// NewRepository opens the database and migrates the schema.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := gorm.Open(cfg.Dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&applicationRecord{}, &taskRecord{}, &processedEmail{}); err != nil {
		return nil, fmt.Errorf("could not migrate schema: %w", err)
	}

	cfg.Logger.Debugf("Gorm repository initialized (%s)", cfg.Dialector.Name())

	return &Repository{db: db, logger: cfg.Logger}, nil
}

// Close closes the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateApplication creates a new application in the repository.
func (r *Repository) CreateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	rec := toApplicationRecord(a)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("application %s (%s %s): %w", a.ID, a.Company, a.JobURL, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert application: %w", err)
	}

	r.logger.Debugf("Created application in repository: %s", a.ID)
	return nil
}

// GetApplication retrieves an application by ID.
func (r *Repository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	var rec applicationRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query application: %w", err)
	}

	a := rec.model()
	return &a, nil
}

// GetApplicationByJob retrieves an application by company and job URL.
func (r *Repository) GetApplicationByJob(ctx context.Context, company, jobURL string) (*model.Application, error) {
	var rec applicationRecord
	err := r.db.WithContext(ctx).
		Where("company_key = ? AND job_url = ?", strings.ToLower(company), jobURL).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("application for %s %s: %w", company, jobURL, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query application: %w", err)
	}

	a := rec.model()
	return &a, nil
}

// ListApplications returns all applications.
func (r *Repository) ListApplications(ctx context.Context) ([]model.Application, error) {
	var recs []applicationRecord
	if err := r.db.WithContext(ctx).Order("applied_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("could not query applications: %w", err)
	}

	apps := make([]model.Application, 0, len(recs))
	for _, rec := range recs {
		apps = append(apps, rec.model())
	}
	return apps, nil
}

// UpdateApplication updates an existing application.
func (r *Repository) UpdateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	rec := toApplicationRecord(a)
	// Select("*") so zero values (email_verified=false, empty notes) are written too.
	res := r.db.WithContext(ctx).Model(&applicationRecord{}).Where("id = ?", a.ID).Select("*").Updates(&rec)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("application %s (%s %s): %w", a.ID, a.Company, a.JobURL, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not update application: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("application %s: %w", a.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated application in repository: %s", a.ID)
	return nil
}

// SaveTask creates or replaces a task.
func (r *Repository) SaveTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	rec := toTaskRecord(t)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("could not save task: %w", err)
	}

	r.logger.Debugf("Saved task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var rec taskRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	t := rec.model()
	return &t, nil
}

// ListTasks returns all tasks.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	var recs []taskRecord
	if err := r.db.WithContext(ctx).Order("started_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, rec.model())
	}
	return tasks, nil
}

// MarkEmailProcessed records a processed email.
func (r *Repository) MarkEmailProcessed(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("email id is required: %w", model.ErrNotValid)
	}

	rec := processedEmail{ID: id, CreatedAt: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("could not mark email: %w", err)
	}
	return nil
}

// IsEmailProcessed returns true if the email was already processed.
func (r *Repository) IsEmailProcessed(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&processedEmail{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("could not query processed email: %w", err)
	}
	return n > 0, nil
}
