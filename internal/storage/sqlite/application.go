package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peebo/peebo/internal/model"
)

const applicationColumns = `
	id, company, role, job_url, status,
	applied_at, email_verified, notes,
	browser_use_task_id, cost, updated_at
`

// CreateApplication creates a new application in the repository.
func (r *Repository) CreateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	query := `INSERT INTO applications (` + applicationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.Company,
		a.Role,
		a.JobURL,
		a.Status,
		a.AppliedAt.Unix(),
		a.EmailVerified,
		a.Notes,
		a.Metadata.BrowserUseTaskID,
		a.Metadata.Cost,
		a.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("application %s (%s %s): %w", a.ID, a.Company, a.JobURL, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not insert application: %w", err)
	}

	r.logger.Debugf("Created application in repository: %s", a.ID)
	return nil
}

// GetApplication retrieves an application by ID.
func (r *Repository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = ?`

	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query application: %w", err)
	}

	return &a, nil
}

// GetApplicationByJob retrieves an application by company and job URL.
func (r *Repository) GetApplicationByJob(ctx context.Context, company, jobURL string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE lower(company) = lower(?) AND job_url = ?`

	a, err := scanApplication(r.db.QueryRowContext(ctx, query, company, jobURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application for %s %s: %w", company, jobURL, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query application: %w", err)
	}

	return &a, nil
}

// ListApplications returns all applications.
func (r *Repository) ListApplications(ctx context.Context) ([]model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications ORDER BY applied_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query applications: %w", err)
	}
	defer rows.Close()

	var apps []model.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		apps = append(apps, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return apps, nil
}

// UpdateApplication updates an existing application.
func (r *Repository) UpdateApplication(ctx context.Context, a model.Application) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid application: %w", err)
	}

	query := `
		UPDATE applications
		SET
			company = ?,
			role = ?,
			job_url = ?,
			status = ?,
			applied_at = ?,
			email_verified = ?,
			notes = ?,
			browser_use_task_id = ?,
			cost = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		a.Company,
		a.Role,
		a.JobURL,
		a.Status,
		a.AppliedAt.Unix(),
		a.EmailVerified,
		a.Notes,
		a.Metadata.BrowserUseTaskID,
		a.Metadata.Cost,
		a.UpdatedAt.Unix(),
		a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("application %s (%s %s): %w", a.ID, a.Company, a.JobURL, model.ErrAlreadyExists)
		}
		return fmt.Errorf("could not update application: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("application %s: %w", a.ID, model.ErrNotFound)
	}

	r.logger.Debugf("Updated application in repository: %s", a.ID)
	return nil
}

func scanApplication(s scanner) (model.Application, error) {
	var a model.Application
	var appliedAt, updatedAt int64

	err := s.Scan(
		&a.ID,
		&a.Company,
		&a.Role,
		&a.JobURL,
		&a.Status,
		&appliedAt,
		&a.EmailVerified,
		&a.Notes,
		&a.Metadata.BrowserUseTaskID,
		&a.Metadata.Cost,
		&updatedAt,
	)
	if err != nil {
		return model.Application{}, err
	}

	a.AppliedAt = timeFromUnix(appliedAt)
	a.UpdatedAt = timeFromUnix(updatedAt)
	return a, nil
}
