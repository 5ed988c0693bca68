package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peebo/peebo/internal/model"
)

const taskColumns = `
	id, remote_id, job_url, company, role, status,
	progress, current_step, error, steps, cost, output,
	started_at, finished_at
`

// SaveTask creates or replaces a task.
func (r *Repository) SaveTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote_id = excluded.remote_id,
			job_url = excluded.job_url,
			company = excluded.company,
			role = excluded.role,
			status = excluded.status,
			progress = excluded.progress,
			current_step = excluded.current_step,
			error = excluded.error,
			steps = excluded.steps,
			cost = excluded.cost,
			output = excluded.output,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.RemoteID,
		t.JobURL,
		t.Company,
		t.Role,
		t.Status,
		t.Progress,
		t.CurrentStep,
		t.Error,
		t.Steps,
		t.Cost,
		t.Output,
		t.StartedAt.Unix(),
		nullableUnix(t.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("could not save task: %w", err)
	}

	r.logger.Debugf("Saved task in repository: %s", t.ID)
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query task: %w", err)
	}

	return &t, nil
}

// ListTasks returns all tasks.
func (r *Repository) ListTasks(ctx context.Context) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY started_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("could not query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func scanTask(s scanner) (model.Task, error) {
	var t model.Task
	var startedAt int64
	var finishedAt sql.NullInt64

	err := s.Scan(
		&t.ID,
		&t.RemoteID,
		&t.JobURL,
		&t.Company,
		&t.Role,
		&t.Status,
		&t.Progress,
		&t.CurrentStep,
		&t.Error,
		&t.Steps,
		&t.Cost,
		&t.Output,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return model.Task{}, err
	}

	t.StartedAt = timeFromUnix(startedAt)
	if finishedAt.Valid {
		ft := timeFromUnix(finishedAt.Int64)
		t.FinishedAt = &ft
	}
	return t, nil
}
