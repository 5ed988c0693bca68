package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/peebo/peebo/internal/model"
)

// MarkEmailProcessed records a processed email.
func (r *Repository) MarkEmailProcessed(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("email id is required: %w", model.ErrNotValid)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO processed_emails (id, processed_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`, id, at.Unix())
	if err != nil {
		return fmt.Errorf("could not mark email: %w", err)
	}

	return nil
}

// IsEmailProcessed returns true if the email was already processed.
func (r *Repository) IsEmailProcessed(ctx context.Context, id string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_emails WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("could not query processed email: %w", err)
	}
	return n > 0, nil
}
