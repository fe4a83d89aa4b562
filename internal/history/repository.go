// Package history records every submission attempt for audit and support:
// what was submitted, whether it persisted, and what validation rejected.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Outcome values for a submission attempt.
const (
	OutcomePersisted = "persisted"
	OutcomeFallback  = "fallback"
	OutcomeRejected  = "rejected"
)

// Entry is one submission attempt.
type Entry struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	OwnerID       string    `json:"ownerId"`
	WorkflowID    string    `json:"workflowId,omitempty"`
	Name          string    `json:"name"`
	Outcome       string    `json:"outcome"`
	MissingFields []string  `json:"missingFields,omitempty"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Repository persists submission history in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts one attempt, filling ID and CreatedAt when unset.
func (r *Repository) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_history (id, session_id, owner_id, workflow_id, name, outcome, missing_fields, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.SessionID, e.OwnerID, e.WorkflowID, e.Name, e.Outcome,
		pq.Array(e.MissingFields), e.Error, e.CreatedAt)
	return err
}

// ListBySession returns the attempts for one session, newest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	return r.list(ctx, `
		SELECT id, session_id, owner_id, workflow_id, name, outcome, missing_fields, error, created_at
		FROM submission_history WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
}

// ListByOwner returns the attempts for one owner, newest first, capped at limit.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.list(ctx, `
		SELECT id, session_id, owner_id, workflow_id, name, outcome, missing_fields, error, created_at
		FROM submission_history WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`, ownerID, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.OwnerID, &e.WorkflowID, &e.Name,
			&e.Outcome, pq.Array(&e.MissingFields), &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
