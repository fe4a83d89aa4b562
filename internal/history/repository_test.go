package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFillsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectExec("INSERT INTO submission_history").
		WithArgs(sqlmock.AnyArg(), "s1", "42", "", "Lead Follow-up", OutcomeRejected,
			pq.Array([]string{"response.fallbackMessage"}), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &Entry{
		SessionID:     "s1",
		OwnerID:       "42",
		Name:          "Lead Follow-up",
		Outcome:       OutcomeRejected,
		MissingFields: []string{"response.fallbackMessage"},
	}
	require.NoError(t, repo.Record(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "session_id", "owner_id", "workflow_id", "name", "outcome", "missing_fields", "error", "created_at",
	}).
		AddRow("h2", "s1", "42", "wf-1", "Lead Follow-up", OutcomePersisted, pq.Array([]string{}), "", now).
		AddRow("h1", "s1", "42", "", "Lead Follow-up", OutcomeFallback, pq.Array([]string{}), "dial tcp: refused", now.Add(-time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM submission_history WHERE session_id").
		WithArgs("s1").
		WillReturnRows(rows)

	entries, err := repo.ListBySession(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, OutcomePersisted, entries[0].Outcome)
	assert.Equal(t, "wf-1", entries[0].WorkflowID)
	assert.Equal(t, "dial tcp: refused", entries[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerDefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM submission_history WHERE owner_id").
		WithArgs("42", 50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "owner_id", "workflow_id", "name", "outcome", "missing_fields", "error", "created_at",
		}))

	entries, err := repo.ListByOwner(context.Background(), "42", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
