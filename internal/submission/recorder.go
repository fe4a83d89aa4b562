// Package submission fans completed and rejected submissions out to the
// audit surfaces: Postgres history, the event outbox, the S3 archive, and
// owner notifications. Everything here is best-effort; a dead sink never
// fails the submission that triggered it.
package submission

import (
	"context"

	"github.com/flowline-ai/flowline/internal/archive"
	"github.com/flowline-ai/flowline/internal/events"
	"github.com/flowline-ai/flowline/internal/history"
	"github.com/flowline-ai/flowline/internal/notify"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// RecorderConfig holds the optional audit surfaces. Any nil field is skipped.
type RecorderConfig struct {
	History *history.Repository
	Events  *events.Publisher
	Archive *archive.Store
	Notify  *notify.Service
	// OwnerEmail resolves an owner ID to a notification address. Nil, or an
	// empty result, skips email notifications.
	OwnerEmail func(ownerID string) string
	Logger     *logging.Logger
}

// Recorder implements wizard.SubmissionSink.
type Recorder struct {
	cfg    RecorderConfig
	logger *logging.Logger
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Recorder{cfg: cfg, logger: logger}
}

// SubmissionCompleted records one submit attempt across every configured
// surface. Validation rejections only hit history and the outbox; completed
// sessions are also archived and the owner notified.
func (r *Recorder) SubmissionCompleted(ctx context.Context, session *wizard.Session, missing []string, errText string) {
	outcome := outcomeFor(session, missing)

	if r.cfg.History != nil {
		err := r.cfg.History.Record(ctx, &history.Entry{
			SessionID:     session.ID,
			OwnerID:       session.OwnerID,
			WorkflowID:    session.WorkflowID,
			Name:          session.Name,
			Outcome:       outcome,
			MissingFields: missing,
			Error:         errText,
		})
		if err != nil {
			r.logger.Error("failed to record submission history", "error", err, "session_id", session.ID)
		}
	}

	switch outcome {
	case history.OutcomePersisted:
		if err := r.cfg.Events.WorkflowSubmitted(ctx, session.OwnerID, session.ID, session.WorkflowID, session.Name, session.TriggerType); err != nil {
			r.logger.Error("failed to publish submission event", "error", err, "session_id", session.ID)
		}
	case history.OutcomeFallback:
		if err := r.cfg.Events.WorkflowSubmissionFailed(ctx, session.OwnerID, session.ID, session.Name, errText); err != nil {
			r.logger.Error("failed to publish submission event", "error", err, "session_id", session.ID)
		}
	case history.OutcomeRejected:
		if err := r.cfg.Events.WorkflowSubmissionFailed(ctx, session.OwnerID, session.ID, session.Name, "validation failed"); err != nil {
			r.logger.Error("failed to publish submission event", "error", err, "session_id", session.ID)
		}
	}

	if outcome == history.OutcomeRejected {
		return
	}

	if r.cfg.Archive.Enabled() {
		err := r.cfg.Archive.ArchiveSnapshot(ctx, &archive.SnapshotRecord{
			SessionID:  session.ID,
			OwnerID:    session.OwnerID,
			WorkflowID: session.WorkflowID,
			Name:       session.Name,
			Persisted:  session.Persisted,
			Aggregate:  session.Aggregate,
		})
		if err != nil {
			r.logger.Error("failed to archive submission snapshot", "error", err, "session_id", session.ID)
		}
	}

	if r.cfg.Notify != nil && r.cfg.OwnerEmail != nil {
		if email := r.cfg.OwnerEmail(session.OwnerID); email != "" {
			if err := r.cfg.Notify.NotifySubmitted(ctx, email, session.Name, session.Persisted); err != nil {
				r.logger.Error("failed to send submission notice", "error", err, "session_id", session.ID)
			}
		}
	}
}

// SessionCancelled publishes the cancellation event.
func (r *Recorder) SessionCancelled(ctx context.Context, session *wizard.Session) {
	if err := r.cfg.Events.SessionCancelled(ctx, session.OwnerID, session.ID, session.Step); err != nil {
		r.logger.Error("failed to publish cancellation event", "error", err, "session_id", session.ID)
	}
}

func outcomeFor(session *wizard.Session, missing []string) string {
	if len(missing) > 0 {
		return history.OutcomeRejected
	}
	if session.Persisted {
		return history.OutcomePersisted
	}
	return history.OutcomeFallback
}

var _ wizard.SubmissionSink = (*Recorder)(nil)
