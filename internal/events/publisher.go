package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Publisher writes typed composer events into the outbox.
type Publisher struct {
	store *OutboxStore
}

func NewPublisher(store *OutboxStore) *Publisher {
	return &Publisher{store: store}
}

// WorkflowSubmitted records a successful engine persistence. Nil-safe so
// callers without an outbox configured can skip the wiring.
func (p *Publisher) WorkflowSubmitted(ctx context.Context, ownerID, sessionID, workflowID, name, triggerType string) error {
	if p == nil || p.store == nil {
		return nil
	}
	_, err := p.store.Insert(ctx, ownerID, TypeWorkflowSubmitted, WorkflowSubmittedV1{
		EventID:     uuid.NewString(),
		OwnerID:     ownerID,
		SessionID:   sessionID,
		WorkflowID:  workflowID,
		Name:        name,
		TriggerType: triggerType,
		OccurredAt:  time.Now().UTC(),
	})
	return err
}

// WorkflowSubmissionFailed records a fallback completion.
func (p *Publisher) WorkflowSubmissionFailed(ctx context.Context, ownerID, sessionID, name, reason string) error {
	if p == nil || p.store == nil {
		return nil
	}
	_, err := p.store.Insert(ctx, ownerID, TypeWorkflowSubmissionFailed, WorkflowSubmissionFailedV1{
		EventID:    uuid.NewString(),
		OwnerID:    ownerID,
		SessionID:  sessionID,
		Name:       name,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
	return err
}

// ExecutionFinished records a workflow run reaching a terminal status. The
// engine does not expose the owner, so the outbox row carries none.
func (p *Publisher) ExecutionFinished(ctx context.Context, workflowID, executionID, status string) error {
	if p == nil || p.store == nil {
		return nil
	}
	_, err := p.store.Insert(ctx, "", TypeExecutionFinished, ExecutionFinishedV1{
		EventID:     uuid.NewString(),
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Status:      status,
		OccurredAt:  time.Now().UTC(),
	})
	return err
}

// SessionCancelled records an abandoned session and the step it died on.
func (p *Publisher) SessionCancelled(ctx context.Context, ownerID, sessionID, step string) error {
	if p == nil || p.store == nil {
		return nil
	}
	_, err := p.store.Insert(ctx, ownerID, TypeSessionCancelled, SessionCancelledV1{
		EventID:    uuid.NewString(),
		OwnerID:    ownerID,
		SessionID:  sessionID,
		Step:       step,
		OccurredAt: time.Now().UTC(),
	})
	return err
}
