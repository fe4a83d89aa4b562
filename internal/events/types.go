package events

import "time"

// Event type names, versioned so downstream consumers can evolve safely.
const (
	TypeWorkflowSubmitted        = "workflow.submitted.v1"
	TypeWorkflowSubmissionFailed = "workflow.submission_failed.v1"
	TypeSessionCancelled         = "session.cancelled.v1"
	TypeExecutionFinished        = "workflow.execution.finished.v1"
)

type WorkflowSubmittedV1 struct {
	EventID     string    `json:"event_id"`
	OwnerID     string    `json:"owner_id"`
	SessionID   string    `json:"session_id"`
	WorkflowID  string    `json:"workflow_id"`
	Name        string    `json:"name"`
	TriggerType string    `json:"trigger_type"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type WorkflowSubmissionFailedV1 struct {
	EventID    string    `json:"event_id"`
	OwnerID    string    `json:"owner_id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ExecutionFinishedV1 struct {
	EventID     string    `json:"event_id"`
	WorkflowID  string    `json:"workflow_id"`
	ExecutionID string    `json:"execution_id"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type SessionCancelledV1 struct {
	EventID    string    `json:"event_id"`
	OwnerID    string    `json:"owner_id"`
	SessionID  string    `json:"session_id"`
	Step       string    `json:"step"`
	OccurredAt time.Time `json:"occurred_at"`
}
