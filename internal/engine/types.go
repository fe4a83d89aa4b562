package engine

import (
	"encoding/json"
	"time"
)

// ExecutionStatus is the engine's lifecycle state for a workflow run. The
// composer renders these opaquely and never interprets them beyond display.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusRetrying  ExecutionStatus = "retrying"
)

// SubmitRequest is the persistence payload for a workflow configuration.
// The assembled aggregate travels under Actions; identity and trigger
// metadata stay at the top level.
type SubmitRequest struct {
	Name        string          `json:"name"`
	TriggerType string          `json:"triggerType"`
	OwnerID     int             `json:"ownerId"`
	Actions     json.RawMessage `json:"actions"`
}

// WorkflowRecord is a persisted workflow as returned by the engine.
type WorkflowRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	TriggerType string          `json:"triggerType"`
	OwnerID     int             `json:"ownerId"`
	Actions     json.RawMessage `json:"actions"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StepStatus is the per-step sub-status inside an execution.
type StepStatus struct {
	Name        string          `json:"name"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Execution is one run of a workflow, polled for display only.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflowId"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Steps       []StepStatus    `json:"steps,omitempty"`
}
