// Package wizard manages guided configuration sessions: a fixed sequence of
// steps over a single workflow aggregate, edited section by section until
// the aggregate is submitted to the engine.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowline-ai/flowline/internal/workflow"
)

// Step names, in wizard order.
const (
	StepChannel      = "channel"
	StepBrandTone    = "brand_tone"
	StepTraining     = "training"
	StepContext      = "context"
	StepResponse     = "response"
	StepMonitoring   = "monitoring"
	StepIntegrations = "integrations"
)

// Steps is the fixed step order. Navigation never leaves this sequence.
var Steps = []string{
	StepChannel,
	StepBrandTone,
	StepTraining,
	StepContext,
	StepResponse,
	StepMonitoring,
	StepIntegrations,
}

// Session status values.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	ErrSessionNotFound = errors.New("wizard: session not found")
	ErrSessionClosed   = errors.New("wizard: session is not active")
	ErrUnknownStep     = errors.New("wizard: unknown step")
	// ErrSubmitInFlight means another submission for the same session has
	// started and not yet finished.
	ErrSubmitInFlight = errors.New("wizard: submission already in flight")
)

// Session is one user's pass through the configuration wizard.
type Session struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"ownerId"`
	Name        string              `json:"name"`
	TriggerType string              `json:"triggerType"`
	Status      string              `json:"status"`
	Step        string              `json:"step"`
	Aggregate   *workflow.Aggregate `json:"aggregate"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	// Persisted reports whether completion actually reached the engine.
	// A session completed through the fallback path has Persisted false.
	Persisted  bool   `json:"persisted"`
	WorkflowID string `json:"workflowId,omitempty"`
}

// NewSession starts a session at the first step with a default aggregate.
func NewSession(ownerID, name, triggerType string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		TriggerType: triggerType,
		Status:      StatusActive,
		Step:        Steps[0],
		Aggregate:   workflow.DefaultAggregate(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// StepIndex returns the position of a step name, or -1 when unknown.
func StepIndex(step string) int {
	for i, s := range Steps {
		if s == step {
			return i
		}
	}
	return -1
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

func (s *Session) ensureActive() error {
	if s.Status != StatusActive {
		return fmt.Errorf("%w: status %s", ErrSessionClosed, s.Status)
	}
	return nil
}

// Next advances to the following step. At the last step it is a no-op;
// finishing the wizard happens through Submit, not Next.
func (s *Session) Next() error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	idx := StepIndex(s.Step)
	if idx < len(Steps)-1 {
		s.Step = Steps[idx+1]
	}
	s.touch()
	return nil
}

// Previous moves back one step, staying at the first step if already there.
func (s *Session) Previous() error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	if idx := StepIndex(s.Step); idx > 0 {
		s.Step = Steps[idx-1]
	}
	s.touch()
	return nil
}

// GoTo jumps directly to any named step.
func (s *Session) GoTo(step string) error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	if StepIndex(step) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	s.Step = step
	s.touch()
	return nil
}

// Cancel abandons the session. The aggregate is kept for inspection but the
// session accepts no further edits.
func (s *Session) Cancel() error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.Status = StatusCancelled
	s.touch()
	return nil
}

// Complete marks the session finished. persisted records whether the engine
// accepted the workflow or the session completed via the fallback path.
func (s *Session) Complete(workflowID string, persisted bool) error {
	if err := s.ensureActive(); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.Persisted = persisted
	s.WorkflowID = workflowID
	now := time.Now().UTC()
	s.CompletedAt = &now
	s.touch()
	return nil
}
