package wizard

import (
	"errors"
	"testing"
)

func TestNewSessionStartsAtFirstStep(t *testing.T) {
	s := NewSession("42", "Lead Follow-up", "inbound_sms")
	if s.Step != StepChannel {
		t.Errorf("step = %s, want %s", s.Step, StepChannel)
	}
	if s.Status != StatusActive {
		t.Errorf("status = %s, want active", s.Status)
	}
	if s.ID == "" {
		t.Error("expected generated session id")
	}
	if s.Aggregate == nil || s.Aggregate.Response.CharacterLimit == 0 {
		t.Error("expected default aggregate")
	}
}

func TestNextWalksTheFixedOrder(t *testing.T) {
	s := NewSession("42", "", "")
	for i := 1; i < len(Steps); i++ {
		if err := s.Next(); err != nil {
			t.Fatalf("next from %s: %v", Steps[i-1], err)
		}
		if s.Step != Steps[i] {
			t.Fatalf("after %d nexts step = %s, want %s", i, s.Step, Steps[i])
		}
	}
	// Already at the last step; Next stays put.
	if err := s.Next(); err != nil {
		t.Fatalf("next at last step: %v", err)
	}
	if s.Step != StepIntegrations {
		t.Errorf("step = %s, want %s", s.Step, StepIntegrations)
	}
}

func TestPreviousStopsAtFirstStep(t *testing.T) {
	s := NewSession("42", "", "")
	if err := s.Previous(); err != nil {
		t.Fatalf("previous: %v", err)
	}
	if s.Step != StepChannel {
		t.Errorf("step = %s, want %s", s.Step, StepChannel)
	}
}

func TestGoTo(t *testing.T) {
	s := NewSession("42", "", "")
	if err := s.GoTo(StepResponse); err != nil {
		t.Fatalf("goto: %v", err)
	}
	if s.Step != StepResponse {
		t.Errorf("step = %s, want %s", s.Step, StepResponse)
	}
	if err := s.GoTo("nope"); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("expected ErrUnknownStep, got %v", err)
	}
}

func TestClosedSessionRejectsEdits(t *testing.T) {
	s := NewSession("42", "", "")
	if err := s.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := s.Next(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("next on cancelled session: %v, want ErrSessionClosed", err)
	}
	if err := s.Complete("wf-1", true); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("complete on cancelled session: %v, want ErrSessionClosed", err)
	}
}

func TestCompleteRecordsPersistence(t *testing.T) {
	s := NewSession("42", "", "")
	if err := s.Complete("wf-7", true); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if s.Status != StatusCompleted || !s.Persisted || s.WorkflowID != "wf-7" {
		t.Errorf("unexpected completed session %+v", s)
	}
	if s.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
}
