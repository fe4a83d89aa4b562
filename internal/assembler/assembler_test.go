package assembler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/flowline-ai/flowline/internal/engine"
	"github.com/flowline-ai/flowline/internal/workflow"
)

type stubSubmitter struct {
	calls   int
	lastReq engine.SubmitRequest
	record  *engine.WorkflowRecord
	err     error
}

func (s *stubSubmitter) Submit(_ context.Context, req engine.SubmitRequest) (*engine.WorkflowRecord, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func completeInput() Input {
	agg := workflow.DefaultAggregate()
	agg.ChannelConfig.AccountID = "AC123"
	agg.ChannelConfig.AuthToken = "token"
	agg.ChannelConfig.PhoneNumber = "+15551234567"
	agg.BrandTone.VoiceType = "friendly"
	agg.AITraining.APIKey = "sk-test"
	agg.Response.FallbackMessage = "We will get back to you shortly."
	return Input{
		Name:        "Lead Follow-up",
		TriggerType: "inbound_sms",
		OwnerID:     "42",
		Aggregate:   agg,
	}
}

func TestValidateReportsAllMissingFields(t *testing.T) {
	in := completeInput()
	in.Aggregate.Response.FallbackMessage = "   "
	in.Aggregate.BrandTone.VoiceType = ""

	missing := Validate(in)
	want := map[string]bool{"brandTone.voiceType": true, "response.fallbackMessage": true}
	if len(missing) != len(want) {
		t.Fatalf("missing = %v, want exactly %v", missing, want)
	}
	for _, field := range missing {
		if !want[field] {
			t.Errorf("unexpected missing field %q", field)
		}
	}
}

func TestSubmitDoesNotCallEngineWhenInvalid(t *testing.T) {
	stub := &stubSubmitter{}
	a := New(stub, nil, nil)

	in := completeInput()
	in.Aggregate.Response.FallbackMessage = ""

	_, err := a.Submit(context.Background(), in)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if len(verr.Missing) != 1 || verr.Missing[0] != "response.fallbackMessage" {
		t.Errorf("expected exactly the empty fallback message, got %v", verr.Missing)
	}
	if stub.calls != 0 {
		t.Errorf("engine called %d times for invalid input, want 0", stub.calls)
	}
}

func TestSubmitNonNumericOwnerIsHardError(t *testing.T) {
	stub := &stubSubmitter{}
	a := New(stub, nil, nil)

	in := completeInput()
	in.OwnerID = "acct-42"

	result, err := a.Submit(context.Background(), in)
	if err == nil {
		t.Fatal("expected error for non-numeric owner id")
	}
	if result != nil {
		t.Errorf("expected no result, got %+v", result)
	}
	if stub.calls != 0 {
		t.Errorf("engine called %d times, want 0", stub.calls)
	}
}

func TestAssembleAliasesPhoneNumber(t *testing.T) {
	req, err := Assemble(completeInput())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if req.OwnerID != 42 {
		t.Errorf("ownerId = %d, want 42", req.OwnerID)
	}

	var actions map[string]json.RawMessage
	if err := json.Unmarshal(req.Actions, &actions); err != nil {
		t.Fatalf("unmarshal actions: %v", err)
	}
	var channel map[string]any
	if err := json.Unmarshal(actions["channelConfig"], &channel); err != nil {
		t.Fatalf("unmarshal channelConfig: %v", err)
	}
	if channel["phoneNumber"] != "+15551234567" {
		t.Errorf("phoneNumber = %v", channel["phoneNumber"])
	}
	if channel["twilioPhoneNumber"] != "+15551234567" {
		t.Errorf("twilioPhoneNumber = %v, want alias of phoneNumber", channel["twilioPhoneNumber"])
	}
}

func TestAssembleDefaultsTriggerType(t *testing.T) {
	in := completeInput()
	in.TriggerType = ""
	req, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if req.TriggerType != "manual" {
		t.Errorf("triggerType = %q, want manual", req.TriggerType)
	}
}

func TestSubmitPersistedResult(t *testing.T) {
	stub := &stubSubmitter{record: &engine.WorkflowRecord{ID: "wf-9", Name: "Lead Follow-up"}}
	a := New(stub, nil, nil)

	result, err := a.Submit(context.Background(), completeInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Persisted {
		t.Error("expected persisted result")
	}
	if result.Record == nil || result.Record.ID != "wf-9" {
		t.Errorf("unexpected record %+v", result.Record)
	}
	if stub.calls != 1 {
		t.Errorf("engine called %d times, want exactly 1", stub.calls)
	}
}

func TestSubmitFallbackOnTransportFailure(t *testing.T) {
	stub := &stubSubmitter{err: errors.New("dial tcp: connection refused")}
	a := New(stub, nil, nil)

	result, err := a.Submit(context.Background(), completeInput())
	if err == nil {
		t.Fatal("expected transport error to surface")
	}
	if result == nil {
		t.Fatal("expected fallback result alongside the error")
	}
	if result.Persisted {
		t.Error("fallback result must not claim persistence")
	}
	if result.Aggregate == nil || result.Aggregate.Response.FallbackMessage == "" {
		t.Errorf("expected assembled snapshot in fallback result, got %+v", result.Aggregate)
	}
	if stub.calls != 1 {
		t.Errorf("engine called %d times, want exactly 1 (no retry)", stub.calls)
	}
}

func TestAssembleNormalizesNumericFields(t *testing.T) {
	in := completeInput()
	in.Aggregate.Response.CharacterLimit = 99999
	in.Aggregate.Context.MemoryWindow = 0

	req, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	var actions struct {
		Response workflow.ResponseConfig `json:"response"`
		Context  workflow.ContextConfig  `json:"context"`
	}
	if err := json.Unmarshal(req.Actions, &actions); err != nil {
		t.Fatalf("unmarshal actions: %v", err)
	}
	if actions.Response.CharacterLimit != workflow.CharacterLimitDefault {
		t.Errorf("characterLimit = %d, want default %d", actions.Response.CharacterLimit, workflow.CharacterLimitDefault)
	}
	if actions.Context.MemoryWindow != workflow.MemoryWindowDefault {
		t.Errorf("memoryWindow = %d, want default %d", actions.Context.MemoryWindow, workflow.MemoryWindowDefault)
	}
}
