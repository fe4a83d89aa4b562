package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
)

type stubSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (s *stubSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, in)
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSDeliveryWrapsEnvelope(t *testing.T) {
	stub := &stubSQS{}
	handler := NewSQSDeliveryHandler(stub, "https://sqs.local/queue")

	id := uuid.New()
	entry := OutboxEntry{
		ID:        id,
		OwnerID:   "42",
		Type:      TypeWorkflowSubmitted,
		Payload:   json.RawMessage(`{"workflow_id":"wf-1"}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := handler.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if len(stub.inputs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(stub.inputs))
	}
	if got := aws.ToString(stub.inputs[0].QueueUrl); got != "https://sqs.local/queue" {
		t.Errorf("queue url = %q", got)
	}

	var env Envelope
	if err := json.Unmarshal([]byte(aws.ToString(stub.inputs[0].MessageBody)), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.ID != id.String() || env.Type != TypeWorkflowSubmitted || env.OwnerID != "42" {
		t.Errorf("unexpected envelope %+v", env)
	}
	if string(env.Payload) != `{"workflow_id":"wf-1"}` {
		t.Errorf("payload = %s", env.Payload)
	}
}
