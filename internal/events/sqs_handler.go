package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Envelope is the wire shape delivered to the queue: typed header plus the
// original payload untouched.
type Envelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OwnerID   string          `json:"owner_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// SQSDeliveryHandler forwards outbox entries to an SQS queue.
type SQSDeliveryHandler struct {
	client   sqsAPI
	queueURL string
}

func NewSQSDeliveryHandler(client sqsAPI, queueURL string) *SQSDeliveryHandler {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSDeliveryHandler{client: client, queueURL: queueURL}
}

func (h *SQSDeliveryHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	body, err := json.Marshal(Envelope{
		ID:        entry.ID.String(),
		Type:      entry.Type,
		OwnerID:   entry.OwnerID,
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	_, err = h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("events: send SQS message: %w", err)
	}
	return nil
}
