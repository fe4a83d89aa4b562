package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type stubDynamo struct {
	items map[string]map[string]types.AttributeValue
	err   error
}

func (s *stubDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.items == nil {
		s.items = map[string]map[string]types.AttributeValue{}
	}
	id := in.Item["executionId"].(*types.AttributeValueMemberS).Value
	s.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (s *stubDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	id := in.Key["executionId"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: s.items[id]}, nil
}

func TestStatusCachePutGet(t *testing.T) {
	db := &stubDynamo{}
	cache := NewStatusCache(db, "execution_status", nil)

	exec := &Execution{
		ID:         "ex-1",
		WorkflowID: "wf-1",
		Status:     StatusRunning,
		Steps:      []StepStatus{{Name: "send-sms", Status: StatusPending}},
	}
	if err := cache.Put(context.Background(), exec); err != nil {
		t.Fatalf("put: %v", err)
	}

	record, err := cache.Get(context.Background(), "ex-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != StatusRunning || record.WorkflowID != "wf-1" {
		t.Fatalf("unexpected record %+v", record)
	}
	if len(record.Steps) != 1 || record.Steps[0].Name != "send-sms" {
		t.Fatalf("expected steps to round-trip, got %+v", record.Steps)
	}
	if record.ExpiresAt == 0 {
		t.Error("expected TTL to be set")
	}
}

func TestStatusCacheMiss(t *testing.T) {
	cache := NewStatusCache(&stubDynamo{}, "execution_status", nil)
	_, err := cache.Get(context.Background(), "missing")
	if !errors.Is(err, ErrStatusNotFound) {
		t.Fatalf("expected ErrStatusNotFound, got %v", err)
	}
}
