package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/flowline-ai/flowline/pkg/logging"
)

const statusTTL = 24 * time.Hour

// ErrStatusNotFound indicates no cached status exists for the execution.
var ErrStatusNotFound = errors.New("engine: execution status not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// StatusRecord is the cached last-seen status of one execution. The UI polls
// this cache instead of hammering the engine on every refresh.
type StatusRecord struct {
	ExecutionID string          `dynamodbav:"executionId" json:"executionId"`
	WorkflowID  string          `dynamodbav:"workflowId" json:"workflowId"`
	Status      ExecutionStatus `dynamodbav:"status" json:"status"`
	Steps       []StepStatus    `dynamodbav:"steps,omitempty" json:"steps,omitempty"`
	PolledAt    string          `dynamodbav:"polledAt" json:"polledAt"`
	ExpiresAt   int64           `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// StatusCache persists execution status records to DynamoDB with a TTL.
type StatusCache struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

// NewStatusCache creates a StatusCache backed by the given table.
func NewStatusCache(client dynamoAPI, tableName string, logger *logging.Logger) *StatusCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &StatusCache{client: client, tableName: tableName, logger: logger}
}

// Put stores the latest polled status for an execution.
func (s *StatusCache) Put(ctx context.Context, exec *Execution) error {
	if exec == nil || exec.ID == "" {
		return errors.New("engine: execution required")
	}
	now := time.Now().UTC()
	record := StatusRecord{
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		Status:      exec.Status,
		Steps:       exec.Steps,
		PolledAt:    now.Format(time.RFC3339),
		ExpiresAt:   now.Add(statusTTL).Unix(),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("engine: marshal status record: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("engine: put status record: %w", err)
	}
	return nil
}

// Get returns the cached status for an execution, or ErrStatusNotFound.
func (s *StatusCache) Get(ctx context.Context, executionID string) (*StatusRecord, error) {
	if executionID == "" {
		return nil, errors.New("engine: execution id required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"executionId": &types.AttributeValueMemberS{Value: executionID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("engine: get status record: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrStatusNotFound
	}
	var record StatusRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("engine: unmarshal status record: %w", err)
	}
	return &record, nil
}
