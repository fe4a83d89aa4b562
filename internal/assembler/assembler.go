// Package assembler turns a fully-edited configuration aggregate into the
// engine's persistence request, validates it, and submits it exactly once.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/flowline-ai/flowline/internal/engine"
	"github.com/flowline-ai/flowline/internal/observability/metrics"
	"github.com/flowline-ai/flowline/internal/workflow"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// Submitter persists an assembled workflow. Satisfied by *engine.Client.
type Submitter interface {
	Submit(ctx context.Context, req engine.SubmitRequest) (*engine.WorkflowRecord, error)
}

// ValidationError reports every missing required field at once, so the user
// sees the whole checklist in a single message instead of one field per
// attempt.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "assembler: missing required fields: " + strings.Join(e.Missing, ", ")
}

// Input is one submission attempt: identity/trigger metadata plus the
// aggregate snapshot to persist.
type Input struct {
	Name        string
	TriggerType string
	// OwnerID is transmitted as a foreign key and must be numeric; a
	// non-numeric value is a hard submission error.
	OwnerID   string
	Aggregate *workflow.Aggregate
}

// Result is the outcome of a submission. When the engine call fails,
// Persisted is false but Aggregate still carries the assembled snapshot so
// the caller can complete the wizard instead of getting stuck. Never a
// silent success: the error travels alongside the fallback Result.
type Result struct {
	Record    *engine.WorkflowRecord
	Aggregate *workflow.Aggregate
	Persisted bool
}

// Assembler validates and submits configuration aggregates.
type Assembler struct {
	engine  Submitter
	logger  *logging.Logger
	metrics *metrics.ComposerMetrics
}

// New creates an Assembler. The engine client is required; metrics may be nil.
func New(submitter Submitter, logger *logging.Logger, m *metrics.ComposerMetrics) *Assembler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Assembler{engine: submitter, logger: logger, metrics: m}
}

// Validate runs the fixed pre-submit checklist and returns every missing
// field name. An empty result means the aggregate is submittable.
func Validate(in Input) []string {
	missing := []string{}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	agg := in.Aggregate
	if agg == nil {
		return append(missing, "channelConfig", "brandTone", "aiTraining", "response")
	}
	if strings.TrimSpace(agg.ChannelConfig.AccountID) == "" {
		missing = append(missing, "channelConfig.accountId")
	}
	if strings.TrimSpace(agg.ChannelConfig.AuthToken) == "" {
		missing = append(missing, "channelConfig.authToken")
	}
	if strings.TrimSpace(agg.ChannelConfig.PhoneNumber) == "" {
		missing = append(missing, "channelConfig.phoneNumber")
	}
	if strings.TrimSpace(agg.BrandTone.VoiceType) == "" {
		missing = append(missing, "brandTone.voiceType")
	}
	if strings.TrimSpace(agg.AITraining.APIKey) == "" {
		missing = append(missing, "aiTraining.apiKey")
	}
	if strings.TrimSpace(agg.Response.FallbackMessage) == "" {
		missing = append(missing, "response.fallbackMessage")
	}
	return missing
}

// channelPayload duplicates the sender number under the legacy alias key.
// The engine historically accepted both; both must be populated identically.
type channelPayload struct {
	workflow.ChannelConfig
	TwilioPhoneNumber string `json:"twilioPhoneNumber"`
}

type actionsPayload struct {
	ChannelConfig     channelPayload             `json:"channelConfig"`
	BrandTone         workflow.BrandTone         `json:"brandTone"`
	AITraining        workflow.AITraining        `json:"aiTraining"`
	Context           workflow.ContextConfig     `json:"context"`
	Response          workflow.ResponseConfig    `json:"response"`
	Monitoring        workflow.MonitoringConfig  `json:"monitoring"`
	SystemIntegration workflow.SystemIntegration `json:"systemIntegration"`
}

// Assemble flattens the aggregate into the engine's request shape. It is
// pure: validation and coercion errors come back without any network call.
func Assemble(in Input) (*engine.SubmitRequest, error) {
	if missing := Validate(in); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	ownerID, err := strconv.Atoi(strings.TrimSpace(in.OwnerID))
	if err != nil {
		return nil, fmt.Errorf("assembler: owner id %q is not numeric", in.OwnerID)
	}

	agg := in.Aggregate.Clone()
	agg.Normalize()

	actions := actionsPayload{
		ChannelConfig: channelPayload{
			ChannelConfig:     agg.ChannelConfig,
			TwilioPhoneNumber: agg.ChannelConfig.PhoneNumber,
		},
		BrandTone:         agg.BrandTone,
		AITraining:        agg.AITraining,
		Context:           agg.Context,
		Response:          agg.Response,
		Monitoring:        agg.Monitoring,
		SystemIntegration: agg.SystemIntegration,
	}
	raw, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("assembler: marshal actions: %w", err)
	}

	triggerType := strings.TrimSpace(in.TriggerType)
	if triggerType == "" {
		triggerType = "manual"
	}

	return &engine.SubmitRequest{
		Name:        strings.TrimSpace(in.Name),
		TriggerType: triggerType,
		OwnerID:     ownerID,
		Actions:     raw,
	}, nil
}

// Submit assembles and persists the aggregate. The engine is called at most
// once, from a fully-assembled snapshot; a validation failure means it is
// not called at all. On transport failure both a Result (with the snapshot,
// Persisted=false) and the error are returned: the caller surfaces the
// error and still completes the wizard with the fallback snapshot.
func (a *Assembler) Submit(ctx context.Context, in Input) (*Result, error) {
	req, err := Assemble(in)
	if err != nil {
		if _, ok := err.(*ValidationError); ok {
			a.metrics.ObserveValidationFailure()
		}
		a.metrics.ObserveSubmission("error")
		return nil, err
	}

	snapshot := in.Aggregate.Clone()
	snapshot.Normalize()

	record, err := a.engine.Submit(ctx, *req)
	if err != nil {
		a.logger.Error("workflow submission failed, completing with unsaved snapshot",
			"workflow_name", req.Name, "error", err)
		a.metrics.ObserveSubmission("fallback")
		return &Result{Aggregate: snapshot, Persisted: false}, err
	}

	a.logger.Info("workflow submitted", "workflow_id", record.ID, "workflow_name", record.Name)
	a.metrics.ObserveSubmission("persisted")
	return &Result{Record: record, Aggregate: snapshot, Persisted: true}, nil
}
