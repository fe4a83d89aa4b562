// Package suggest generates draft response templates and chat examples from
// the brand tone a user has already configured, using an LLM behind a small
// completion interface.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowline-ai/flowline/internal/workflow"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// Request is a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int32
	Temperature float32
}

// Response carries the model's text.
type Response struct {
	Text string
}

// LLMClient is implemented by the Bedrock and Gemini backends.
type LLMClient interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// TemplateSuggestion is one drafted response template.
type TemplateSuggestion struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatExampleSuggestion is one drafted customer/agent exchange.
type ChatExampleSuggestion struct {
	Customer string `json:"customer"`
	Agent    string `json:"agent"`
}

// Service drafts wizard content from the configured brand tone.
type Service struct {
	llm    LLMClient
	logger *logging.Logger
}

func NewService(llm LLMClient, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{llm: llm, logger: logger}
}

// Enabled reports whether a backend is configured. Callers skip suggestion
// endpoints entirely when it is false.
func (s *Service) Enabled() bool {
	return s != nil && s.llm != nil
}

const templateSystemPrompt = `You draft reusable response templates for a business messaging assistant. Match the requested voice exactly. Return ONLY a JSON array.`

// SuggestTemplates asks the model for count template drafts matching the
// aggregate's brand tone.
func (s *Service) SuggestTemplates(ctx context.Context, agg *workflow.Aggregate, count int) ([]TemplateSuggestion, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("suggest: no llm backend configured")
	}
	if count <= 0 || count > 10 {
		count = 3
	}

	prompt := fmt.Sprintf(`Draft %d response templates for this business. Return ONLY a JSON array:

[{"name": "short snake_case name", "content": "template text, may use {{customerName}} and {{businessName}} variables"}]

%s`, count, describeTone(agg))

	resp, err := s.llm.Complete(ctx, Request{
		System:      templateSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: templates: %w", err)
	}

	var out []TemplateSuggestion
	if err := parseJSONArray(resp.Text, &out); err != nil {
		s.logger.Error("unparseable template suggestions", "error", err)
		return nil, fmt.Errorf("suggest: templates: %w", err)
	}
	return out, nil
}

const chatExampleSystemPrompt = `You write realistic example conversations for training a business messaging assistant. Match the requested voice exactly. Return ONLY a JSON array.`

// SuggestChatExamples asks the model for count customer/agent exchanges in
// the configured voice, suitable for the training step.
func (s *Service) SuggestChatExamples(ctx context.Context, agg *workflow.Aggregate, count int) ([]ChatExampleSuggestion, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("suggest: no llm backend configured")
	}
	if count <= 0 || count > 10 {
		count = 3
	}

	prompt := fmt.Sprintf(`Write %d short example exchanges between a customer and the assistant. Return ONLY a JSON array:

[{"customer": "what the customer says", "agent": "how the assistant replies"}]

%s`, count, describeTone(agg))

	resp, err := s.llm.Complete(ctx, Request{
		System:      chatExampleSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   1024,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: chat examples: %w", err)
	}

	var out []ChatExampleSuggestion
	if err := parseJSONArray(resp.Text, &out); err != nil {
		s.logger.Error("unparseable chat example suggestions", "error", err)
		return nil, fmt.Errorf("suggest: chat examples: %w", err)
	}
	return out, nil
}

// describeTone flattens the brand tone into prompt context lines.
func describeTone(agg *workflow.Aggregate) string {
	var sb strings.Builder
	if agg == nil {
		return ""
	}
	tone := agg.BrandTone
	if tone.VoiceType != "" {
		fmt.Fprintf(&sb, "Voice: %s\n", tone.VoiceType)
	}
	if len(tone.Greetings) > 0 {
		fmt.Fprintf(&sb, "Greetings in use: %s\n", strings.Join(tone.Greetings, " | "))
	}
	if len(tone.PhrasingExamples) > 0 {
		fmt.Fprintf(&sb, "Phrasing examples: %s\n", strings.Join(tone.PhrasingExamples, " | "))
	}
	if len(tone.WordsToAvoid) > 0 {
		fmt.Fprintf(&sb, "Never use these words: %s\n", strings.Join(tone.WordsToAvoid, ", "))
	}
	return sb.String()
}

// parseJSONArray finds the array in the response text, which models often
// wrap in markdown code fences.
func parseJSONArray(text string, v any) error {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no json array in model output")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
