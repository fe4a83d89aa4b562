// Package workflow defines the configuration aggregate edited by a composer
// session and submitted to the workflow engine.
package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Bounds and fallbacks for numeric aggregate fields. Out-of-range or
// unparsable input falls back to the default instead of failing the edit.
const (
	MemoryWindowDefault = 5
	MemoryWindowMin     = 1
	MemoryWindowMax     = 20

	CharacterLimitDefault = 160
	CharacterLimitMin     = 50
	CharacterLimitMax     = 1600

	RetryCountDefault = 3
	RetryCountMax     = 10
)

// ChannelConfig identifies the outbound messaging channel. The account ID,
// auth token, and sender number form the required credential triple.
type ChannelConfig struct {
	AccountID          string `json:"accountId"`
	AuthToken          string `json:"authToken"`
	PhoneNumber        string `json:"phoneNumber"`
	MessagingServiceID string `json:"messagingServiceId,omitempty"`
	RetryCount         int    `json:"retryCount"`
}

// BrandTone holds the voice type and the ordered phrasing lists. Lists are
// append-only through the editor; order is insertion order and duplicates
// are permitted.
type BrandTone struct {
	VoiceType        string   `json:"voiceType"`
	Greetings        []string `json:"greetings"`
	PhrasingExamples []string `json:"phrasingExamples"`
	WordsToAvoid     []string `json:"wordsToAvoid"`
}

// QAPair is a question/answer training entry.
type QAPair struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TrainingDocument is a named FAQ/knowledge document fed to the model.
type TrainingDocument struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ChatExample is an example customer message with the desired response.
type ChatExample struct {
	ID              string `json:"id"`
	CustomerMessage string `json:"customerMessage"`
	Response        string `json:"response"`
}

// AITraining configures the language-model provider and its training lists.
// Entries carry generated IDs so edits keep targeting the same entry even
// when earlier entries are removed.
type AITraining struct {
	APIKey       string             `json:"apiKey"`
	QAPairs      []QAPair           `json:"qaPairs"`
	Documents    []TrainingDocument `json:"documents"`
	ChatExamples []ChatExample      `json:"chatExamples"`
}

// ContextTrigger supplies extra context when a trigger phrase is seen.
type ContextTrigger struct {
	Trigger string `json:"trigger"`
	Context string `json:"context"`
}

// KnowledgeEntry is a categorized knowledge-base snippet.
type KnowledgeEntry struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

// IntentGroup collects example utterances under a unique intent name.
type IntentGroup struct {
	Intent   string   `json:"intent"`
	Examples []string `json:"examples"`
}

// ContextConfig bounds conversation memory and holds triggers, knowledge
// entries, and intent-example groups.
type ContextConfig struct {
	MemoryWindow int              `json:"memoryWindow"`
	Triggers     []ContextTrigger `json:"triggers"`
	Knowledge    []KnowledgeEntry `json:"knowledgeBase"`
	Intents      []IntentGroup    `json:"intents"`
}

// ResponseTemplate is a named message template. Variables is derived from
// {placeholder} markers in Template when the template is added or edited.
type ResponseTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Template    string   `json:"template"`
	Variables   []string `json:"variables"`
	Description string   `json:"description,omitempty"`
}

// MessageSection is an independently toggleable part of the outbound message.
// ID is slugified from the name at creation and stays stable through renames.
type MessageSection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ResponseConfig holds templates, message structure, and reply limits.
type ResponseConfig struct {
	Templates       []ResponseTemplate `json:"templates"`
	Sections        []MessageSection   `json:"messageStructure"`
	CharacterLimit  int                `json:"characterLimit"`
	FallbackMessage string             `json:"fallbackMessage"`
}

// AlertWebhook is the optional external notification sink for alerts.
type AlertWebhook struct {
	URL           string `json:"url,omitempty"`
	Channel       string `json:"channel,omitempty"`
	MentionTarget string `json:"mentionTarget,omitempty"`
}

// MonitoringConfig holds alert thresholds, per-metric flags, and retention.
type MonitoringConfig struct {
	ResponseTimeMs    int          `json:"responseTimeMs"`
	ErrorRatePercent  float64      `json:"errorRatePercent"`
	DailyVolume       int          `json:"dailyVolume"`
	TrackResponseTime bool         `json:"trackResponseTime"`
	TrackErrorRate    bool         `json:"trackErrorRate"`
	TrackVolume       bool         `json:"trackVolume"`
	AlertWebhook      AlertWebhook `json:"alertWebhook"`
	MetricsRetention  int          `json:"metricsRetentionDays"`
	LogRetention      int          `json:"logRetentionDays"`
}

// TicketingIntegration connects the workflow to a helpdesk provider.
// Fields are required only when Enabled is true.
type TicketingIntegration struct {
	Enabled   bool   `json:"enabled"`
	Subdomain string `json:"subdomain,omitempty"`
	Email     string `json:"email,omitempty"`
	APIToken  string `json:"apiToken,omitempty"`
}

// SchedulingIntegration connects the workflow to a calendar-booking provider.
type SchedulingIntegration struct {
	Enabled   bool   `json:"enabled"`
	APIKey    string `json:"apiKey,omitempty"`
	EventType string `json:"eventType,omitempty"`
}

// WebhookIntegration forwards selected workflow events to a customer URL.
type WebhookIntegration struct {
	Enabled bool     `json:"enabled"`
	URL     string   `json:"url,omitempty"`
	Secret  string   `json:"secret,omitempty"`
	Events  []string `json:"events,omitempty"`
}

// SystemIntegration groups the per-provider integration sub-records.
type SystemIntegration struct {
	Ticketing  TicketingIntegration  `json:"ticketing"`
	Scheduling SchedulingIntegration `json:"scheduling"`
	Webhook    WebhookIntegration    `json:"webhook"`
}

// Aggregate is the single nested configuration record owned by one composer
// session. Sections are independently editable; section order is irrelevant.
type Aggregate struct {
	ChannelConfig     ChannelConfig     `json:"channelConfig"`
	BrandTone         BrandTone         `json:"brandTone"`
	AITraining        AITraining        `json:"aiTraining"`
	Context           ContextConfig     `json:"context"`
	Response          ResponseConfig    `json:"response"`
	Monitoring        MonitoringConfig  `json:"monitoring"`
	SystemIntegration SystemIntegration `json:"systemIntegration"`
}

// DefaultAggregate returns the hard-coded defaults a new session starts from.
func DefaultAggregate() *Aggregate {
	return &Aggregate{
		ChannelConfig: ChannelConfig{
			RetryCount: RetryCountDefault,
		},
		BrandTone: BrandTone{
			VoiceType:        "friendly",
			Greetings:        []string{},
			PhrasingExamples: []string{},
			WordsToAvoid:     []string{},
		},
		AITraining: AITraining{
			QAPairs:      []QAPair{},
			Documents:    []TrainingDocument{},
			ChatExamples: []ChatExample{},
		},
		Context: ContextConfig{
			MemoryWindow: MemoryWindowDefault,
			Triggers:     []ContextTrigger{},
			Knowledge:    []KnowledgeEntry{},
			Intents:      []IntentGroup{},
		},
		Response: ResponseConfig{
			Templates: []ResponseTemplate{},
			Sections: []MessageSection{
				{ID: "greeting", Name: "Greeting", Enabled: true},
				{ID: "main-content", Name: "Main Content", Enabled: true},
				{ID: "call-to-action", Name: "Call To Action", Enabled: false},
			},
			CharacterLimit:  CharacterLimitDefault,
			FallbackMessage: "Thanks for reaching out! A member of our team will follow up with you shortly.",
		},
		Monitoring: MonitoringConfig{
			ResponseTimeMs:    5000,
			ErrorRatePercent:  5,
			DailyVolume:       1000,
			TrackResponseTime: true,
			TrackErrorRate:    true,
			TrackVolume:       false,
			MetricsRetention:  30,
			LogRetention:      7,
		},
		SystemIntegration: SystemIntegration{
			Webhook: WebhookIntegration{Events: []string{}},
		},
	}
}

// MergeWithDefaults initializes an aggregate from a previously persisted
// record, deep-merging it over the defaults. Missing nested fields keep
// their default value instead of becoming absent, so older saved records
// never produce a partially-formed aggregate. Field-level type mismatches
// are tolerated: the offending field keeps its default and the error is
// returned for logging alongside a usable aggregate.
func MergeWithDefaults(raw []byte) (*Aggregate, error) {
	agg := DefaultAggregate()
	if len(raw) == 0 {
		return agg, nil
	}
	if err := json.Unmarshal(raw, agg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Best-effort merge: every well-typed field has been applied.
			agg.Normalize()
			return agg, fmt.Errorf("workflow: merge saved record: %w", err)
		}
		return DefaultAggregate(), fmt.Errorf("workflow: decode saved record: %w", err)
	}
	agg.Normalize()
	return agg, nil
}

// Normalize clamps numeric fields back to their documented bounds, falling
// back to the default when out of range.
func (a *Aggregate) Normalize() {
	if a.Context.MemoryWindow < MemoryWindowMin || a.Context.MemoryWindow > MemoryWindowMax {
		a.Context.MemoryWindow = MemoryWindowDefault
	}
	if a.Response.CharacterLimit < CharacterLimitMin || a.Response.CharacterLimit > CharacterLimitMax {
		a.Response.CharacterLimit = CharacterLimitDefault
	}
	if a.ChannelConfig.RetryCount < 0 || a.ChannelConfig.RetryCount > RetryCountMax {
		a.ChannelConfig.RetryCount = RetryCountDefault
	}
}

// parseBounded parses raw as an integer within [min, max], falling back to
// def on unparsable or out-of-range input. Edits never fail; they degrade.
func parseBounded(raw string, min, max, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

// SetMemoryWindow applies a raw memory-window edit.
func (c ContextConfig) SetMemoryWindow(raw string) ContextConfig {
	c.MemoryWindow = parseBounded(raw, MemoryWindowMin, MemoryWindowMax, MemoryWindowDefault)
	return c
}

// SetCharacterLimit applies a raw character-limit edit.
func (r ResponseConfig) SetCharacterLimit(raw string) ResponseConfig {
	r.CharacterLimit = parseBounded(raw, CharacterLimitMin, CharacterLimitMax, CharacterLimitDefault)
	return r
}

// SetRetryCount applies a raw retry-count edit.
func (c ChannelConfig) SetRetryCount(raw string) ChannelConfig {
	c.RetryCount = parseBounded(raw, 0, RetryCountMax, RetryCountDefault)
	return c
}

// Clone returns a deep copy of the aggregate via a JSON round trip. Used to
// take the immutable snapshot the assembler submits.
func (a *Aggregate) Clone() *Aggregate {
	data, err := json.Marshal(a)
	if err != nil {
		// The aggregate is plain data; marshal cannot fail in practice.
		panic(fmt.Sprintf("workflow: clone aggregate: %v", err))
	}
	var out Aggregate
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("workflow: clone aggregate: %v", err))
	}
	return &out
}
