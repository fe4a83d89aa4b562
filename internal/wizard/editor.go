package wizard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/workflow"
)

// Section update request bodies. Pointer fields support partial updates:
// nil means "leave unchanged". Numeric fields arrive as strings straight
// from form inputs; out-of-range values fall back to defaults.

type channelSectionRequest struct {
	AccountID          *string `json:"accountId,omitempty"`
	AuthToken          *string `json:"authToken,omitempty"`
	PhoneNumber        *string `json:"phoneNumber,omitempty"`
	MessagingServiceID *string `json:"messagingServiceId,omitempty"`
	RetryCount         *string `json:"retryCount,omitempty"`
}

type brandToneSectionRequest struct {
	VoiceType *string `json:"voiceType,omitempty"`
}

type trainingSectionRequest struct {
	APIKey *string `json:"apiKey,omitempty"`
}

type contextSectionRequest struct {
	MemoryWindow *string `json:"memoryWindow,omitempty"`
}

type responseSectionRequest struct {
	CharacterLimit  *string `json:"characterLimit,omitempty"`
	FallbackMessage *string `json:"fallbackMessage,omitempty"`
}

type monitoringSectionRequest struct {
	ResponseTimeMs    *int                   `json:"responseTimeMs,omitempty"`
	ErrorRatePercent  *float64               `json:"errorRatePercent,omitempty"`
	DailyVolume       *int                   `json:"dailyVolume,omitempty"`
	TrackResponseTime *bool                  `json:"trackResponseTime,omitempty"`
	TrackErrorRate    *bool                  `json:"trackErrorRate,omitempty"`
	TrackVolume       *bool                  `json:"trackVolume,omitempty"`
	AlertWebhook      *workflow.AlertWebhook `json:"alertWebhook,omitempty"`
	MetricsRetention  *int                   `json:"metricsRetentionDays,omitempty"`
	LogRetention      *int                   `json:"logRetentionDays,omitempty"`
}

type integrationsSectionRequest struct {
	Ticketing  *workflow.TicketingIntegration  `json:"ticketing,omitempty"`
	Scheduling *workflow.SchedulingIntegration `json:"scheduling,omitempty"`
	Webhook    *workflow.WebhookIntegration    `json:"webhook,omitempty"`
}

// UpdateSection applies a partial update to one aggregate section.
// PUT /sessions/{sessionID}/sections/{section}
func (h *Handler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	section := chi.URLParam(r, "section")
	raw, err := decodeBody(r)
	if err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	agg := session.Aggregate
	switch section {
	case StepChannel:
		var req channelSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		cc := agg.ChannelConfig
		if req.AccountID != nil {
			cc.AccountID = *req.AccountID
		}
		if req.AuthToken != nil {
			cc.AuthToken = *req.AuthToken
		}
		if req.PhoneNumber != nil {
			cc.PhoneNumber = *req.PhoneNumber
		}
		if req.MessagingServiceID != nil {
			cc.MessagingServiceID = *req.MessagingServiceID
		}
		if req.RetryCount != nil {
			cc = cc.SetRetryCount(*req.RetryCount)
		}
		agg.ChannelConfig = cc

	case StepBrandTone:
		var req brandToneSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		if req.VoiceType != nil {
			agg.BrandTone.VoiceType = *req.VoiceType
		}

	case StepTraining:
		var req trainingSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		if req.APIKey != nil {
			agg.AITraining.APIKey = *req.APIKey
		}

	case StepContext:
		var req contextSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		if req.MemoryWindow != nil {
			agg.Context = agg.Context.SetMemoryWindow(*req.MemoryWindow)
		}

	case StepResponse:
		var req responseSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		if req.CharacterLimit != nil {
			agg.Response = agg.Response.SetCharacterLimit(*req.CharacterLimit)
		}
		if req.FallbackMessage != nil {
			agg.Response.FallbackMessage = *req.FallbackMessage
		}

	case StepMonitoring:
		var req monitoringSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		mon := agg.Monitoring
		if req.ResponseTimeMs != nil {
			mon.ResponseTimeMs = *req.ResponseTimeMs
		}
		if req.ErrorRatePercent != nil {
			mon.ErrorRatePercent = *req.ErrorRatePercent
		}
		if req.DailyVolume != nil {
			mon.DailyVolume = *req.DailyVolume
		}
		if req.TrackResponseTime != nil {
			mon.TrackResponseTime = *req.TrackResponseTime
		}
		if req.TrackErrorRate != nil {
			mon.TrackErrorRate = *req.TrackErrorRate
		}
		if req.TrackVolume != nil {
			mon.TrackVolume = *req.TrackVolume
		}
		if req.AlertWebhook != nil {
			mon.AlertWebhook = *req.AlertWebhook
		}
		if req.MetricsRetention != nil {
			mon.MetricsRetention = *req.MetricsRetention
		}
		if req.LogRetention != nil {
			mon.LogRetention = *req.LogRetention
		}
		agg.Monitoring = mon

	case StepIntegrations:
		var req integrationsSectionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
			return
		}
		if req.Ticketing != nil {
			agg.SystemIntegration.Ticketing = *req.Ticketing
		}
		if req.Scheduling != nil {
			agg.SystemIntegration.Scheduling = *req.Scheduling
		}
		if req.Webhook != nil {
			agg.SystemIntegration.Webhook = *req.Webhook
		}

	default:
		http.Error(w, `{"error": "unknown section"}`, http.StatusBadRequest)
		return
	}

	h.saveAndRespond(w, r, session)
}

// Collection names accepted by the collection endpoints.
const (
	collGreetings        = "greetings"
	collPhrasingExamples = "phrasing_examples"
	collWordsToAvoid     = "words_to_avoid"
	collQAPairs          = "qa_pairs"
	collDocuments        = "documents"
	collChatExamples     = "chat_examples"
	collTriggers         = "triggers"
	collKnowledge        = "knowledge"
	collIntentExamples   = "intent_examples"
	collTemplates        = "templates"
	collSections         = "sections"
	collWebhookEvents    = "webhook_events"
)

// collectionItemRequest is the union body for all add operations; each
// collection reads the fields it needs.
type collectionItemRequest struct {
	Value           string `json:"value,omitempty"`
	Question        string `json:"question,omitempty"`
	Answer          string `json:"answer,omitempty"`
	Name            string `json:"name,omitempty"`
	Content         string `json:"content,omitempty"`
	CustomerMessage string `json:"customerMessage,omitempty"`
	Response        string `json:"response,omitempty"`
	Trigger         string `json:"trigger,omitempty"`
	Context         string `json:"context,omitempty"`
	Category        string `json:"category,omitempty"`
	Intent          string `json:"intent,omitempty"`
	Example         string `json:"example,omitempty"`
	Template        string `json:"template,omitempty"`
	Description     string `json:"description,omitempty"`
}

// AddCollectionItem appends one entry to a list-valued aggregate field.
// Empty required inputs are a silent no-op, mirroring the editor protocol.
// POST /sessions/{sessionID}/collections/{collection}
func (h *Handler) AddCollectionItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	var req collectionItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	agg := session.Aggregate
	switch chi.URLParam(r, "collection") {
	case collGreetings:
		agg.BrandTone = agg.BrandTone.AddGreeting(req.Value)
	case collPhrasingExamples:
		agg.BrandTone = agg.BrandTone.AddPhrasingExample(req.Value)
	case collWordsToAvoid:
		agg.BrandTone = agg.BrandTone.AddWordToAvoid(req.Value)
	case collQAPairs:
		agg.AITraining = agg.AITraining.AddQAPair(req.Question, req.Answer)
	case collDocuments:
		agg.AITraining = agg.AITraining.AddDocument(req.Name, req.Content)
	case collChatExamples:
		agg.AITraining = agg.AITraining.AddChatExample(req.CustomerMessage, req.Response)
	case collTriggers:
		agg.Context = agg.Context.AddTrigger(req.Trigger, req.Context)
	case collKnowledge:
		agg.Context = agg.Context.AddKnowledgeEntry(req.Category, req.Content)
	case collIntentExamples:
		agg.Context = agg.Context.AddIntentExample(req.Intent, req.Example)
	case collTemplates:
		agg.Response = agg.Response.AddTemplate(req.Name, req.Template, req.Description)
	case collSections:
		agg.Response = agg.Response.AddSection(req.Name)
	case collWebhookEvents:
		agg.SystemIntegration = agg.SystemIntegration.AddWebhookEvent(req.Value)
	default:
		http.Error(w, `{"error": "unknown collection"}`, http.StatusBadRequest)
		return
	}

	h.saveAndRespond(w, r, session)
}

// RemoveCollectionItem removes one entry by position. Stale indexes are a
// silent no-op.
// DELETE /sessions/{sessionID}/collections/{collection}/{index}
func (h *Handler) RemoveCollectionItem(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	index, ok := parseIndex(chi.URLParam(r, "index"))
	if !ok {
		http.Error(w, `{"error": "invalid index"}`, http.StatusBadRequest)
		return
	}

	agg := session.Aggregate
	switch chi.URLParam(r, "collection") {
	case collGreetings:
		agg.BrandTone = agg.BrandTone.RemoveGreeting(index)
	case collPhrasingExamples:
		agg.BrandTone = agg.BrandTone.RemovePhrasingExample(index)
	case collWordsToAvoid:
		agg.BrandTone = agg.BrandTone.RemoveWordToAvoid(index)
	case collQAPairs:
		agg.AITraining = agg.AITraining.RemoveQAPair(index)
	case collDocuments:
		agg.AITraining = agg.AITraining.RemoveDocument(index)
	case collChatExamples:
		agg.AITraining = agg.AITraining.RemoveChatExample(index)
	case collTriggers:
		agg.Context = agg.Context.RemoveTrigger(index)
	case collKnowledge:
		agg.Context = agg.Context.RemoveKnowledgeEntry(index)
	case collTemplates:
		agg.Response = agg.Response.RemoveTemplate(index)
	case collSections:
		agg.Response = agg.Response.RemoveSection(index)
	case collWebhookEvents:
		agg.SystemIntegration = agg.SystemIntegration.RemoveWebhookEvent(index)
	default:
		http.Error(w, `{"error": "unknown collection"}`, http.StatusBadRequest)
		return
	}

	h.saveAndRespond(w, r, session)
}

// RemoveIntentExample removes one example utterance from an intent group.
// Intent examples are addressed by value, not index, because groups collapse
// when their last example goes away.
// DELETE /sessions/{sessionID}/collections/intent_examples?intent=...&example=...
func (h *Handler) RemoveIntentExample(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	intent := r.URL.Query().Get("intent")
	example := r.URL.Query().Get("example")
	if intent == "" || example == "" {
		http.Error(w, `{"error": "intent and example required"}`, http.StatusBadRequest)
		return
	}

	session.Aggregate.Context = session.Aggregate.Context.RemoveIntentExample(intent, example)
	h.saveAndRespond(w, r, session)
}

// PatchMessageSection renames or toggles one message-structure section by
// its stable ID.
// PATCH /sessions/{sessionID}/collections/sections/{itemID}
func (h *Handler) PatchMessageSection(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	var patch workflow.SectionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	session.Aggregate.Response = session.Aggregate.Response.UpdateSection(itemID, patch)
	h.saveAndRespond(w, r, session)
}

func (h *Handler) saveAndRespond(w http.ResponseWriter, r *http.Request, session *Session) {
	session.touch()
	if err := h.store.Set(r.Context(), session); err != nil {
		h.logger.Error("failed to save wizard session", "session_id", session.ID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func decodeBody(r *http.Request) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
