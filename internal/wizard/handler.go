package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/assembler"
	"github.com/flowline-ai/flowline/internal/engine"
	"github.com/flowline-ai/flowline/internal/observability/metrics"
	"github.com/flowline-ai/flowline/internal/workflow"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// DefaultSubmitTimeout bounds the engine call during session submission so
// a hung engine cannot pin the wizard forever.
const DefaultSubmitTimeout = 30 * time.Second

// SubmissionSink observes submission outcomes and cancelled sessions, for
// audit history, event publication, archival, and notifications. Sink
// failures never affect the HTTP response.
type SubmissionSink interface {
	// SubmissionCompleted is called after every submit attempt. A non-empty
	// missing list means validation rejected the attempt; a non-empty errText
	// on a completed session means the fallback path was taken.
	SubmissionCompleted(ctx context.Context, session *Session, missing []string, errText string)
	SessionCancelled(ctx context.Context, session *Session)
}

// WorkflowLoader fetches a persisted workflow so a session can start from it.
type WorkflowLoader interface {
	Get(ctx context.Context, id string) (*engine.WorkflowRecord, error)
}

// Handler provides HTTP endpoints for wizard sessions.
type Handler struct {
	store         *Store
	assembler     *assembler.Assembler
	logger        *logging.Logger
	metrics       *metrics.ComposerMetrics
	sink          SubmissionSink
	loader        WorkflowLoader
	submitTimeout time.Duration
}

// NewHandler creates a wizard HTTP handler. metrics may be nil.
func NewHandler(store *Store, asm *assembler.Assembler, logger *logging.Logger, m *metrics.ComposerMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:         store,
		assembler:     asm,
		logger:        logger,
		metrics:       m,
		submitTimeout: DefaultSubmitTimeout,
	}
}

// WithSink attaches a submission sink.
func (h *Handler) WithSink(sink SubmissionSink) *Handler {
	h.sink = sink
	return h
}

// WithWorkflowLoader enables starting sessions from an existing workflow.
func (h *Handler) WithWorkflowLoader(loader WorkflowLoader) *Handler {
	h.loader = loader
	return h
}

// WithSubmitTimeout overrides the engine-call timeout used during Submit.
func (h *Handler) WithSubmitTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.submitTimeout = d
	}
	return h
}

// Routes returns a chi router with wizard session routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSession)
	r.Get("/{sessionID}", h.GetSession)
	r.Post("/{sessionID}/next", h.Next)
	r.Post("/{sessionID}/previous", h.Previous)
	r.Post("/{sessionID}/goto", h.GoTo)
	r.Post("/{sessionID}/cancel", h.Cancel)
	r.Put("/{sessionID}/sections/{section}", h.UpdateSection)
	r.Post("/{sessionID}/collections/{collection}", h.AddCollectionItem)
	r.Delete("/{sessionID}/collections/{collection}/{index}", h.RemoveCollectionItem)
	r.Delete("/{sessionID}/collections/intent_examples", h.RemoveIntentExample)
	r.Patch("/{sessionID}/collections/sections/{itemID}", h.PatchMessageSection)
	r.Post("/{sessionID}/submit", h.Submit)
	return r
}

// CreateSessionRequest is the request body for starting a wizard session.
// A non-empty WorkflowID starts the session from that persisted workflow
// instead of the defaults.
type CreateSessionRequest struct {
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	TriggerType string `json:"triggerType"`
	WorkflowID  string `json:"workflowId,omitempty"`
}

// CreateSession starts a new wizard session at the first step.
// POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.OwnerID == "" {
		http.Error(w, `{"error": "ownerId required"}`, http.StatusBadRequest)
		return
	}

	session := NewSession(req.OwnerID, req.Name, req.TriggerType)
	if req.WorkflowID != "" {
		if h.loader == nil {
			http.Error(w, `{"error": "editing existing workflows is not enabled"}`, http.StatusNotImplemented)
			return
		}
		record, err := h.loader.Get(r.Context(), req.WorkflowID)
		if err != nil {
			h.logger.Error("failed to load workflow for editing", "workflow_id", req.WorkflowID, "error", err)
			http.Error(w, `{"error": "workflow not found"}`, http.StatusNotFound)
			return
		}
		agg, mergeErr := workflow.MergeWithDefaults(record.Actions)
		if mergeErr != nil {
			h.logger.Warn("workflow actions partially merged", "workflow_id", req.WorkflowID, "error", mergeErr)
		}
		session.Aggregate = agg
		session.WorkflowID = record.ID
		if req.Name == "" {
			session.Name = record.Name
		}
		if req.TriggerType == "" {
			session.TriggerType = record.TriggerType
		}
	}
	if err := h.store.Set(r.Context(), session); err != nil {
		h.logger.Error("failed to create wizard session", "owner_id", req.OwnerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveSessionStarted()
	h.logger.Info("wizard session created", "session_id", session.ID, "owner_id", req.OwnerID)
	writeJSON(w, http.StatusCreated, session)
}

// GetSession returns the full session state including the aggregate.
// GET /sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Next advances the session one step.
// POST /sessions/{sessionID}/next
func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "next", func(s *Session) error { return s.Next() })
}

// Previous moves the session back one step.
// POST /sessions/{sessionID}/previous
func (h *Handler) Previous(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "previous", func(s *Session) error { return s.Previous() })
}

// GoTo jumps the session to a named step.
// POST /sessions/{sessionID}/goto
func (h *Handler) GoTo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step string `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	h.transition(w, r, "goto", func(s *Session) error { return s.GoTo(req.Step) })
}

// Cancel abandons the session.
// POST /sessions/{sessionID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.Cancel(); err != nil {
		writeSessionError(w, err)
		return
	}
	if err := h.store.Set(r.Context(), session); err != nil {
		h.logger.Error("failed to save wizard session", "session_id", session.ID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if h.sink != nil {
		h.sink.SessionCancelled(r.Context(), session)
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, direction string, apply func(*Session) error) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := apply(session); err != nil {
		writeSessionError(w, err)
		return
	}
	if err := h.store.Set(r.Context(), session); err != nil {
		h.logger.Error("failed to save wizard session", "session_id", session.ID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if direction != "" {
		h.metrics.ObserveStepTransition(direction)
	}
	writeJSON(w, http.StatusOK, session)
}

// SubmitRequest optionally overrides session metadata at submission time.
type SubmitRequest struct {
	Name        string `json:"name,omitempty"`
	TriggerType string `json:"triggerType,omitempty"`
}

// SubmitResponse is returned for both persisted and fallback completions.
type SubmitResponse struct {
	Session   *Session `json:"session"`
	Persisted bool     `json:"persisted"`
	Error     string   `json:"error,omitempty"`
}

// Submit validates the aggregate, persists it through the engine, and
// completes the session. A transport failure still completes the session
// with persisted=false and the failure message, so the user is never stuck
// on the final step.
// POST /sessions/{sessionID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	if err := session.ensureActive(); err != nil {
		writeSessionError(w, err)
		return
	}

	var req SubmitRequest
	if r.Body != nil {
		// Body is optional; a decode error on an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Name != "" {
		session.Name = req.Name
	}
	if req.TriggerType != "" {
		session.TriggerType = req.TriggerType
	}

	if err := h.store.BeginSubmit(r.Context(), session.ID); err != nil {
		if errors.Is(err, ErrSubmitInFlight) {
			http.Error(w, `{"error": "submission already in progress"}`, http.StatusConflict)
			return
		}
		h.logger.Error("failed to acquire submit guard", "session_id", session.ID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	defer h.store.EndSubmit(r.Context(), session.ID)

	ctx, cancel := context.WithTimeout(r.Context(), h.submitTimeout)
	defer cancel()

	result, err := h.assembler.Submit(ctx, assembler.Input{
		Name:        session.Name,
		TriggerType: session.TriggerType,
		OwnerID:     session.OwnerID,
		Aggregate:   session.Aggregate,
	})
	if err != nil && result == nil {
		var verr *assembler.ValidationError
		if errors.As(err, &verr) {
			if h.sink != nil {
				h.sink.SubmissionCompleted(r.Context(), session, verr.Missing, "")
			}
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   "validation failed",
				"missing": verr.Missing,
			})
			return
		}
		h.logger.Error("workflow assembly failed", "session_id", session.ID, "error", err)
		http.Error(w, `{"error": "invalid submission"}`, http.StatusBadRequest)
		return
	}

	workflowID := ""
	if result.Record != nil {
		workflowID = result.Record.ID
	}
	session.Aggregate = result.Aggregate
	if cErr := session.Complete(workflowID, result.Persisted); cErr != nil {
		writeSessionError(w, cErr)
		return
	}
	if sErr := h.store.Set(r.Context(), session); sErr != nil {
		h.logger.Error("failed to save completed session", "session_id", session.ID, "error", sErr)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp := SubmitResponse{Session: session, Persisted: result.Persisted}
	status := http.StatusCreated
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusOK
	}
	if h.sink != nil {
		h.sink.SubmissionCompleted(r.Context(), session, nil, resp.Error)
	}
	writeJSON(w, status, resp)
}

func (h *Handler) loadSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, `{"error": "session id required"}`, http.StatusBadRequest)
		return nil, false
	}
	session, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, `{"error": "session not found"}`, http.StatusNotFound)
			return nil, false
		}
		h.logger.Error("failed to load wizard session", "session_id", sessionID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return session, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionClosed):
		http.Error(w, `{"error": "session is not active"}`, http.StatusConflict)
	case errors.Is(err, ErrUnknownStep):
		http.Error(w, `{"error": "unknown step"}`, http.StatusBadRequest)
	default:
		http.Error(w, `{"error": "`+err.Error()+`"}`, http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseIndex(raw string) (int, bool) {
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
