// Package handlers holds HTTP handlers that sit outside the wizard and
// canvas domains: prefill, AI suggestions, submission history, and the
// integration provider catalog.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/prefill"
	"github.com/flowline-ai/flowline/internal/suggest"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// AssistHandler serves website prefill and LLM suggestion endpoints.
type AssistHandler struct {
	sessions *wizard.Store
	suggest  *suggest.Service
	logger   *logging.Logger
}

func NewAssistHandler(sessions *wizard.Store, suggestSvc *suggest.Service, logger *logging.Logger) *AssistHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AssistHandler{sessions: sessions, suggest: suggestSvc, logger: logger}
}

func (h *AssistHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/prefill", h.PrefillFromWebsite)
	if h.suggest.Enabled() {
		r.Post("/{sessionID}/suggest/templates", h.SuggestTemplates)
		r.Post("/{sessionID}/suggest/chat-examples", h.SuggestChatExamples)
	}
	return r
}

// PrefillFromWebsite scrapes a public website for aggregate seed data.
// When a sessionId is provided the result is applied to that session's
// aggregate in place; otherwise only the scraped data is returned.
func (h *AssistHandler) PrefillFromWebsite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WebsiteURL string `json:"websiteUrl"`
		SessionID  string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	websiteURL := strings.TrimSpace(req.WebsiteURL)
	if websiteURL == "" {
		jsonError(w, "websiteUrl is required", http.StatusBadRequest)
		return
	}

	result, err := prefill.ScrapeBrandPrefill(r.Context(), websiteURL)
	if err != nil {
		message := err.Error()
		if strings.Contains(message, "url") {
			jsonError(w, message, http.StatusBadRequest)
			return
		}
		jsonError(w, message, http.StatusBadGateway)
		return
	}

	if req.SessionID != "" {
		session, err := h.sessions.Get(r.Context(), req.SessionID)
		if err != nil {
			jsonError(w, "session not found", http.StatusNotFound)
			return
		}
		session.Aggregate = prefill.Apply(result, session.Aggregate)
		if err := h.sessions.Set(r.Context(), session); err != nil {
			h.logger.Error("failed to save prefilled session", "error", err, "session_id", session.ID)
			jsonError(w, "failed to save session", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// SuggestTemplates drafts response templates matching the session's tone.
func (h *AssistHandler) SuggestTemplates(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	suggestions, err := h.suggest.SuggestTemplates(r.Context(), session.Aggregate, countParam(r))
	if err != nil {
		h.logger.Error("template suggestion failed", "error", err, "session_id", session.ID)
		jsonError(w, "suggestion failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// SuggestChatExamples drafts training chat examples in the session's tone.
func (h *AssistHandler) SuggestChatExamples(w http.ResponseWriter, r *http.Request) {
	session, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	suggestions, err := h.suggest.SuggestChatExamples(r.Context(), session.Aggregate, countParam(r))
	if err != nil {
		h.logger.Error("chat example suggestion failed", "error", err, "session_id", session.ID)
		jsonError(w, "suggestion failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *AssistHandler) loadSession(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func countParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("count"))
	return n
}

func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
