package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/history"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// HistoryHandler exposes submission history, read-only.
type HistoryHandler struct {
	repo   *history.Repository
	logger *logging.Logger
}

func NewHistoryHandler(repo *history.Repository, logger *logging.Logger) *HistoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HistoryHandler{repo: repo, logger: logger}
}

func (h *HistoryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/sessions/{sessionID}", h.ListBySession)
	r.Get("/owners/{ownerID}", h.ListByOwner)
	return r
}

// ListBySession returns every submission attempt for one session.
func (h *HistoryHandler) ListBySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	entries, err := h.repo.ListBySession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to list session history", "error", err, "session_id", sessionID)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// ListByOwner returns recent submission attempts across an owner's sessions.
func (h *HistoryHandler) ListByOwner(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.repo.ListByOwner(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("failed to list owner history", "error", err, "owner_id", ownerID)
		jsonError(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
