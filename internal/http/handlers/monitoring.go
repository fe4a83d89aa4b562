package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/notify"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// MonitoringHandler checks reported workflow stats against a session's
// monitoring thresholds and triggers the configured alerts.
type MonitoringHandler struct {
	sessions *wizard.Store
	notify   *notify.Service
	logger   *logging.Logger
}

func NewMonitoringHandler(sessions *wizard.Store, notifySvc *notify.Service, logger *logging.Logger) *MonitoringHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &MonitoringHandler{sessions: sessions, notify: notifySvc, logger: logger}
}

func (h *MonitoringHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{sessionID}/check", h.CheckStats)
	return r
}

// CheckStatsRequest carries one observed monitoring window.
type CheckStatsRequest struct {
	OwnerEmail        string  `json:"ownerEmail,omitempty"`
	AvgResponseTimeMs int     `json:"avgResponseTimeMs"`
	ErrorRatePercent  float64 `json:"errorRatePercent"`
	DailyVolume       int     `json:"dailyVolume"`
}

// CheckStats evaluates the stats against the session's monitoring config.
// Breached thresholds alert through the notify service and are echoed back;
// an empty breach list means everything is within limits.
// POST /monitoring/{sessionID}/check
func (h *MonitoringHandler) CheckStats(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}

	var req CheckStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	stats := notify.Stats{
		WorkflowID:        session.WorkflowID,
		WorkflowName:      session.Name,
		AvgResponseTimeMs: req.AvgResponseTimeMs,
		ErrorRatePercent:  req.ErrorRatePercent,
		DailyVolume:       req.DailyVolume,
	}
	breaches := h.notify.CheckThresholds(r.Context(), req.OwnerEmail, session.Aggregate.Monitoring, stats)
	if breaches == nil {
		breaches = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"breaches": breaches})
}
