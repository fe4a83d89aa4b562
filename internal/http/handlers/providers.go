package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/internal/providers"
	"github.com/flowline-ai/flowline/internal/wizard"
	"github.com/flowline-ai/flowline/pkg/logging"
)

// ProvidersHandler serves the integration provider catalog with derived
// webhook endpoints.
type ProvidersHandler struct {
	sessions *wizard.Store
	baseURL  string
	logger   *logging.Logger
}

func NewProvidersHandler(sessions *wizard.Store, baseURL string, logger *logging.Logger) *ProvidersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProvidersHandler{sessions: sessions, baseURL: baseURL, logger: logger}
}

func (h *ProvidersHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListProviders)
	r.Get("/sessions/{sessionID}", h.ListForSession)
	return r
}

// ListProviders returns the full catalog with no session context; only the
// always-on channels show as enabled.
func (h *ProvidersHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers.Catalog(h.baseURL, nil),
	})
}

// ListForSession returns the catalog with enabled flags reflecting the
// session's integration settings.
func (h *ProvidersHandler) ListForSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		jsonError(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers": providers.Catalog(h.baseURL, session.Aggregate),
	})
}
