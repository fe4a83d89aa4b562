package canvas

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowline-ai/flowline/pkg/logging"
)

// Handler provides HTTP endpoints for canvas layout editing.
type Handler struct {
	store  *Store
	hub    *Hub
	logger *logging.Logger
}

// NewHandler creates a canvas HTTP handler. hub may be nil when live
// updates are disabled.
func NewHandler(store *Store, hub *Hub, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, hub: hub, logger: logger}
}

// Routes returns a chi router with canvas routes, mounted per session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{sessionID}", h.GetLayout)
	r.Post("/{sessionID}/nodes", h.AddNode)
	r.Put("/{sessionID}/nodes/{nodeID}/position", h.MoveNode)
	r.Delete("/{sessionID}/nodes/{nodeID}", h.RemoveNode)
	r.Post("/{sessionID}/edges", h.Connect)
	r.Delete("/{sessionID}/edges/{edgeID}", h.Disconnect)
	if h.hub != nil {
		r.Get("/{sessionID}/live", h.hub.HandleWebSocket)
	}
	return r
}

// GetLayout returns the canvas layout for a session.
// GET /canvas/{sessionID}
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

// AddNodeRequest is the request body for placing a node.
type AddNodeRequest struct {
	Type  string  `json:"type"`
	Label string  `json:"label,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// AddNode places a new node on the canvas.
// POST /canvas/{sessionID}/nodes
func (h *Handler) AddNode(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	var req AddNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if layout.AddNode(req.Type, req.Label, req.X, req.Y) == "" {
		http.Error(w, `{"error": "node type required"}`, http.StatusBadRequest)
		return
	}
	h.saveAndBroadcast(w, r, layout)
}

// MoveNode updates a node's position.
// PUT /canvas/{sessionID}/nodes/{nodeID}/position
func (h *Handler) MoveNode(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	var req struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if !layout.MoveNode(chi.URLParam(r, "nodeID"), req.X, req.Y) {
		http.Error(w, `{"error": "node not found"}`, http.StatusNotFound)
		return
	}
	h.saveAndBroadcast(w, r, layout)
}

// RemoveNode deletes a node and its edges.
// DELETE /canvas/{sessionID}/nodes/{nodeID}
func (h *Handler) RemoveNode(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	if !layout.RemoveNode(chi.URLParam(r, "nodeID")) {
		http.Error(w, `{"error": "node not found"}`, http.StatusNotFound)
		return
	}
	h.saveAndBroadcast(w, r, layout)
}

// ConnectRequest is the request body for creating an edge.
type ConnectRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Connect creates a directed edge between two nodes.
// POST /canvas/{sessionID}/edges
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	var req ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if layout.Connect(req.From, req.To) == "" {
		http.Error(w, `{"error": "invalid connection"}`, http.StatusBadRequest)
		return
	}
	h.saveAndBroadcast(w, r, layout)
}

// Disconnect removes an edge.
// DELETE /canvas/{sessionID}/edges/{edgeID}
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	layout, ok := h.loadLayout(w, r)
	if !ok {
		return
	}
	if !layout.Disconnect(chi.URLParam(r, "edgeID")) {
		http.Error(w, `{"error": "edge not found"}`, http.StatusNotFound)
		return
	}
	h.saveAndBroadcast(w, r, layout)
}

func (h *Handler) loadLayout(w http.ResponseWriter, r *http.Request) (*Layout, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, `{"error": "session id required"}`, http.StatusBadRequest)
		return nil, false
	}
	layout, err := h.store.Get(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load canvas layout", "session_id", sessionID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return nil, false
	}
	return layout, true
}

func (h *Handler) saveAndBroadcast(w http.ResponseWriter, r *http.Request, layout *Layout) {
	if err := h.store.Set(r.Context(), layout); err != nil {
		h.logger.Error("failed to save canvas layout", "session_id", layout.SessionID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	h.hub.Broadcast(layout)
	writeJSON(w, http.StatusOK, layout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
