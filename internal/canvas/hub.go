package canvas

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"github.com/flowline-ai/flowline/pkg/logging"
)

// Update is broadcast to every viewer of a session's canvas after a change.
type Update struct {
	Type   string  `json:"type"` // "layout"
	Layout *Layout `json:"layout"`
}

// Hub fans canvas updates out to connected WebSocket viewers, grouped by
// session.
type Hub struct {
	logger *logging.Logger

	mu      sync.RWMutex
	viewers map[string]map[*websocket.Conn]struct{} // sessionID -> connections
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:  logger,
		viewers: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWebSocket upgrades the request and keeps the connection subscribed
// to layout updates until the client disconnects.
// GET /canvas/{sessionID}/live
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Hub) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		_ = websocket.JSON.Send(conn, map[string]string{"type": "error", "error": "missing session id"})
		return
	}

	h.mu.Lock()
	conns, ok := h.viewers[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.viewers[sessionID] = conns
	}
	conns[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.viewers[sessionID], conn)
		if len(h.viewers[sessionID]) == 0 {
			delete(h.viewers, sessionID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("canvas: viewer connected", "session_id", sessionID)

	// Viewers only receive; the read loop just detects disconnects.
	for {
		var discard map[string]any
		if err := websocket.JSON.Receive(conn, &discard); err != nil {
			h.logger.Debug("canvas: viewer disconnected", "session_id", sessionID, "error", err)
			return
		}
	}
}

// Broadcast sends the current layout to every viewer of its session.
func (h *Hub) Broadcast(layout *Layout) {
	if h == nil || layout == nil {
		return
	}
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.viewers[layout.SessionID]))
	for conn := range h.viewers[layout.SessionID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		_ = websocket.JSON.Send(conn, Update{Type: "layout", Layout: layout})
	}
}

// ViewerCount reports how many connections are watching a session.
func (h *Hub) ViewerCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[sessionID])
}
