package canvas

import "sync"

// Event is a canvas interaction delivered to registered handlers.
type Event struct {
	SessionID string `json:"sessionId"`
	NodeID    string `json:"nodeId,omitempty"`
	Name      string `json:"name"`
	Payload   any    `json:"payload,omitempty"`
}

// HandlerFunc reacts to a canvas event.
type HandlerFunc func(Event)

// Dispatcher keeps node event handlers in a side table keyed by node ID, so
// handler registration lives outside the serialized layout and removing a
// node drops its handlers in one call.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[string][]HandlerFunc // nodeID -> event name -> handlers
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]map[string][]HandlerFunc)}
}

// Register attaches a handler to an event on a node.
func (d *Dispatcher) Register(nodeID, event string, fn HandlerFunc) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byEvent, ok := d.handlers[nodeID]
	if !ok {
		byEvent = make(map[string][]HandlerFunc)
		d.handlers[nodeID] = byEvent
	}
	byEvent[event] = append(byEvent[event], fn)
}

// Dispatch invokes every handler registered for the event's node and name.
// It returns the number of handlers called.
func (d *Dispatcher) Dispatch(ev Event) int {
	d.mu.RLock()
	fns := append([]HandlerFunc(nil), d.handlers[ev.NodeID][ev.Name]...)
	d.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
	return len(fns)
}

// Drop removes every handler for a node. Called when the node leaves the
// layout.
func (d *Dispatcher) Drop(nodeID string) {
	d.mu.Lock()
	delete(d.handlers, nodeID)
	d.mu.Unlock()
}
