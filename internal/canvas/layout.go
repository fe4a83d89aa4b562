// Package canvas maintains the visual graph layout of a workflow: positioned
// nodes for each configured step and directed edges between them.
package canvas

import (
	"strings"

	"github.com/google/uuid"
)

// EdgeMarkerArrow is the marker rendered at the target end of every edge.
const EdgeMarkerArrow = "arrowhead"

// Node is one positioned element on the canvas.
type Node struct {
	ID    string  `json:"id"`
	Type  string  `json:"type"`
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Edge is a directed connection between two nodes. Marker is always the
// arrowhead; it is stored so renderers need no out-of-band convention.
type Edge struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Marker string `json:"marker"`
}

// Layout is the complete canvas state for one session.
type Layout struct {
	SessionID string `json:"sessionId"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
}

// NewLayout returns an empty layout for a session.
func NewLayout(sessionID string) *Layout {
	return &Layout{SessionID: sessionID, Nodes: []Node{}, Edges: []Edge{}}
}

// AddNode places a new node and returns its generated ID. Empty types are
// rejected with an empty ID; labels default to the type name.
func (l *Layout) AddNode(nodeType, label string, x, y float64) string {
	nodeType = strings.TrimSpace(nodeType)
	if nodeType == "" {
		return ""
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = nodeType
	}
	node := Node{
		ID:    uuid.NewString(),
		Type:  nodeType,
		Label: label,
		X:     x,
		Y:     y,
	}
	l.Nodes = append(l.Nodes, node)
	return node.ID
}

// MoveNode updates a node's position. Unknown IDs are a no-op.
func (l *Layout) MoveNode(nodeID string, x, y float64) bool {
	for i, n := range l.Nodes {
		if n.ID == nodeID {
			l.Nodes[i].X = x
			l.Nodes[i].Y = y
			return true
		}
	}
	return false
}

// RemoveNode deletes a node and cascades to every edge touching it, so the
// layout never holds a dangling edge.
func (l *Layout) RemoveNode(nodeID string) bool {
	found := false
	nodes := l.Nodes[:0]
	for _, n := range l.Nodes {
		if n.ID == nodeID {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	if !found {
		return false
	}
	l.Nodes = nodes

	edges := l.Edges[:0]
	for _, e := range l.Edges {
		if e.From == nodeID || e.To == nodeID {
			continue
		}
		edges = append(edges, e)
	}
	l.Edges = edges
	return true
}

// Connect creates a directed edge between two existing nodes. Self-loops,
// unknown endpoints, and duplicate connections return an empty ID.
func (l *Layout) Connect(fromID, toID string) string {
	if fromID == toID || !l.hasNode(fromID) || !l.hasNode(toID) {
		return ""
	}
	for _, e := range l.Edges {
		if e.From == fromID && e.To == toID {
			return ""
		}
	}
	edge := Edge{
		ID:     uuid.NewString(),
		From:   fromID,
		To:     toID,
		Marker: EdgeMarkerArrow,
	}
	l.Edges = append(l.Edges, edge)
	return edge.ID
}

// Disconnect removes the edge with the given ID.
func (l *Layout) Disconnect(edgeID string) bool {
	for i, e := range l.Edges {
		if e.ID == edgeID {
			l.Edges = append(l.Edges[:i], l.Edges[i+1:]...)
			return true
		}
	}
	return false
}

func (l *Layout) hasNode(id string) bool {
	for _, n := range l.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
