package canvas

import "testing"

func TestAddNodeDefaults(t *testing.T) {
	l := NewLayout("s1")
	id := l.AddNode("sms", "", 100, 50)
	if id == "" {
		t.Fatal("expected generated node id")
	}
	if len(l.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(l.Nodes))
	}
	n := l.Nodes[0]
	if n.Label != "sms" {
		t.Errorf("label = %q, want type as default", n.Label)
	}
	if n.X != 100 || n.Y != 50 {
		t.Errorf("position = (%v, %v)", n.X, n.Y)
	}

	if l.AddNode("", "Unnamed", 0, 0) != "" {
		t.Error("expected empty id for empty node type")
	}
}

func TestConnectCreatesArrowEdge(t *testing.T) {
	l := NewLayout("s1")
	a := l.AddNode("trigger", "Inbound SMS", 0, 0)
	b := l.AddNode("llm", "Generate Reply", 200, 0)

	edgeID := l.Connect(a, b)
	if edgeID == "" {
		t.Fatal("expected edge id")
	}
	if l.Edges[0].Marker != EdgeMarkerArrow {
		t.Errorf("marker = %q, want %q", l.Edges[0].Marker, EdgeMarkerArrow)
	}

	if l.Connect(a, b) != "" {
		t.Error("duplicate connection should be rejected")
	}
	if l.Connect(a, a) != "" {
		t.Error("self-loop should be rejected")
	}
	if l.Connect(a, "ghost") != "" {
		t.Error("edge to unknown node should be rejected")
	}
	if len(l.Edges) != 1 {
		t.Errorf("edges = %d, want 1", len(l.Edges))
	}
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	l := NewLayout("s1")
	a := l.AddNode("trigger", "", 0, 0)
	b := l.AddNode("llm", "", 0, 0)
	c := l.AddNode("sms", "", 0, 0)
	l.Connect(a, b)
	l.Connect(b, c)
	l.Connect(a, c)

	if !l.RemoveNode(b) {
		t.Fatal("expected removal to succeed")
	}
	if len(l.Nodes) != 2 {
		t.Errorf("nodes = %d, want 2", len(l.Nodes))
	}
	if len(l.Edges) != 1 {
		t.Fatalf("edges = %d, want only a-c to survive", len(l.Edges))
	}
	if l.Edges[0].From != a || l.Edges[0].To != c {
		t.Errorf("surviving edge = %+v", l.Edges[0])
	}

	if l.RemoveNode("ghost") {
		t.Error("removing unknown node should report false")
	}
}

func TestMoveNode(t *testing.T) {
	l := NewLayout("s1")
	id := l.AddNode("sms", "", 0, 0)
	if !l.MoveNode(id, 300, 120) {
		t.Fatal("expected move to succeed")
	}
	if l.Nodes[0].X != 300 || l.Nodes[0].Y != 120 {
		t.Errorf("position = (%v, %v)", l.Nodes[0].X, l.Nodes[0].Y)
	}
	if l.MoveNode("ghost", 1, 1) {
		t.Error("moving unknown node should report false")
	}
}

func TestDisconnect(t *testing.T) {
	l := NewLayout("s1")
	a := l.AddNode("trigger", "", 0, 0)
	b := l.AddNode("sms", "", 0, 0)
	edgeID := l.Connect(a, b)

	if !l.Disconnect(edgeID) {
		t.Fatal("expected disconnect to succeed")
	}
	if len(l.Edges) != 0 {
		t.Errorf("edges = %d, want 0", len(l.Edges))
	}
	if l.Disconnect(edgeID) {
		t.Error("disconnecting twice should report false")
	}
}
