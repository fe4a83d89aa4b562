package canvas

import "testing"

func TestDispatcherRoutesByNodeAndEvent(t *testing.T) {
	d := NewDispatcher()

	var clicks, drags int
	d.Register("n1", "click", func(Event) { clicks++ })
	d.Register("n1", "click", func(Event) { clicks++ })
	d.Register("n1", "drag", func(Event) { drags++ })

	if n := d.Dispatch(Event{NodeID: "n1", Name: "click"}); n != 2 {
		t.Errorf("dispatched %d handlers, want 2", n)
	}
	if clicks != 2 || drags != 0 {
		t.Errorf("clicks = %d, drags = %d", clicks, drags)
	}

	if n := d.Dispatch(Event{NodeID: "n2", Name: "click"}); n != 0 {
		t.Errorf("unknown node dispatched %d handlers, want 0", n)
	}
}

func TestDispatcherDropClearsNodeHandlers(t *testing.T) {
	d := NewDispatcher()
	fired := false
	d.Register("n1", "click", func(Event) { fired = true })

	d.Drop("n1")
	if n := d.Dispatch(Event{NodeID: "n1", Name: "click"}); n != 0 || fired {
		t.Errorf("expected no handlers after drop, dispatched %d", n)
	}
}

func TestDispatcherIgnoresNilHandler(t *testing.T) {
	d := NewDispatcher()
	d.Register("n1", "click", nil)
	if n := d.Dispatch(Event{NodeID: "n1", Name: "click"}); n != 0 {
		t.Errorf("dispatched %d handlers, want 0", n)
	}
}
