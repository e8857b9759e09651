package presence

import (
	"slices"
	"testing"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/state"
)

type recordingSender struct {
	sent []Record
}

func (r *recordingSender) SendPresence(rec Record) { r.sent = append(r.sent, rec) }

func TestChannel_PublishMergesPartialUpdates(t *testing.T) {
	s := &recordingSender{}
	c := NewChannel("ana", s)

	c.Publish(WithCursor(geometry.Point{X: 3, Y: 4}))
	c.Publish(WithSelection("a", "b", "a"))

	self := c.Self()
	if self.Cursor == nil || *self.Cursor != (geometry.Point{X: 3, Y: 4}) {
		t.Errorf("cursor %v, want (3,4)", self.Cursor)
	}
	if !slices.Equal(self.Selection, []state.LayerID{"a", "b"}) {
		t.Errorf("selection %v, want [a b]", self.Selection)
	}
	if len(s.sent) != 2 {
		t.Fatalf("sent %d records, want 2", len(s.sent))
	}
	if last := s.sent[1]; last.Cursor == nil || last.User != "ana" {
		t.Errorf("second send is not the full record: %+v", last)
	}
}

func TestChannel_Draft(t *testing.T) {
	c := NewLocalChannel("ana")
	c.Publish(WithDraft(geometry.StrokePoint{X: 1, Y: 1, Pressure: 0.5}), WithDraftColor("#123456"))
	c.Publish(AppendDraft(geometry.StrokePoint{X: 2, Y: 2, Pressure: 0.5}))
	if got := len(c.Self().Draft); got != 2 {
		t.Fatalf("draft has %d points, want 2", got)
	}
	c.Publish(WithoutDraft())
	if c.Self().Draft != nil {
		t.Error("draft not cleared")
	}
	if c.Self().DraftColor != "#123456" {
		t.Error("draft color lost")
	}
}

func TestChannel_SelfIsACopy(t *testing.T) {
	c := NewLocalChannel("ana")
	c.Publish(WithSelection("a"))
	self := c.Self()
	self.Selection[0] = "z"
	if c.Self().Selection[0] != "a" {
		t.Error("modifying a returned record changed the channel")
	}
}

func TestChannel_ReceiveAndLeave(t *testing.T) {
	c := NewLocalChannel("ana")
	events := c.Subscribe()
	defer c.Unsubscribe(events)

	c.Receive("conn-1", Record{User: "ben", Selection: []state.LayerID{"x"}})
	if ev := <-events; ev.Conn != "conn-1" || ev.Left {
		t.Errorf("event %+v", ev)
	}
	if got := c.Others()["conn-1"].User; got != "ben" {
		t.Errorf("user %q, want ben", got)
	}

	c.Leave("conn-1")
	if ev := <-events; !ev.Left {
		t.Errorf("event %+v, want a leave", ev)
	}
	if len(c.Others()) != 0 {
		t.Error("record survived Leave")
	}
	c.Leave("conn-1")
	select {
	case ev := <-events:
		t.Errorf("unexpected event %+v for an unknown connection", ev)
	default:
	}
}

func TestChannel_HydrateMarksReadyAndResends(t *testing.T) {
	s := &recordingSender{}
	c := NewChannel("ana", s)
	if c.Ready() {
		t.Fatal("ready before Hydrate")
	}
	c.Receive("stale", Record{User: "old"})
	c.Hydrate(map[ConnID]Record{"conn-2": {User: "cy"}})

	if !c.Ready() {
		t.Fatal("not ready after Hydrate")
	}
	others := c.Others()
	if _, ok := others["stale"]; ok {
		t.Error("stale record survived Hydrate")
	}
	if others["conn-2"].User != "cy" {
		t.Errorf("others %v", others)
	}
	if len(s.sent) != 1 || s.sent[0].User != "ana" {
		t.Errorf("sent %v, want our own record once", s.sent)
	}
}

func TestChannel_PruneSelection(t *testing.T) {
	c := NewLocalChannel("ana")
	doc, _, _ := state.NewDocument().Apply(state.InsertOp(&state.Rectangle{Common: state.Common{ID: "a"}}))
	c.Publish(WithSelection("a", "gone"))

	if !c.PruneSelection(doc) {
		t.Fatal("PruneSelection reported no change")
	}
	if got := c.Selection(); !slices.Equal(got, []state.LayerID{"a"}) {
		t.Errorf("selection %v, want [a]", got)
	}
	if c.PruneSelection(doc) {
		t.Error("second prune reported a change")
	}
}
