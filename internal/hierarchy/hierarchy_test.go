package hierarchy

import (
	"slices"
	"testing"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

// setup returns a gateway over a document holding rectangles with the given
// ids, laid out left to right, back to front in the listed order.
func setup(t *testing.T, ids ...state.LayerID) *mutation.Gateway {
	t.Helper()
	g := mutation.New(state.NewLocalStore(), presence.NewLocalChannel("ana"), 0)
	for i, id := range ids {
		r := state.New(state.KindRectangle, geometry.Point{X: float64(i) * 200})
		if _, ok := g.Store().Insert(state.WithID(r, id)); !ok {
			t.Fatalf("insert %s failed", id)
		}
	}
	return g
}

func selectIDs(g *mutation.Gateway, ids ...state.LayerID) {
	g.Presence().Publish(presence.WithSelection(ids...))
}

func parentOf(t *testing.T, g *mutation.Gateway, id state.LayerID) state.LayerID {
	t.Helper()
	l, ok := g.Document().Layer(id)
	if !ok {
		t.Fatalf("layer %s missing", id)
	}
	return l.Base().ParentID
}

func valid(t *testing.T, g *mutation.Gateway) {
	t.Helper()
	if err := g.Document().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestGroup_NeedsTwoLayers(t *testing.T) {
	g := setup(t, "a", "b")
	selectIDs(g, "a")
	if Group(g) {
		t.Fatal("grouping a single layer applied")
	}
	if g.Document().Len() != 2 || g.CanUndo() {
		t.Error("document or history changed")
	}
}

func TestGroup_SelectsNewGroup(t *testing.T) {
	g := setup(t, "a", "b", "c")
	selectIDs(g, "c", "a")
	if !Group(g) {
		t.Fatal("group did not apply")
	}
	valid(t, g)

	sel := g.Presence().Selection()
	if len(sel) != 1 {
		t.Fatalf("selection %v, want the new group", sel)
	}
	grp, _ := g.Document().Layer(sel[0])
	if grp.Kind() != state.KindGroup {
		t.Fatalf("selected %s, want a group", grp.Kind())
	}
	if got := state.Children(grp); !slices.Equal(got, []state.LayerID{"a", "c"}) {
		t.Errorf("children %v, want [a c]", got)
	}
	if b := state.Bounds(grp); b != (geometry.Rect{X: 0, Y: 0, Width: 500, Height: 100}) {
		t.Errorf("group bounds %+v", b)
	}
	if parentOf(t, g, "b") != "" {
		t.Error("unselected layer was grouped")
	}
}

func TestGroup_UngroupRoundTrip(t *testing.T) {
	g := setup(t, "a", "b")
	selectIDs(g, "a", "b")
	Group(g)
	if !Ungroup(g) {
		t.Fatal("ungroup did not apply")
	}
	valid(t, g)

	d := g.Document()
	if d.Len() != 2 {
		t.Fatalf("Len %d, want 2", d.Len())
	}
	for _, id := range []state.LayerID{"a", "b"} {
		if p := parentOf(t, g, id); p != "" {
			t.Errorf("%s parent %q, want top level", id, p)
		}
	}
	if got := g.Presence().Selection(); !slices.Equal(got, []state.LayerID{"a", "b"}) {
		t.Errorf("selection %v, want the freed children", got)
	}
}

func TestGroup_UndoRestoresMembership(t *testing.T) {
	g := setup(t, "a", "b")
	selectIDs(g, "a", "b")
	Group(g)
	g.Undo()
	valid(t, g)
	if g.Document().Len() != 2 || parentOf(t, g, "a") != "" {
		t.Errorf("undo left order %v", g.Document().Order())
	}
	if got := g.Presence().Selection(); !slices.Equal(got, []state.LayerID{"a", "b"}) {
		t.Errorf("selection %v after undo, want [a b]", got)
	}
}

func TestGroup_InsideSharedFrame(t *testing.T) {
	g := setup(t, "a", "b")
	selectIDs(g, "a", "b")
	WrapInFrame(g)
	frame := g.Presence().Selection()[0]
	selectIDs(g, "a", "b")
	Group(g)
	valid(t, g)
	grp := g.Presence().Selection()[0]
	if p := parentOf(t, g, grp); p != frame {
		t.Errorf("group parent %q, want the frame %q", p, frame)
	}
}

func TestWrapInFrame(t *testing.T) {
	g := setup(t, "a")
	selectIDs(g, "a")
	if !WrapInFrame(g) {
		t.Fatal("frame did not apply")
	}
	valid(t, g)
	sel := g.Presence().Selection()
	l, _ := g.Document().Layer(sel[0])
	f, ok := l.(*state.Frame)
	if !ok {
		t.Fatalf("selected %T, want a frame", l)
	}
	if f.Name != "Frame 1" || f.Fill != state.FrameFill {
		t.Errorf("frame name %q fill %q", f.Name, f.Fill)
	}
	want := geometry.Rect{X: -FramePadding, Y: -FramePadding, Width: 100 + 2*FramePadding, Height: 100 + 2*FramePadding}
	if b := state.Bounds(f); b != want {
		t.Errorf("frame bounds %+v, want %+v", b, want)
	}
	if order := g.Document().Order(); order[0] != f.ID {
		t.Errorf("order %v, want the frame behind its child", order)
	}
}

func TestDrop_OntoFrameNests(t *testing.T) {
	g := setup(t, "a", "b")
	selectIDs(g, "a")
	WrapInFrame(g)
	frame := g.Presence().Selection()[0]

	if !Drop(g, "b", frame) {
		t.Fatal("drop did not apply")
	}
	valid(t, g)
	if p := parentOf(t, g, "b"); p != frame {
		t.Errorf("b parent %q, want %q", p, frame)
	}
}

func TestDrop_OntoLayerReorders(t *testing.T) {
	g := setup(t, "a", "b", "c")
	if !Drop(g, "c", "a") {
		t.Fatal("drop did not apply")
	}
	if got := g.Document().Order(); !slices.Equal(got, []state.LayerID{"a", "c", "b"}) {
		t.Errorf("order %v, want [a c b]", got)
	}
	Drop(g, "a", "b")
	if got := g.Document().Order(); !slices.Equal(got, []state.LayerID{"c", "b", "a"}) {
		t.Errorf("order %v, want [c b a]", got)
	}
}

func TestDrop_RejectsSelfAndDescendants(t *testing.T) {
	g := setup(t, "a")
	selectIDs(g, "a")
	WrapInFrame(g)
	frame := g.Presence().Selection()[0]
	if Drop(g, frame, "a") {
		t.Error("dropping a frame onto its own child applied")
	}
	if Drop(g, "a", "a") {
		t.Error("dropping a layer onto itself applied")
	}
}

func TestBringToFrontAndSendToBack(t *testing.T) {
	g := setup(t, "a", "b", "c", "d")
	selectIDs(g, "c", "a")
	BringToFront(g)
	if got := g.Document().Order(); !slices.Equal(got, []state.LayerID{"b", "d", "a", "c"}) {
		t.Fatalf("order %v, want [b d a c]", got)
	}
	SendToBack(g)
	if got := g.Document().Order(); !slices.Equal(got, []state.LayerID{"a", "c", "b", "d"}) {
		t.Errorf("order %v, want [a c b d]", got)
	}
}

func TestDeleteSelection_Cascades(t *testing.T) {
	g := setup(t, "a", "b", "c")
	selectIDs(g, "a", "b")
	Group(g)
	if !DeleteSelection(g) {
		t.Fatal("delete did not apply")
	}
	valid(t, g)
	if got := g.Document().Order(); !slices.Equal(got, []state.LayerID{"c"}) {
		t.Errorf("order %v, want [c]", got)
	}
	if len(g.Presence().Selection()) != 0 {
		t.Error("selection not cleared")
	}
	g.Undo()
	valid(t, g)
	if g.Document().Len() != 4 {
		t.Errorf("Len %d after undo, want 4", g.Document().Len())
	}
}

func TestSubtreeAndDuplicate(t *testing.T) {
	g := setup(t, "a", "b", "c")
	selectIDs(g, "a", "b")
	Group(g)
	grp := g.Presence().Selection()[0]

	copied := Subtree(g.Document(), []state.LayerID{grp, "a"})
	if len(copied) != 3 {
		t.Fatalf("subtree has %d layers, want 3", len(copied))
	}
	dup := state.Duplicate(copied, geometry.Point{X: 10, Y: 10})
	g.Run(func(tx *mutation.Tx) {
		for _, l := range dup {
			tx.Apply(state.InsertAtOp(l, -1, -1))
		}
	}, mutation.Options{})
	valid(t, g)
	if g.Document().Len() != 7 {
		t.Fatalf("Len %d, want 7", g.Document().Len())
	}
	for _, l := range dup {
		if l.Kind() != state.KindGroup {
			continue
		}
		kids := state.Children(l)
		if len(kids) != 2 {
			t.Fatalf("duplicated group has children %v", kids)
		}
		for _, k := range kids {
			if p := parentOf(t, g, k); p != l.Base().ID {
				t.Errorf("duplicate child %s parent %q, want %q", k, p, l.Base().ID)
			}
		}
	}
}
