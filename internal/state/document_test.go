package state

import (
	"encoding/json"
	"slices"
	"testing"

	"CollabCanvas/internal/geometry"
)

func rect(id LayerID, x, y, w, h float64) *Rectangle {
	return &Rectangle{
		Common: Common{ID: id, X: x, Y: y, Opacity: DefaultOpacity},
		Box:    Box{Width: w, Height: h},
		Fill:   DefaultFill,
	}
}

func mustApply(t *testing.T, d *Document, op Op) (*Document, []Op) {
	t.Helper()
	next, rev, ok := d.Apply(op)
	if !ok {
		t.Fatalf("%s %s did not apply", op.Type, op.ID)
	}
	if err := next.Validate(); err != nil {
		t.Fatalf("after %s %s: %v", op.Type, op.ID, err)
	}
	return next, rev
}

func snapshot(t *testing.T, d *Document) string {
	t.Helper()
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func threeLayers(t *testing.T) *Document {
	t.Helper()
	d := NewDocument()
	d, _ = mustApply(t, d, InsertOp(rect("a", 0, 0, 10, 10)))
	d, _ = mustApply(t, d, InsertOp(rect("b", 20, 0, 10, 10)))
	d, _ = mustApply(t, d, InsertOp(rect("c", 40, 0, 10, 10)))
	return d
}

func TestDocument_InsertAppendsToFront(t *testing.T) {
	d := threeLayers(t)
	if got := d.Order(); !slices.Equal(got, []LayerID{"a", "b", "c"}) {
		t.Fatalf("order %v, want [a b c]", got)
	}
	if d.Len() != 3 {
		t.Errorf("Len %d, want 3", d.Len())
	}
}

func TestDocument_InsertIsImmutable(t *testing.T) {
	d := NewDocument()
	next, _ := mustApply(t, d, InsertOp(rect("a", 0, 0, 10, 10)))
	if d.Len() != 0 {
		t.Errorf("original document changed: Len %d", d.Len())
	}
	if next.Len() != 1 {
		t.Errorf("next Len %d, want 1", next.Len())
	}
}

func TestDocument_InsertDuplicateIsNoop(t *testing.T) {
	d := threeLayers(t)
	if _, _, ok := d.Apply(InsertOp(rect("a", 5, 5, 1, 1))); ok {
		t.Fatal("duplicate insert applied")
	}
	if _, _, ok := d.Apply(InsertOp(rect("", 5, 5, 1, 1))); ok {
		t.Fatal("insert without id applied")
	}
}

func TestDocument_InsertRespectsCap(t *testing.T) {
	d := NewDocument()
	for i := 0; i < MaxLayers; i++ {
		d, _ = mustApply(t, d, InsertOp(rect(NewLayerID(), float64(i), 0, 1, 1)))
	}
	before := snapshot(t, d)
	next, _, ok := d.Apply(InsertOp(rect(NewLayerID(), 0, 0, 1, 1)))
	if ok {
		t.Fatal("insert past the cap applied")
	}
	if snapshot(t, next) != before {
		t.Error("document changed after capped insert")
	}
}

func TestDocument_MissingReferencesAreNoops(t *testing.T) {
	d := threeLayers(t)
	ops := []Op{
		PatchOp("missing", Patch{X: Ptr(1.0)}),
		DeleteOp("missing"),
		MoveOp("missing", 0),
		ReparentOp("missing", "", -1),
		ReparentOp("a", "missing", -1),
		ReparentOp("a", "b", -1), // b is not a container
	}
	for _, op := range ops {
		if _, _, ok := d.Apply(op); ok {
			t.Errorf("%s %s applied", op.Type, op.ID)
		}
	}
}

func TestDocument_DoubleDeleteIsNoop(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, DeleteOp("b"))
	if _, _, ok := d.Apply(DeleteOp("b")); ok {
		t.Fatal("second delete applied")
	}
	if got := d.Order(); !slices.Equal(got, []LayerID{"a", "c"}) {
		t.Errorf("order %v, want [a c]", got)
	}
}

func TestDocument_PatchClampsOpacity(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, PatchOp("a", Patch{Opacity: Ptr(250.0)}))
	l, _ := d.Layer("a")
	if l.Base().Opacity != 100 {
		t.Errorf("opacity %v, want 100", l.Base().Opacity)
	}
}

func TestDocument_PatchIgnoresForeignFields(t *testing.T) {
	d := threeLayers(t)
	if _, _, ok := d.Apply(PatchOp("a", Patch{X2: Ptr(5.0), Text: Ptr("hi")})); ok {
		t.Fatal("patch of fields a rectangle does not have applied")
	}
}

func TestDocument_ConcurrentPatchesOnDisjointFieldsCommute(t *testing.T) {
	d := threeLayers(t)
	px := PatchOp("a", Patch{X: Ptr(7.0)})
	pf := PatchOp("a", Patch{Fill: Ptr(Color("#ff0000"))})

	one, _ := d.ApplyAll([]Op{px, pf})
	two, _ := d.ApplyAll([]Op{pf, px})
	if snapshot(t, one) != snapshot(t, two) {
		t.Error("disjoint-field patches do not commute")
	}
}

func TestDocument_SameFieldLastWriteWins(t *testing.T) {
	d := threeLayers(t)
	d, _ = d.ApplyAll([]Op{
		PatchOp("a", Patch{X: Ptr(1.0)}),
		PatchOp("a", Patch{X: Ptr(2.0)}),
	})
	l, _ := d.Layer("a")
	if l.Base().X != 2 {
		t.Errorf("x %v, want 2", l.Base().X)
	}
}

func TestDocument_Move(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, MoveOp("c", 0))
	if got := d.Order(); !slices.Equal(got, []LayerID{"c", "a", "b"}) {
		t.Fatalf("order %v, want [c a b]", got)
	}
	d, _ = mustApply(t, d, MoveOp("c", -1))
	if got := d.Order(); !slices.Equal(got, []LayerID{"a", "b", "c"}) {
		t.Fatalf("order %v, want [a b c]", got)
	}
}

func TestDocument_InsertContainerAdoptsChildren(t *testing.T) {
	d := threeLayers(t)
	g := &Group{Common: Common{ID: "g", Opacity: DefaultOpacity}, Children: []LayerID{"a", "c", "missing"}}
	d, _ = mustApply(t, d, InsertOp(g))

	l, _ := d.Layer("g")
	if got := Children(l); !slices.Equal(got, []LayerID{"a", "c"}) {
		t.Fatalf("children %v, want [a c]", got)
	}
	for _, id := range []LayerID{"a", "c"} {
		child, _ := d.Layer(id)
		if child.Base().ParentID != "g" {
			t.Errorf("%s parent %q, want g", id, child.Base().ParentID)
		}
	}
}

func TestDocument_InsertWithInvalidParentGoesTopLevel(t *testing.T) {
	d := threeLayers(t)
	r := rect("d", 0, 0, 1, 1)
	r.ParentID = "a"
	d, _ = mustApply(t, d, InsertOp(r))
	l, _ := d.Layer("d")
	if l.Base().ParentID != "" {
		t.Errorf("parent %q, want top level", l.Base().ParentID)
	}
}

func TestDocument_DeleteContainerReleasesChildren(t *testing.T) {
	d := threeLayers(t)
	f := &Frame{Common: Common{ID: "outer", Opacity: DefaultOpacity}, Box: Box{Width: 100, Height: 100}}
	d, _ = mustApply(t, d, InsertOp(f))
	d, _ = mustApply(t, d, InsertOp(&Group{Common: Common{ID: "g", Opacity: DefaultOpacity, ParentID: "outer"}, Children: []LayerID{"a", "b"}}))
	d, _ = mustApply(t, d, DeleteOp("g"))

	outer, _ := d.Layer("outer")
	if got := Children(outer); !slices.Equal(got, []LayerID{"a", "b"}) {
		t.Fatalf("outer children %v, want [a b]", got)
	}
	a, _ := d.Layer("a")
	if a.Base().ParentID != "outer" {
		t.Errorf("a parent %q, want outer", a.Base().ParentID)
	}
}

func TestDocument_ReparentRejectsCycles(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, InsertOp(&Frame{Common: Common{ID: "f1", Opacity: DefaultOpacity}}))
	d, _ = mustApply(t, d, InsertOp(&Frame{Common: Common{ID: "f2", Opacity: DefaultOpacity, ParentID: "f1"}}))

	if _, _, ok := d.Apply(ReparentOp("f1", "f2", -1)); ok {
		t.Fatal("reparenting a frame under its own child applied")
	}
	if _, _, ok := d.Apply(ReparentOp("f1", "f1", -1)); ok {
		t.Fatal("reparenting a frame under itself applied")
	}
	if !d.IsAncestor("f1", "f2") {
		t.Error("f1 should contain f2")
	}
	if d.IsAncestor("", "a") {
		t.Error("the top level is not an ancestor")
	}
}

func TestDocument_ReverseOpsRestore(t *testing.T) {
	base := threeLayers(t)
	base, _ = mustApply(t, base, InsertOp(&Frame{Common: Common{ID: "f", Opacity: DefaultOpacity}, Box: Box{Width: 50, Height: 50}, Children: []LayerID{"b"}}))

	cases := []struct {
		name string
		op   Op
	}{
		{"insert group", InsertOp(&Group{Common: Common{ID: "g", Opacity: DefaultOpacity}, Children: []LayerID{"c", "a"}})},
		{"patch", PatchOp("a", Patch{X: Ptr(99.0), Fill: Ptr(Color("#000000"))})},
		{"delete leaf", DeleteOp("a")},
		{"delete frame", DeleteOp("f")},
		{"move", MoveOp("a", -1)},
		{"reparent in", ReparentOp("a", "f", 0)},
		{"reparent out", ReparentOp("b", "", -1)},
		{"background", BackgroundOp("#000000")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, rev := mustApply(t, base, tc.op)
			back, _ := next.ApplyAll(rev)
			if err := back.Validate(); err != nil {
				t.Fatalf("after reverse: %v", err)
			}
			if got, want := snapshot(t, back), snapshot(t, base); got != want {
				t.Errorf("reverse did not restore\n got %s\nwant %s", got, want)
			}
		})
	}
}

func TestDocument_Root(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, InsertOp(&Group{Common: Common{ID: "inner", Opacity: DefaultOpacity}, Children: []LayerID{"a"}}))
	d, _ = mustApply(t, d, InsertOp(&Group{Common: Common{ID: "outer", Opacity: DefaultOpacity}, Children: []LayerID{"inner"}}))
	if got := d.Root("a"); got != "outer" {
		t.Errorf("Root(a) = %s, want outer", got)
	}
	d, _ = mustApply(t, d, InsertOp(&Frame{Common: Common{ID: "f", Opacity: DefaultOpacity}, Children: []LayerID{"b"}}))
	if got := d.Root("b"); got != "b" {
		t.Errorf("Root(b) = %s, want b (frames stop the climb)", got)
	}
}

func TestDocument_HiddenFollowsAncestors(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, InsertOp(&Group{Common: Common{ID: "g", Opacity: DefaultOpacity}, Children: []LayerID{"a"}}))
	d, _ = mustApply(t, d, InsertOp(&Frame{Common: Common{ID: "f", Opacity: DefaultOpacity, Hidden: true}, Children: []LayerID{"g"}}))

	for id, want := range map[LayerID]bool{"f": true, "g": true, "a": true, "b": false, "missing": true} {
		if got := d.Hidden(id); got != want {
			t.Errorf("Hidden(%s) = %v, want %v", id, got, want)
		}
	}
}

func TestDocument_JSONRoundTrip(t *testing.T) {
	d := threeLayers(t)
	d, _ = mustApply(t, d, InsertOp(&Group{Common: Common{ID: "g", Opacity: DefaultOpacity}, Children: []LayerID{"a", "b"}}))
	p, _ := NewPath([]geometry.StrokePoint{{X: 10, Y: 10, Pressure: 0.5}, {X: 30, Y: 20, Pressure: 0.7}}, DefaultInk)
	p.ID = "p"
	d, _ = mustApply(t, d, InsertOp(p))

	var back Document
	if err := json.Unmarshal([]byte(snapshot(t, d)), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got, want := snapshot(t, &back), snapshot(t, d); got != want {
		t.Errorf("round trip mismatch\n got %s\nwant %s", got, want)
	}
	l, _ := back.Layer("p")
	if _, ok := l.(*Path); !ok {
		t.Errorf("layer p decoded as %T", l)
	}
}

func TestDocument_UnmarshalRejectsBrokenLinks(t *testing.T) {
	data := `{"background":"#fff","order":["a"],"layers":[{"kind":"rectangle","layer":{"id":"a","x":0,"y":0,"opacity":100,"parentId":"ghost","width":1,"height":1}}]}`
	var d Document
	if err := json.Unmarshal([]byte(data), &d); err == nil {
		t.Fatal("expected an error for a dangling parent")
	}
}

func TestOp_JSONCarriesLayer(t *testing.T) {
	op := InsertAtOp(rect("a", 1, 2, 3, 4), 2, -1)
	b, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Op
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r, ok := back.Layer.(*Rectangle)
	if !ok {
		t.Fatalf("layer decoded as %T", back.Layer)
	}
	if r.ID != "a" || r.Width != 3 || back.Index != 2 || back.ChildIndex != -1 {
		t.Errorf("decoded %+v index %d child %d", r, back.Index, back.ChildIndex)
	}
}

func TestUnmarshalLayer_UnknownKind(t *testing.T) {
	if _, err := UnmarshalLayer([]byte(`{"kind":"blob","layer":{}}`)); err == nil {
		t.Fatal("expected ErrUnknownKind")
	}
}
