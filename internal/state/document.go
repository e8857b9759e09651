package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
)

// MaxLayers caps the number of layers in a document. Inserts past the cap
// are dropped.
const MaxLayers = 100

// DefaultBackground is the canvas color of a new document.
const DefaultBackground Color = "#f5f5f5"

// ErrInvalidDocument is wrapped by Validate failures.
var ErrInvalidDocument = errors.New("invalid document")

// Document is an immutable snapshot of the canvas: the layers, their
// back-to-front order and the background color. Apply returns a new
// Document; the receiver is never modified.
type Document struct {
	layers     map[LayerID]Layer
	order      []LayerID
	background Color
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{layers: map[LayerID]Layer{}, background: DefaultBackground}
}

func (d *Document) clone() *Document {
	return &Document{
		layers:     maps.Clone(d.layers),
		order:      slices.Clone(d.order),
		background: d.background,
	}
}

// Layer returns the layer with id. The result is shared; do not modify it.
func (d *Document) Layer(id LayerID) (Layer, bool) {
	l, ok := d.layers[id]
	return l, ok
}

// Has reports whether id exists.
func (d *Document) Has(id LayerID) bool {
	_, ok := d.layers[id]
	return ok
}

// Len returns the number of layers.
func (d *Document) Len() int { return len(d.order) }

// Order returns a copy of the back-to-front z-order.
func (d *Document) Order() []LayerID { return slices.Clone(d.order) }

// IndexOf returns the z-order position of id, or -1.
func (d *Document) IndexOf(id LayerID) int { return slices.Index(d.order, id) }

// Background returns the canvas color.
func (d *Document) Background() Color { return d.background }

// Layers returns every layer back to front.
func (d *Document) Layers() []Layer {
	out := make([]Layer, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.layers[id])
	}
	return out
}

// SortByOrder returns ids that exist, sorted back to front.
func (d *Document) SortByOrder(ids []LayerID) []LayerID {
	out := make([]LayerID, 0, len(ids))
	for _, id := range ids {
		if d.Has(id) && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return d.IndexOf(out[i]) < d.IndexOf(out[j]) })
	return out
}

// Parent returns the container holding id, if any.
func (d *Document) Parent(id LayerID) (Layer, bool) {
	l, ok := d.layers[id]
	if !ok || l.common().ParentID == "" {
		return nil, false
	}
	return d.Layer(l.common().ParentID)
}

// Hidden reports whether id is hidden or sits inside a hidden container.
// Unknown ids are hidden.
func (d *Document) Hidden(id LayerID) bool {
	for range len(d.layers) + 1 {
		l, ok := d.layers[id]
		if !ok {
			return true
		}
		if l.common().Hidden {
			return true
		}
		if l.common().ParentID == "" {
			return false
		}
		id = l.common().ParentID
	}
	return false
}

// Descendants lists every layer below id, depth first.
func (d *Document) Descendants(id LayerID) []LayerID {
	var out []LayerID
	var walk func(LayerID)
	walk = func(id LayerID) {
		l, ok := d.layers[id]
		if !ok {
			return
		}
		c, ok := l.(container)
		if !ok {
			return
		}
		for _, child := range *c.children() {
			out = append(out, child)
			walk(child)
		}
	}
	walk(id)
	return out
}

// IsAncestor reports whether ancestor contains id at any depth.
func (d *Document) IsAncestor(ancestor, id LayerID) bool {
	if ancestor == "" {
		return false
	}
	seen := 0
	for l, ok := d.layers[id]; ok && seen <= len(d.layers); l, ok = d.layers[l.common().ParentID] {
		if l.common().ParentID == ancestor {
			return true
		}
		seen++
	}
	return false
}

// Root returns the outermost group containing id, or id itself. Frames stop
// the climb: their children are selected on their own.
func (d *Document) Root(id LayerID) LayerID {
	root := id
	for i := 0; i <= len(d.layers); i++ {
		parent, ok := d.Parent(root)
		if !ok || parent.Kind() != KindGroup {
			break
		}
		root = parent.Base().ID
	}
	return root
}

// Apply performs op and returns the next document, the ops that undo it
// (to be applied in order) and whether anything changed. Ops that refer to
// missing layers, exceed the layer cap or would break the parent/children
// links are dropped.
func (d *Document) Apply(op Op) (*Document, []Op, bool) {
	switch op.Type {
	case OpInsert:
		return d.insert(op)
	case OpPatch:
		return d.patch(op)
	case OpDelete:
		return d.delete(op.ID)
	case OpMove:
		return d.move(op.ID, op.Index)
	case OpReparent:
		return d.reparent(op.ID, op.ParentID, op.ChildIndex)
	case OpBackground:
		if op.Color == d.background {
			return d, nil, false
		}
		next := d.clone()
		next.background = op.Color
		return next, []Op{BackgroundOp(d.background)}, true
	}
	return d, nil, false
}

// ApplyAll applies ops in sequence, skipping the ones that do not apply.
// The returned reverse ops undo every applied op.
func (d *Document) ApplyAll(ops []Op) (*Document, []Op) {
	var reverse []Op
	for _, op := range ops {
		next, rev, ok := d.Apply(op)
		if !ok {
			continue
		}
		d = next
		reverse = append(slices.Clone(rev), reverse...)
	}
	return d, reverse
}

func insertAt[T any](s []T, i int, v T) []T {
	if i < 0 || i > len(s) {
		i = len(s)
	}
	return slices.Insert(s, i, v)
}

// withChildren replaces a container with a copy whose children are edited
// by fn.
func (d *Document) withChildren(id LayerID, fn func([]LayerID) []LayerID) {
	l := d.layers[id].clone()
	c := l.(container).children()
	*c = fn(*c)
	d.layers[id] = l
}

func (d *Document) detach(id LayerID) (parent LayerID, index int) {
	l := d.layers[id]
	parent = l.common().ParentID
	index = -1
	if p, ok := d.layers[parent]; ok {
		index = slices.Index(*p.(container).children(), id)
		d.withChildren(parent, func(ch []LayerID) []LayerID {
			return slices.DeleteFunc(slices.Clone(ch), func(c LayerID) bool { return c == id })
		})
	}
	return parent, index
}

func (d *Document) setParent(id, parent LayerID) {
	l := d.layers[id].clone()
	l.common().ParentID = parent
	d.layers[id] = l
}

func (d *Document) validParent(parent LayerID) bool {
	p, ok := d.layers[parent]
	return ok && IsContainer(p)
}

func (d *Document) insert(op Op) (*Document, []Op, bool) {
	if op.Layer == nil {
		return d, nil, false
	}
	l := op.Layer.clone()
	id := l.common().ID
	if id == "" || d.Has(id) || len(d.order) >= MaxLayers {
		return d, nil, false
	}

	next := d.clone()
	parent := l.common().ParentID
	if parent != "" && !next.validParent(parent) {
		parent = ""
		l.common().ParentID = ""
	}

	var adopt []LayerID
	if c, ok := l.(container); ok {
		for _, child := range *c.children() {
			if !next.Has(child) || child == parent || next.IsAncestor(child, parent) || slices.Contains(adopt, child) {
				continue
			}
			adopt = append(adopt, child)
		}
		*c.children() = nil
	}

	next.layers[id] = l
	next.order = insertAt(next.order, op.Index, id)
	if parent != "" {
		next.withChildren(parent, func(ch []LayerID) []LayerID {
			return insertAt(slices.Clone(ch), op.ChildIndex, id)
		})
	}

	type origin struct {
		id     LayerID
		parent LayerID
		index  int
	}
	var origins []origin
	for _, child := range adopt {
		oldParent := d.layers[child].common().ParentID
		oldIndex := -1
		if p, ok := d.layers[oldParent]; ok {
			oldIndex = slices.Index(*p.(container).children(), child)
		}
		origins = append(origins, origin{child, oldParent, oldIndex})
		next.detach(child)
		next.setParent(child, id)
		next.withChildren(id, func(ch []LayerID) []LayerID { return append(slices.Clone(ch), child) })
	}

	sort.SliceStable(origins, func(i, j int) bool { return origins[i].index < origins[j].index })
	reverse := make([]Op, 0, len(origins)+1)
	for _, o := range origins {
		reverse = append(reverse, ReparentOp(o.id, o.parent, o.index))
	}
	reverse = append(reverse, DeleteOp(id))
	return next, reverse, true
}

func (d *Document) patch(op Op) (*Document, []Op, bool) {
	l, ok := d.layers[op.ID]
	if !ok || op.Patch == nil {
		return d, nil, false
	}
	updated, rev, changed := applyPatch(l, *op.Patch)
	if !changed {
		return d, nil, false
	}
	next := d.clone()
	next.layers[op.ID] = updated
	return next, []Op{PatchOp(op.ID, rev)}, true
}

func (d *Document) delete(id LayerID) (*Document, []Op, bool) {
	l, ok := d.layers[id]
	if !ok {
		return d, nil, false
	}
	next := d.clone()
	orderIndex := next.IndexOf(id)
	parent, childIndex := next.detach(id)

	// Children move up to the deleted container's parent, where it was.
	children := Children(l)
	for i, child := range children {
		next.setParent(child, parent)
		if parent != "" {
			at := childIndex + i
			next.withChildren(parent, func(ch []LayerID) []LayerID {
				return insertAt(slices.Clone(ch), at, child)
			})
		}
	}

	next.order = slices.Delete(next.order, orderIndex, orderIndex+1)
	delete(next.layers, id)

	restored := l.clone()
	if c, ok := restored.(container); ok {
		*c.children() = children
	}
	return next, []Op{InsertAtOp(restored, orderIndex, childIndex)}, true
}

func (d *Document) move(id LayerID, index int) (*Document, []Op, bool) {
	from := d.IndexOf(id)
	if from < 0 {
		return d, nil, false
	}
	last := len(d.order) - 1
	if index < 0 || index > last {
		index = last
	}
	if index == from {
		return d, nil, false
	}
	next := d.clone()
	next.order = slices.Delete(next.order, from, from+1)
	next.order = slices.Insert(next.order, index, id)
	return next, []Op{MoveOp(id, from)}, true
}

func (d *Document) reparent(id, parent LayerID, childIndex int) (*Document, []Op, bool) {
	l, ok := d.layers[id]
	if !ok {
		return d, nil, false
	}
	if parent != "" && (parent == id || !d.validParent(parent) || d.IsAncestor(id, parent)) {
		return d, nil, false
	}
	oldParent := l.common().ParentID
	if oldParent == parent {
		if parent == "" {
			return d, nil, false
		}
		ch := *d.layers[parent].(container).children()
		cur := slices.Index(ch, id)
		if childIndex < 0 || childIndex >= len(ch) {
			childIndex = len(ch) - 1
		}
		if cur == childIndex {
			return d, nil, false
		}
	}

	next := d.clone()
	_, oldIndex := next.detach(id)
	next.setParent(id, parent)
	if parent != "" {
		next.withChildren(parent, func(ch []LayerID) []LayerID {
			return insertAt(slices.Clone(ch), childIndex, id)
		})
	}
	return next, []Op{ReparentOp(id, oldParent, oldIndex)}, true
}

// Validate checks the structural invariants: the z-order is a permutation of
// the layer ids, and every parent link is mirrored exactly once in the
// parent's children.
func (d *Document) Validate() error {
	if len(d.order) != len(d.layers) {
		return fmt.Errorf("%w: %d ids in order, %d layers", ErrInvalidDocument, len(d.order), len(d.layers))
	}
	seen := make(map[LayerID]bool, len(d.order))
	for _, id := range d.order {
		if seen[id] {
			return fmt.Errorf("%w: %s appears twice in order", ErrInvalidDocument, id)
		}
		seen[id] = true
		if !d.Has(id) {
			return fmt.Errorf("%w: order names missing layer %s", ErrInvalidDocument, id)
		}
	}
	for id, l := range d.layers {
		if l.common().ID != id {
			return fmt.Errorf("%w: layer %s stored under %s", ErrInvalidDocument, l.common().ID, id)
		}
		if parent := l.common().ParentID; parent != "" {
			p, ok := d.layers[parent]
			if !ok || !IsContainer(p) {
				return fmt.Errorf("%w: %s has invalid parent %s", ErrInvalidDocument, id, parent)
			}
			n := 0
			for _, c := range *p.(container).children() {
				if c == id {
					n++
				}
			}
			if n != 1 {
				return fmt.Errorf("%w: parent %s lists %s %d times", ErrInvalidDocument, parent, id, n)
			}
			if d.IsAncestor(id, id) {
				return fmt.Errorf("%w: %s is its own ancestor", ErrInvalidDocument, id)
			}
		}
		if c, ok := l.(container); ok {
			for _, child := range *c.children() {
				cl, ok := d.layers[child]
				if !ok || cl.common().ParentID != id {
					return fmt.Errorf("%w: %s lists child %s that does not point back", ErrInvalidDocument, id, child)
				}
			}
		}
	}
	return nil
}
