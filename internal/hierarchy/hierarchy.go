// Package hierarchy implements grouping, framing and z-order commands on the
// caller's selection. Every command is one undoable transaction. Children
// keep absolute coordinates: nesting changes membership and paint order only.
package hierarchy

import (
	"fmt"
	"slices"

	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/state"
)

// FramePadding is the margin a new frame leaves around its children.
const FramePadding = 20

var history = mutation.Options{AddToHistory: true}

// roots returns the selected ids that exist, back to front, leaving out any
// whose ancestor is selected too.
func roots(d *state.Document, ids []state.LayerID) []state.LayerID {
	sorted := d.SortByOrder(ids)
	return slices.DeleteFunc(slices.Clone(sorted), func(id state.LayerID) bool {
		return slices.ContainsFunc(sorted, func(other state.LayerID) bool { return d.IsAncestor(other, id) })
	})
}

// sharedParent returns the parent every id has in common, or "".
func sharedParent(d *state.Document, ids []state.LayerID) state.LayerID {
	var parent state.LayerID
	for i, id := range ids {
		l, _ := d.Layer(id)
		p := l.Base().ParentID
		if i > 0 && p != parent {
			return ""
		}
		parent = p
	}
	return parent
}

// childIndex returns the position of the first of ids among parent's
// children, or -1.
func childIndex(d *state.Document, parent state.LayerID, ids []state.LayerID) int {
	p, ok := d.Layer(parent)
	if !ok {
		return -1
	}
	for i, child := range state.Children(p) {
		if slices.Contains(ids, child) {
			return i
		}
	}
	return -1
}

// Group wraps two or more selected layers in a new group and selects it.
func Group(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		members := roots(d, tx.Selection())
		if len(members) < 2 {
			return
		}
		bounds, _ := state.UnionBounds(d, members)
		parent := sharedParent(d, members)
		group := &state.Group{
			Common:   state.Common{ID: state.NewLayerID(), X: bounds.X, Y: bounds.Y, Opacity: state.DefaultOpacity, ParentID: parent},
			Box:      state.Box{Width: bounds.Width, Height: bounds.Height},
			Children: members,
		}
		front := d.IndexOf(members[len(members)-1]) + 1
		if tx.Apply(state.InsertAtOp(group, front, childIndex(d, parent, members))) {
			tx.Select(group.ID)
		}
	}, history)
}

// WrapInFrame places a padded, named frame behind the selected layers and
// makes them its children. A single layer is enough.
func WrapInFrame(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		members := roots(d, tx.Selection())
		if len(members) == 0 {
			return
		}
		bounds, _ := state.UnionBounds(d, members)
		bounds = bounds.Expand(FramePadding)
		parent := sharedParent(d, members)
		frame := &state.Frame{
			Common: state.Common{
				ID: state.NewLayerID(), X: bounds.X, Y: bounds.Y,
				Opacity: state.DefaultOpacity, ParentID: parent,
				Name: fmt.Sprintf("Frame %d", countFrames(d)+1),
			},
			Box:      state.Box{Width: bounds.Width, Height: bounds.Height},
			Fill:     state.FrameFill,
			Children: members,
		}
		if tx.Apply(state.InsertAtOp(frame, d.IndexOf(members[0]), childIndex(d, parent, members))) {
			tx.Select(frame.ID)
		}
	}, history)
}

func countFrames(d *state.Document) int {
	n := 0
	for _, l := range d.Layers() {
		if l.Kind() == state.KindFrame {
			n++
		}
	}
	return n
}

// Ungroup dissolves every selected frame or group that has children: the
// children move to the container's parent where it was, the container is
// deleted and the freed children become the selection.
func Ungroup(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		var freed []state.LayerID
		for _, id := range tx.Selection() {
			l, ok := tx.Document().Layer(id)
			children := state.Children(l)
			if !ok || len(children) == 0 {
				continue
			}
			parent := l.Base().ParentID
			at := childIndex(tx.Document(), parent, []state.LayerID{id})
			for i, child := range children {
				if at >= 0 {
					tx.Reparent(child, parent, at+i)
				} else {
					tx.Reparent(child, parent, -1)
				}
			}
			if tx.Delete(id) {
				freed = append(freed, children...)
			}
		}
		if len(freed) > 0 {
			tx.Select(freed...)
		}
	}, history)
}

// Drop handles dragging source onto target in the layer list. A frame
// target takes source as its last child; any other target gets source next
// to it, just above it in paint order and in the same parent.
func Drop(g *mutation.Gateway, source, target state.LayerID) bool {
	return g.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		src, ok := d.Layer(source)
		dst, ok2 := d.Layer(target)
		if !ok || !ok2 || source == target || d.IsAncestor(source, target) {
			return
		}
		if dst.Kind() == state.KindFrame {
			if src.Base().ParentID != target {
				tx.Reparent(source, target, -1)
			}
		} else {
			parent := dst.Base().ParentID
			if parent != src.Base().ParentID {
				at := childIndex(tx.Document(), parent, []state.LayerID{target})
				if at >= 0 {
					at++
				}
				tx.Reparent(source, parent, at)
			}
		}
		d = tx.Document()
		from, to := d.IndexOf(source), d.IndexOf(target)
		switch {
		case from < to:
			tx.Move(source, to)
		case from > to+1:
			tx.Move(source, to+1)
		}
	}, history)
}

// BringToFront moves the selection to the front of the paint order, keeping
// its relative order.
func BringToFront(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		for _, id := range tx.Document().SortByOrder(tx.Selection()) {
			tx.Move(id, -1)
		}
	}, history)
}

// SendToBack moves the selection to the back of the paint order, keeping its
// relative order.
func SendToBack(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		sel := tx.Document().SortByOrder(tx.Selection())
		for i := len(sel) - 1; i >= 0; i-- {
			tx.Move(sel[i], 0)
		}
	}, history)
}

// DeleteSelection deletes the selection together with everything nested in
// it and clears the selection.
func DeleteSelection(g *mutation.Gateway) bool {
	return g.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		for _, id := range roots(d, tx.Selection()) {
			below := d.Descendants(id)
			for i := len(below) - 1; i >= 0; i-- {
				tx.Delete(below[i])
			}
			tx.Delete(id)
		}
		tx.Select()
	}, history)
}

// Subtree returns deep copies of the listed layers and all their
// descendants, back to front.
func Subtree(d *state.Document, ids []state.LayerID) []state.Layer {
	var all []state.LayerID
	for _, id := range roots(d, ids) {
		all = append(all, id)
		all = append(all, d.Descendants(id)...)
	}
	var out []state.Layer
	for _, id := range d.SortByOrder(all) {
		l, _ := d.Layer(id)
		out = append(out, state.Clone(l))
	}
	return out
}
