package state

import (
	"slices"

	"CollabCanvas/internal/geometry"
)

// Duplicate returns copies of layers under fresh ids, moved by delta. Parent
// and children links inside the set follow the new ids; links that leave the
// set are cut.
func Duplicate(layers []Layer, delta geometry.Point) []Layer {
	ids := make(map[LayerID]LayerID, len(layers))
	for _, l := range layers {
		ids[l.common().ID] = NewLayerID()
	}
	out := make([]Layer, 0, len(layers))
	for _, l := range layers {
		c := l.clone()
		base := c.common()
		base.ID = ids[base.ID]
		base.X += delta.X
		base.Y += delta.Y
		base.ParentID = ids[base.ParentID]
		if s, ok := c.(segmented); ok {
			seg := s.segment()
			seg.X2 += delta.X
			seg.Y2 += delta.Y
		}
		if ct, ok := c.(container); ok {
			var children []LayerID
			for _, child := range *ct.children() {
				if id, ok := ids[child]; ok {
					children = append(children, id)
				}
			}
			*ct.children() = slices.Clip(children)
		}
		out = append(out, c)
	}
	return out
}
