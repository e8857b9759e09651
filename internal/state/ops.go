package state

// OpType names one primitive document change.
type OpType string

const (
	OpInsert     OpType = "insert"
	OpPatch      OpType = "patch"
	OpDelete     OpType = "delete"
	OpMove       OpType = "move"
	OpReparent   OpType = "reparent"
	OpBackground OpType = "background"
)

// Op is one primitive change. Index and ChildIndex below zero mean "at the
// end" (the front of the z-order, the last child).
type Op struct {
	Type       OpType  `json:"type"`
	ID         LayerID `json:"id,omitempty"`
	Layer      Layer   `json:"-"`
	Index      int     `json:"index"`
	ChildIndex int     `json:"childIndex"`
	ParentID   LayerID `json:"parentId,omitempty"`
	Patch      *Patch  `json:"patch,omitempty"`
	Color      Color   `json:"color,omitempty"`
}

// InsertOp appends l at the front of the z-order. A container's Children are
// adopted from wherever they currently live.
func InsertOp(l Layer) Op {
	return Op{Type: OpInsert, ID: l.Base().ID, Layer: l, Index: -1, ChildIndex: -1}
}

// InsertAtOp inserts l at a given z-order index and position among its
// parent's children.
func InsertAtOp(l Layer, index, childIndex int) Op {
	return Op{Type: OpInsert, ID: l.Base().ID, Layer: l, Index: index, ChildIndex: childIndex}
}

func PatchOp(id LayerID, p Patch) Op {
	return Op{Type: OpPatch, ID: id, Patch: &p}
}

// DeleteOp removes a layer. A deleted container's children move up to the
// container's own parent.
func DeleteOp(id LayerID) Op {
	return Op{Type: OpDelete, ID: id}
}

// MoveOp moves a layer to index in the z-order.
func MoveOp(id LayerID, index int) Op {
	return Op{Type: OpMove, ID: id, Index: index}
}

// ReparentOp makes parent (or the top level, for "") the layer's parent.
func ReparentOp(id, parent LayerID, childIndex int) Op {
	return Op{Type: OpReparent, ID: id, ParentID: parent, ChildIndex: childIndex}
}

func BackgroundOp(c Color) Op {
	return Op{Type: OpBackground, Color: c}
}

// Transaction is the unit of replication: every op in it is applied together.
type Transaction struct {
	ID      string `json:"id"`
	Site    string `json:"site"`
	Lamport uint64 `json:"lamport"`
	Ops     []Op   `json:"ops"`
}
