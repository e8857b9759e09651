package state

import "slices"

// Txn accumulates ops against a working document. Every op applies to the
// working copy immediately, so later reads inside the same transaction see
// earlier writes. Ops that do not apply are dropped and reported as false.
type Txn struct {
	doc     *Document
	ops     []Op
	reverse []Op
}

// NewTxn starts a transaction on top of doc.
func NewTxn(doc *Document) *Txn { return &Txn{doc: doc} }

// Document returns the working document.
func (t *Txn) Document() *Document { return t.doc }

// Ops returns the ops that applied, in order.
func (t *Txn) Ops() []Op { return slices.Clone(t.ops) }

// Reverse returns the ops that undo the transaction, in the order they must
// be applied.
func (t *Txn) Reverse() []Op { return slices.Clone(t.reverse) }

// Apply performs one op.
func (t *Txn) Apply(op Op) bool {
	next, rev, ok := t.doc.Apply(op)
	if !ok {
		return false
	}
	t.doc = next
	t.ops = append(t.ops, op)
	t.reverse = append(slices.Clone(rev), t.reverse...)
	return true
}

// Insert adds l at the front of the z-order, minting an id when l has none.
func (t *Txn) Insert(l Layer) (LayerID, bool) {
	if l == nil {
		return "", false
	}
	id := l.Base().ID
	if id == "" {
		id = NewLayerID()
		l = WithID(l, id)
	}
	return id, t.Apply(InsertOp(l))
}

func (t *Txn) Patch(id LayerID, p Patch) bool { return t.Apply(PatchOp(id, p)) }
func (t *Txn) Delete(id LayerID) bool         { return t.Apply(DeleteOp(id)) }

// Move places id at index in the z-order.
func (t *Txn) Move(id LayerID, index int) bool { return t.Apply(MoveOp(id, index)) }

// Reparent moves id under parent ("" for the top level).
func (t *Txn) Reparent(id, parent LayerID, childIndex int) bool {
	return t.Apply(ReparentOp(id, parent, childIndex))
}

func (t *Txn) SetBackground(c Color) bool { return t.Apply(BackgroundOp(c)) }
