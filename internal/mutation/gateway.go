// Package mutation turns user intents into document transactions and keeps
// this client's undo and redo history.
package mutation

import (
	"slices"
	"sync"

	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

// DefaultHistoryLimit bounds the undo stack when no limit is configured.
const DefaultHistoryLimit = 200

// Options control how a transaction is recorded.
type Options struct {
	AddToHistory bool
}

// Tx gives a running transaction write access to the document and to the
// caller's selection.
type Tx struct {
	*state.Txn
	selection []state.LayerID
	selected  bool
}

// Selection returns the caller's selection as of this transaction.
func (t *Tx) Selection() []state.LayerID { return slices.Clone(t.selection) }

// Select replaces the caller's selection when the transaction ends.
func (t *Tx) Select(ids ...state.LayerID) {
	t.selection = slices.Clone(ids)
	t.selected = true
}

type entry struct {
	ops       []state.Op
	selection []state.LayerID
}

// Gateway runs transactions for one client. Its history only ever contains
// that client's own transactions, stored as the ops that reverse them, so
// undoing never rolls back what other participants wrote since.
type Gateway struct {
	mu       sync.Mutex
	store    *state.Store
	presence *presence.Channel
	limit    int

	undo []entry
	redo []entry

	batching bool
	batch    entry
}

// New returns a gateway writing to store and publishing selection changes
// to p. A limit below one uses DefaultHistoryLimit.
func New(store *state.Store, p *presence.Channel, limit int) *Gateway {
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	return &Gateway{store: store, presence: p, limit: limit}
}

// Store returns the underlying replica.
func (g *Gateway) Store() *state.Store { return g.store }

// Presence returns the caller's presence channel.
func (g *Gateway) Presence() *presence.Channel { return g.presence }

// Document returns the current view of the document.
func (g *Gateway) Document() *state.Document { return g.store.Document() }

// Run executes fn as a single transaction. It reports whether the document
// changed. Selection changes made through the Tx are published even when the
// document did not change.
func (g *Gateway) Run(fn func(*Tx), opts Options) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.run(fn, opts)
}

func (g *Gateway) run(fn func(*Tx), opts Options) bool {
	before := g.presence.Selection()
	var tx *Tx
	reverse, ok := g.store.Transact(func(t *state.Txn) {
		tx = &Tx{Txn: t, selection: slices.Clone(before)}
		fn(tx)
	})
	if tx == nil {
		return false
	}
	if tx.selected {
		g.presence.Publish(presence.WithSelection(existing(g.store.Document(), tx.selection)...))
	} else if ok {
		g.presence.PruneSelection(g.store.Document())
	}
	if ok && opts.AddToHistory {
		g.record(entry{ops: reverse, selection: before})
	}
	return ok
}

func existing(d *state.Document, ids []state.LayerID) []state.LayerID {
	return slices.DeleteFunc(slices.Clone(ids), func(id state.LayerID) bool { return !d.Has(id) })
}

func (g *Gateway) record(e entry) {
	if g.batching {
		g.batch.ops = append(slices.Clone(e.ops), g.batch.ops...)
		return
	}
	g.push(&g.undo, e)
	g.redo = nil
}

func (g *Gateway) push(stack *[]entry, e entry) {
	*stack = append(*stack, e)
	if over := len(*stack) - g.limit; over > 0 {
		*stack = slices.Delete(*stack, 0, over)
	}
}

// BeginBatch starts collecting every recorded transaction into one history
// entry. Calling it while a batch is open does nothing.
func (g *Gateway) BeginBatch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.batching {
		return
	}
	g.batching = true
	g.batch = entry{selection: g.presence.Selection()}
}

// CommitBatch closes the batch and records it as one entry when anything in
// it changed the document.
func (g *Gateway) CommitBatch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.batching {
		return
	}
	g.batching = false
	b := g.batch
	g.batch = entry{}
	if len(b.ops) == 0 {
		return
	}
	g.push(&g.undo, b)
	g.redo = nil
}

// CancelBatch closes the batch and reverts everything written inside it.
// Nothing is recorded.
func (g *Gateway) CancelBatch() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.batching {
		return false
	}
	g.batching = false
	b := g.batch
	g.batch = entry{}
	if len(b.ops) == 0 {
		return false
	}
	_, ok := g.store.Transact(func(t *state.Txn) {
		for _, op := range b.ops {
			t.Apply(op)
		}
	})
	g.presence.PruneSelection(g.store.Document())
	return ok
}

// Batching reports whether a batch is open.
func (g *Gateway) Batching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.batching
}

// Undo reverts this client's most recent entry and makes it redoable. Ops
// that no longer apply, because another participant deleted their target,
// are skipped.
func (g *Gateway) Undo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step(&g.undo, &g.redo)
}

// Redo reapplies the most recently undone entry.
func (g *Gateway) Redo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.step(&g.redo, &g.undo)
}

func (g *Gateway) step(from, to *[]entry) bool {
	if g.batching || !g.store.Ready() {
		return false
	}
	for len(*from) > 0 {
		e := (*from)[len(*from)-1]
		*from = (*from)[:len(*from)-1]
		current := g.presence.Selection()
		reverse, ok := g.store.Transact(func(t *state.Txn) {
			for _, op := range e.ops {
				t.Apply(op)
			}
		})
		if !ok {
			continue
		}
		g.push(to, entry{ops: reverse, selection: current})
		g.presence.Publish(presence.WithSelection(existing(g.store.Document(), e.selection)...))
		return true
	}
	return false
}

func (g *Gateway) CanUndo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.undo) > 0
}

func (g *Gateway) CanRedo() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.redo) > 0
}

// HistoryLen returns the number of undo entries.
func (g *Gateway) HistoryLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.undo)
}
