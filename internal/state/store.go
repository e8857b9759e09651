package state

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"CollabCanvas/internal/broadcast"
)

// Status reports the health of the synchronization transport. It is advisory:
// local edits keep applying whatever the status is.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusOpen         Status = "open"
	StatusDisconnected Status = "disconnected"
)

// Transport carries local transactions to the hub. Send must not block: the
// store calls it with its lock held so transactions leave in issue order.
type Transport interface {
	Send(tx Transaction)
}

// Resumer is implemented by transports that drop sends while offline. Resync
// calls Resume under the store lock, before the pending queue is resent.
type Resumer interface {
	Resume()
}

// Change is published after every change to the view or the status.
type Change struct {
	Document *Document
	Status   Status
	Remote   bool
}

// Store is one replica of a room's document. Confirmed holds every
// transaction the hub has sequenced, in sequence order; local transactions
// wait in pending until the hub echoes them back. The view that callers read
// is the confirmed document with pending re-applied on top.
type Store struct {
	mu        sync.Mutex
	site      string
	clock     Clock
	confirmed *Document
	view      *Document
	pending   []Transaction
	seq       uint64
	ready     bool
	status    Status
	transport Transport
	changes   *broadcast.Broadcaster[Change]
}

// NewStore returns a replica that sends local transactions through t. It is
// not ready until the first Resync delivers a snapshot.
func NewStore(site string, t Transport) *Store {
	doc := NewDocument()
	return &Store{
		site:      site,
		confirmed: doc,
		view:      doc,
		status:    StatusConnecting,
		transport: t,
		changes:   broadcast.New[Change](16),
	}
}

// NewLocalStore returns a ready replica with no transport: every transaction
// is confirmed as soon as it applies.
func NewLocalStore() *Store {
	s := NewStore(NewSiteID(), nil)
	s.ready = true
	s.status = StatusOpen
	return s
}

// Site returns the replica's site id.
func (s *Store) Site() string { return s.site }

// Document returns the current view.
func (s *Store) Document() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Ready reports whether an initial snapshot has been received.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Seq returns the sequence number of the last confirmed transaction.
func (s *Store) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Pending returns the number of local transactions not yet confirmed.
func (s *Store) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus records the transport status and notifies subscribers.
func (s *Store) SetStatus(st Status) {
	s.mu.Lock()
	if s.status == st {
		s.mu.Unlock()
		return
	}
	s.status = st
	c := Change{Document: s.view, Status: st, Remote: true}
	s.mu.Unlock()
	log.Printf("[STORE] transport %s", st)
	s.changes.Publish(c)
}

// Transact runs fn against the current view as one transaction. Ops that
// apply are kept; if none apply nothing is sent. It returns the ops that
// undo the transaction and whether anything changed. Before the first
// snapshot it does nothing.
func (s *Store) Transact(fn func(*Txn)) ([]Op, bool) {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil, false
	}
	txn := NewTxn(s.view)
	fn(txn)
	ops := txn.Ops()
	if len(ops) == 0 {
		s.mu.Unlock()
		return nil, false
	}
	lamport := s.clock.Tick()
	tx := Transaction{
		ID:      fmt.Sprintf("tx-%s-%d", s.site, lamport),
		Site:    s.site,
		Lamport: lamport,
		Ops:     ops,
	}
	s.view = txn.Document()
	if s.transport == nil {
		s.confirmed = s.view
	} else {
		s.pending = append(s.pending, tx)
	}
	if s.transport != nil {
		s.transport.Send(tx)
	}
	c := Change{Document: s.view, Status: s.status}
	s.mu.Unlock()

	s.changes.Publish(c)
	return txn.Reverse(), true
}

// Insert adds l in its own transaction and returns the id it was stored
// under.
func (s *Store) Insert(l Layer) (LayerID, bool) {
	var id LayerID
	_, ok := s.Transact(func(t *Txn) { id, _ = t.Insert(l) })
	if !ok {
		return "", false
	}
	return id, true
}

func (s *Store) Patch(id LayerID, p Patch) bool {
	_, ok := s.Transact(func(t *Txn) { t.Patch(id, p) })
	return ok
}

func (s *Store) Delete(id LayerID) bool {
	_, ok := s.Transact(func(t *Txn) { t.Delete(id) })
	return ok
}

// MoveInOrder moves id to index in the z-order.
func (s *Store) MoveInOrder(id LayerID, index int) bool {
	_, ok := s.Transact(func(t *Txn) { t.Move(id, index) })
	return ok
}

// Receive applies a transaction the hub sequenced at seq. Sequence numbers
// at or below the last one seen are ignored. When tx is one of ours it
// leaves the pending queue.
func (s *Store) Receive(seq uint64, tx Transaction) {
	s.mu.Lock()
	if !s.ready || seq <= s.seq {
		s.mu.Unlock()
		return
	}
	s.seq = seq
	s.clock.Update(tx.Lamport)
	s.confirmed, _ = s.confirmed.ApplyAll(tx.Ops)
	s.pending = slices.DeleteFunc(s.pending, func(p Transaction) bool { return p.ID == tx.ID })
	s.rebuild()
	c := Change{Document: s.view, Status: s.status, Remote: tx.Site != s.site}
	s.mu.Unlock()
	s.changes.Publish(c)
}

// Ack drops a pending transaction the hub had already sequenced before the
// last snapshot.
func (s *Store) Ack(txID string) {
	s.mu.Lock()
	n := len(s.pending)
	s.pending = slices.DeleteFunc(s.pending, func(p Transaction) bool { return p.ID == txID })
	if len(s.pending) == n {
		s.mu.Unlock()
		return
	}
	s.rebuild()
	c := Change{Document: s.view, Status: s.status, Remote: true}
	s.mu.Unlock()
	s.changes.Publish(c)
}

// Resync replaces the confirmed document with a snapshot taken at seq,
// replays the pending queue on top of it and sends the queue again. A local
// transaction issued meanwhile is sent after the whole queue.
func (s *Store) Resync(doc *Document, seq uint64) {
	s.mu.Lock()
	s.confirmed = doc
	s.seq = seq
	s.ready = true
	s.rebuild()
	if r, ok := s.transport.(Resumer); ok {
		r.Resume()
	}
	if s.transport != nil {
		for _, tx := range s.pending {
			s.transport.Send(tx)
		}
	}
	n := len(s.pending)
	c := Change{Document: s.view, Status: s.status, Remote: true}
	s.mu.Unlock()

	if n > 0 {
		log.Printf("[STORE] replaying %d pending transactions on snapshot %d", n, seq)
	}
	s.changes.Publish(c)
}

// rebuild recomputes the view. Caller holds mu.
func (s *Store) rebuild() {
	view := s.confirmed
	for _, tx := range s.pending {
		view, _ = view.ApplyAll(tx.Ops)
	}
	s.view = view
}

// Subscribe returns a channel of changes. Values are dropped for readers
// that fall behind; Document always returns the latest view.
func (s *Store) Subscribe() chan Change { return s.changes.Subscribe() }

func (s *Store) Unsubscribe(ch chan Change) { s.changes.Unsubscribe(ch) }
