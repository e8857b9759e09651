// Package presence holds the ephemeral per-connection state of a room:
// cursors, selections and in-progress freehand drafts. Nothing here is
// persisted or kept in history; the latest record of each connection wins.
package presence

import (
	"maps"
	"slices"
	"sync"

	"CollabCanvas/internal/broadcast"
	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/state"
)

// ConnID identifies one connection to a room.
type ConnID string

// Record is one participant's presence.
type Record struct {
	User       string                 `json:"user,omitempty"`
	Selection  []state.LayerID        `json:"selection"`
	Cursor     *geometry.Point        `json:"cursor"`
	Draft      []geometry.StrokePoint `json:"draft"`
	DraftColor state.Color            `json:"draftColor,omitempty"`
}

// Clone returns a copy that shares nothing with r.
func (r Record) Clone() Record {
	r.Selection = slices.Clone(r.Selection)
	r.Draft = slices.Clone(r.Draft)
	if r.Cursor != nil {
		c := *r.Cursor
		r.Cursor = &c
	}
	return r
}

// Selected reports whether id is in the selection.
func (r Record) Selected(id state.LayerID) bool { return slices.Contains(r.Selection, id) }

// Update is a partial change to a record.
type Update func(*Record)

// WithSelection replaces the selection. Duplicates are dropped.
func WithSelection(ids ...state.LayerID) Update {
	sel := make([]state.LayerID, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(sel, id) {
			sel = append(sel, id)
		}
	}
	return func(r *Record) { r.Selection = sel }
}

func WithCursor(p geometry.Point) Update {
	return func(r *Record) { r.Cursor = &p }
}

func WithoutCursor() Update {
	return func(r *Record) { r.Cursor = nil }
}

// WithDraft starts a draft stroke.
func WithDraft(points ...geometry.StrokePoint) Update {
	draft := slices.Clone(points)
	if draft == nil {
		draft = []geometry.StrokePoint{}
	}
	return func(r *Record) { r.Draft = draft }
}

// AppendDraft adds samples to the current draft.
func AppendDraft(points ...geometry.StrokePoint) Update {
	return func(r *Record) { r.Draft = append(slices.Clone(r.Draft), points...) }
}

func WithoutDraft() Update {
	return func(r *Record) { r.Draft = nil }
}

func WithDraftColor(c state.Color) Update {
	return func(r *Record) { r.DraftColor = c }
}

// Sender carries this connection's record to the other participants. It must
// not block.
type Sender interface {
	SendPresence(r Record)
}

// Event describes a change to another participant's record.
type Event struct {
	Conn   ConnID
	Record Record
	Left   bool
}

// Channel is the local view of a room's presence: our own record and the
// latest record of every other connection.
type Channel struct {
	mu     sync.Mutex
	self   Record
	others map[ConnID]Record
	ready  bool
	sender Sender
	events *broadcast.Broadcaster[Event]
}

// NewChannel returns a channel that is not ready until Hydrate.
func NewChannel(user string, sender Sender) *Channel {
	return &Channel{
		self:   Record{User: user},
		others: map[ConnID]Record{},
		sender: sender,
		events: broadcast.New[Event](64),
	}
}

// NewLocalChannel returns a ready channel with nobody else in the room.
func NewLocalChannel(user string) *Channel {
	c := NewChannel(user, nil)
	c.ready = true
	return c
}

// Publish merges updates into our record and sends the whole record.
func (c *Channel) Publish(updates ...Update) {
	c.mu.Lock()
	next := c.self.Clone()
	for _, u := range updates {
		u(&next)
	}
	c.self = next
	out := next.Clone()
	s := c.sender
	c.mu.Unlock()
	if s != nil {
		s.SendPresence(out)
	}
}

// Self returns a copy of our record.
func (c *Channel) Self() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.self.Clone()
}

// Selection returns our selection.
func (c *Channel) Selection() []state.LayerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.self.Selection)
}

// Others returns copies of every other connection's record.
func (c *Channel) Others() map[ConnID]Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ConnID]Record, len(c.others))
	for id, r := range c.others {
		out[id] = r.Clone()
	}
	return out
}

// Receive stores the latest record of another connection.
func (c *Channel) Receive(conn ConnID, r Record) {
	c.mu.Lock()
	c.others[conn] = r.Clone()
	c.mu.Unlock()
	c.events.Publish(Event{Conn: conn, Record: r.Clone()})
}

// Leave forgets a disconnected connection.
func (c *Channel) Leave(conn ConnID) {
	c.mu.Lock()
	_, ok := c.others[conn]
	delete(c.others, conn)
	c.mu.Unlock()
	if ok {
		c.events.Publish(Event{Conn: conn, Left: true})
	}
}

// Hydrate replaces every other record with the room's current presence and
// marks the channel ready. Our own record is sent again so that the room
// sees it after a reconnect.
func (c *Channel) Hydrate(others map[ConnID]Record) {
	c.mu.Lock()
	gone := slices.Collect(maps.Keys(c.others))
	c.others = make(map[ConnID]Record, len(others))
	for id, r := range others {
		c.others[id] = r.Clone()
	}
	c.ready = true
	out := c.self.Clone()
	s := c.sender
	c.mu.Unlock()

	for _, id := range gone {
		if _, ok := others[id]; !ok {
			c.events.Publish(Event{Conn: id, Left: true})
		}
	}
	for id, r := range others {
		c.events.Publish(Event{Conn: id, Record: r.Clone()})
	}
	if s != nil {
		s.SendPresence(out)
	}
}

// Ready reports whether the room's presence has been received.
func (c *Channel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// PruneSelection drops ids that no longer exist in doc from our selection
// and publishes the result if anything was removed.
func (c *Channel) PruneSelection(doc *state.Document) bool {
	sel := c.Selection()
	kept := slices.DeleteFunc(slices.Clone(sel), func(id state.LayerID) bool { return !doc.Has(id) })
	if len(kept) == len(sel) {
		return false
	}
	c.Publish(WithSelection(kept...))
	return true
}

// Subscribe returns a channel of presence events from other connections.
func (c *Channel) Subscribe() chan Event { return c.events.Subscribe() }

func (c *Channel) Unsubscribe(ch chan Event) { c.events.Unsubscribe(ch) }
