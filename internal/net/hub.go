package net

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
	"CollabCanvas/internal/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// peer is one websocket connection to a room.
type peer struct {
	id   presence.ConnID
	user string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() { p.once.Do(func() { close(p.send) }) }

// room holds the authoritative document of one room and its peers.
type room struct {
	id        string
	mu        sync.Mutex
	doc       *state.Document
	seq       uint64
	accepted  map[string]bool
	presences map[presence.ConnID]presence.Record
	peers     map[presence.ConnID]*peer
}

// Hub sequences transactions and fans out presence for every room. Rooms
// are created on first join and dropped when the last peer leaves.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]*room
	upgrader websocket.Upgrader
	tracer   trace.Tracer
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		tracer: telemetry.Tracer("CollabCanvas/hub"),
	}
}

// Routes returns the hub's HTTP handler.
func (h *Hub) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/rooms/{id}", func(r chi.Router) {
		r.Get("/ws", h.serveWS)
		r.Get("/snapshot", h.serveSnapshot)
	})
	return r
}

// Rooms lists the open rooms.
func (h *Hub) Rooms() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Hub) join(id string, p *peer) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[id]
	if !ok {
		rm = &room{
			id:        id,
			doc:       state.NewDocument(),
			accepted:  make(map[string]bool),
			presences: make(map[presence.ConnID]presence.Record),
			peers:     make(map[presence.ConnID]*peer),
		}
		h.rooms[id] = rm
		log.Printf("[HUB] room %s created", id)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	others := make(map[presence.ConnID]presence.Record, len(rm.presences))
	for conn, rec := range rm.presences {
		others[conn] = rec.Clone()
	}
	welcome := Message{Type: MsgWelcome, Conn: p.id, Seq: rm.seq, Document: rm.doc, Presences: others}
	if data, err := json.Marshal(welcome); err == nil {
		p.send <- data
	}
	rm.peers[p.id] = p
	log.Printf("[HUB] %s (%s) joined room %s, %d peers", p.id, p.user, id, len(rm.peers))
	return rm
}

func (h *Hub) leave(rm *room, p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm.mu.Lock()
	if _, ok := rm.peers[p.id]; ok {
		delete(rm.peers, p.id)
		delete(rm.presences, p.id)
		p.close()
		rm.broadcast(Message{Type: MsgLeave, Conn: p.id}, "")
		log.Printf("[HUB] %s left room %s", p.id, rm.id)
	}
	empty := len(rm.peers) == 0
	rm.mu.Unlock()

	if empty && h.rooms[rm.id] == rm {
		delete(h.rooms, rm.id)
		log.Printf("[HUB] room %s discarded", rm.id)
	}
}

// broadcast queues msg for every peer except skip. A peer whose buffer is
// full is dropped and the others are told it left; it resynchronizes when it
// reconnects. Caller holds mu.
func (rm *room) broadcast(msg Message, skip presence.ConnID) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[HUB] encode %s: %v", msg.Type, err)
		return
	}
	var dropped []presence.ConnID
	for id, p := range rm.peers {
		if id == skip {
			continue
		}
		select {
		case p.send <- data:
		default:
			log.Printf("[HUB] %s is not keeping up, dropping it", id)
			delete(rm.peers, id)
			delete(rm.presences, id)
			p.close()
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		for _, p := range rm.peers {
			rm.sendTo(p, Message{Type: MsgLeave, Conn: id})
		}
	}
}

func (rm *room) sendTo(p *peer, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case p.send <- data:
	default:
	}
}

// accept sequences tx and echoes it to every peer, the sender included. A
// transaction id seen before is only acknowledged to the sender.
func (h *Hub) accept(ctx context.Context, rm *room, from *peer, tx state.Transaction) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.accepted[tx.ID] {
		rm.sendTo(from, Message{Type: MsgAck, TxID: tx.ID})
		return
	}

	_, span := h.tracer.Start(ctx, "hub.accept")
	defer span.End()

	rm.doc, _ = rm.doc.ApplyAll(tx.Ops)
	rm.seq++
	rm.accepted[tx.ID] = true
	span.SetAttributes(
		attribute.String("room", rm.id),
		attribute.Int64("seq", int64(rm.seq)),
		attribute.Int("ops", len(tx.Ops)),
		attribute.String("site", tx.Site),
	)
	rm.broadcast(Message{Type: MsgTx, Seq: rm.seq, Tx: &tx}, "")
}

func (rm *room) setPresence(from *peer, rec presence.Record) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.peers[from.id]; !ok {
		return
	}
	rm.presences[from.id] = rec.Clone()
	rm.broadcast(Message{Type: MsgPresence, Conn: from.id, Presence: &rec}, from.id)
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HUB] upgrade: %v", err)
		return
	}
	p := &peer{
		id:   presence.ConnID(uuid.NewString()),
		user: r.URL.Query().Get("user"),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	rm := h.join(id, p)
	go p.writePump()
	h.readPump(r.Context(), rm, p)
}

func (h *Hub) readPump(ctx context.Context, rm *room, p *peer) {
	defer func() {
		h.leave(rm, p)
		p.conn.Close()
	}()
	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[HUB] read from %s: %v", p.id, err)
			}
			return
		}
		switch msg.Type {
		case MsgTx:
			if msg.Tx != nil && msg.Tx.ID != "" {
				h.accept(ctx, rm, p, *msg.Tx)
			}
		case MsgPresence:
			if msg.Presence != nil {
				rm.setPresence(p, *msg.Presence)
			}
		default:
			log.Printf("[HUB] ignoring %q from %s", msg.Type, p.id)
		}
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.mu.Lock()
	rm, ok := h.rooms[id]
	h.mu.Unlock()
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	rm.mu.Lock()
	snap := Snapshot{Room: id, Seq: rm.seq, Peers: len(rm.peers), Document: rm.doc}
	rm.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("[HUB] snapshot %s: %v", id, err)
	}
}

// ListenAndServe runs the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: h.Routes()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("[HUB] listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Close()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close disconnects every peer of every room.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*websocket.Conn
	for _, rm := range h.rooms {
		rm.mu.Lock()
		for _, p := range rm.peers {
			conns = append(conns, p.conn)
		}
		rm.mu.Unlock()
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}
