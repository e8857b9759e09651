package net

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

// ErrNoWelcome is returned when the hub's first frame is not a welcome.
var ErrNoWelcome = errors.New("hub did not send a welcome")

// DefaultReconnectDelay is used when a Client is given no delay.
const DefaultReconnectDelay = time.Second

// Client connects a store and a presence channel to a room on a hub. It
// implements state.Transport and presence.Sender: sends never block, and
// frames queued while disconnected are dropped because every welcome
// triggers a resend of pending transactions and of our presence.
type Client struct {
	url   string
	delay time.Duration

	mu       sync.Mutex
	store    *state.Store
	presence *presence.Channel
	conn     presence.ConnID
	queue    []Message
	online   bool
	wake     chan struct{}
}

// NewClient returns a client for room on the hub at addr (host:port).
func NewClient(addr, room, user string, delay time.Duration) *Client {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     addr,
		Path:     "/rooms/" + url.PathEscape(room) + "/ws",
		RawQuery: url.Values{"user": {user}}.Encode(),
	}
	return &Client{url: u.String(), delay: delay, wake: make(chan struct{}, 1)}
}

// Bind attaches the replicas the client feeds. It must be called before Run.
func (c *Client) Bind(s *state.Store, p *presence.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store, c.presence = s, p
}

// Conn returns the id the hub gave the current connection.
func (c *Client) Conn() presence.ConnID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Resume starts accepting frames again. The store calls it from Resync so
// the pending queue is queued before any newer transaction.
func (c *Client) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.online = true
}

// Send queues a local transaction.
func (c *Client) Send(tx state.Transaction) {
	c.enqueue(Message{Type: MsgTx, Tx: &tx})
}

// SendPresence queues our presence record. Only the latest record is kept.
func (c *Client) SendPresence(r presence.Record) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return
	}
	for i, m := range c.queue {
		if m.Type == MsgPresence {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			break
		}
	}
	c.queue = append(c.queue, Message{Type: MsgPresence, Presence: &r})
	c.mu.Unlock()
	c.signal()
}

func (c *Client) enqueue(m Message) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, m)
	c.mu.Unlock()
	c.signal()
}

func (c *Client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

func (c *Client) setStatus(st state.Status) {
	if c.store != nil {
		c.store.SetStatus(st)
	}
}

// Run keeps the client connected until ctx is done, reconnecting after
// every failure.
func (c *Client) Run(ctx context.Context) error {
	if c.store == nil || c.presence == nil {
		return errors.New("client is not bound")
	}
	for {
		err := c.session(ctx)
		c.mu.Lock()
		c.online = false
		c.queue = nil
		c.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setStatus(state.StatusDisconnected)
		log.Printf("[NET] connection lost: %v, retrying in %s", err, c.delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.delay):
		}
		c.setStatus(state.StatusConnecting)
	}
}

// session runs one connection from dial to failure.
func (c *Client) session(ctx context.Context) error {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer ws.Close()

	var welcome Message
	if err := ws.ReadJSON(&welcome); err != nil {
		return fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != MsgWelcome {
		return ErrNoWelcome
	}
	doc := welcome.Document
	if doc == nil {
		doc = state.NewDocument()
	}

	c.mu.Lock()
	c.conn = welcome.Conn
	c.mu.Unlock()
	log.Printf("[NET] joined as %s at seq %d", welcome.Conn, welcome.Seq)

	c.store.Resync(doc, welcome.Seq)
	c.presence.Hydrate(welcome.Presences)
	c.setStatus(state.StatusOpen)

	done := make(chan struct{})
	defer close(done)
	writeErr := make(chan error, 1)
	go func() { writeErr <- c.writeLoop(ctx, ws, done) }()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readLoop(ws) }()

	select {
	case <-ctx.Done():
		ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		return ctx.Err()
	case err := <-readErr:
		return err
	case err := <-writeErr:
		return err
	}
}

func (c *Client) readLoop(ws *websocket.Conn) error {
	for {
		var msg Message
		if err := ws.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		switch msg.Type {
		case MsgTx:
			if msg.Tx != nil {
				c.store.Receive(msg.Seq, *msg.Tx)
			}
		case MsgAck:
			c.store.Ack(msg.TxID)
		case MsgPresence:
			if msg.Presence != nil && msg.Conn != c.Conn() {
				c.presence.Receive(msg.Conn, *msg.Presence)
			}
		case MsgLeave:
			c.presence.Leave(msg.Conn)
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, ws *websocket.Conn, done <-chan struct{}) error {
	for {
		for _, m := range c.drain() {
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(m); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-c.wake:
		}
	}
}
