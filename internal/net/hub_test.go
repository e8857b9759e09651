package net

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := NewHub()
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return h, srv
}

func hostOf(srv *httptest.Server) string { return strings.TrimPrefix(srv.URL, "http://") }

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type participant struct {
	client   *Client
	store    *state.Store
	presence *presence.Channel
	stop     func()
}

func join(t *testing.T, srv *httptest.Server, room, user string) *participant {
	t.Helper()
	c := NewClient(hostOf(srv), room, user, 20*time.Millisecond)
	s := state.NewStore(state.NewSiteID(), c)
	p := presence.NewChannel(user, c)
	c.Bind(s, p)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	stopped := false
	stop := func() {
		if !stopped {
			stopped = true
			cancel()
			<-done
		}
	}
	t.Cleanup(stop)
	eventually(t, user+" to join", func() bool { return s.Ready() && p.Ready() })
	return &participant{client: c, store: s, presence: p, stop: stop}
}

func rect(id state.LayerID, x float64) *state.Rectangle {
	return &state.Rectangle{
		Common: state.Common{ID: id, X: x, Opacity: state.DefaultOpacity},
		Box:    state.Box{Width: 10, Height: 10},
	}
}

func docJSON(t *testing.T, d *state.Document) string {
	t.Helper()
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}

func TestHub_EchoesTransactionsToEveryone(t *testing.T) {
	_, srv := startHub(t)
	a := join(t, srv, "r", "ana")
	b := join(t, srv, "r", "ben")

	if a.store.Status() != state.StatusOpen {
		t.Fatalf("status %s, want open", a.store.Status())
	}
	if _, ok := a.store.Insert(rect("x", 0)); !ok {
		t.Fatal("insert failed")
	}
	if !a.store.Document().Has("x") {
		t.Fatal("local insert not visible before the echo")
	}
	eventually(t, "b to see x", func() bool { return b.store.Document().Has("x") })
	eventually(t, "a's echo", func() bool { return a.store.Pending() == 0 && a.store.Seq() == 1 })
	if b.store.Seq() != 1 {
		t.Errorf("b seq %d, want 1", b.store.Seq())
	}
}

func TestHub_ConcurrentEditsConverge(t *testing.T) {
	_, srv := startHub(t)
	a := join(t, srv, "r", "ana")
	b := join(t, srv, "r", "ben")
	a.store.Insert(rect("x", 0))
	eventually(t, "b to see x", func() bool { return b.store.Document().Has("x") })

	for i := 0; i < 10; i++ {
		a.store.Patch("x", state.Patch{Fill: state.Ptr(state.Color("#ff0000")), X: state.Ptr(float64(i))})
		b.store.Patch("x", state.Patch{Fill: state.Ptr(state.Color("#0000ff")), Y: state.Ptr(float64(i))})
	}
	eventually(t, "convergence", func() bool {
		return a.store.Pending() == 0 && b.store.Pending() == 0 &&
			docJSON(t, a.store.Document()) == docJSON(t, b.store.Document())
	})
	l, _ := a.store.Document().Layer("x")
	if b := l.Base(); b.X != 9 || b.Y != 9 {
		t.Errorf("disjoint fields lost: %+v", b)
	}
}

func TestHub_LateJoinerGetsSnapshot(t *testing.T) {
	_, srv := startHub(t)
	a := join(t, srv, "r", "ana")
	a.store.Insert(rect("x", 0))
	eventually(t, "echo", func() bool { return a.store.Seq() == 1 })

	c := join(t, srv, "r", "cy")
	if !c.store.Document().Has("x") || c.store.Seq() != 1 {
		t.Errorf("late joiner has seq %d, x=%v", c.store.Seq(), c.store.Document().Has("x"))
	}
}

func TestHub_DuplicateTransactionIsAcked(t *testing.T) {
	_, srv := startHub(t)
	url := "ws://" + hostOf(srv) + "/rooms/r/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	var welcome Message
	if err := ws.ReadJSON(&welcome); err != nil || welcome.Type != MsgWelcome {
		t.Fatalf("welcome %+v, %v", welcome, err)
	}
	tx := state.Transaction{ID: "tx-site-1", Site: "site", Lamport: 1, Ops: []state.Op{state.InsertOp(rect("x", 0))}}
	for i := 0; i < 2; i++ {
		if err := ws.WriteJSON(Message{Type: MsgTx, Tx: &tx}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var first, second Message
	ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read: %v", err)
	}
	if first.Type != MsgTx || first.Seq != 1 || first.Tx.ID != tx.ID {
		t.Errorf("first %+v, want the echo at seq 1", first)
	}
	if err := ws.ReadJSON(&second); err != nil {
		t.Fatalf("read: %v", err)
	}
	if second.Type != MsgAck || second.TxID != tx.ID {
		t.Errorf("second %+v, want an ack", second)
	}
}

func TestHub_PresenceAndLeave(t *testing.T) {
	_, srv := startHub(t)
	a := join(t, srv, "r", "ana")
	b := join(t, srv, "r", "ben")

	a.presence.Publish(presence.WithCursor(geometry.Point{X: 1, Y: 2}), presence.WithSelection("x"))
	conn := a.client.Conn()
	eventually(t, "b to see a's cursor", func() bool {
		r, ok := b.presence.Others()[conn]
		return ok && r.Cursor != nil && *r.Cursor == geometry.Point{X: 1, Y: 2} && r.User == "ana"
	})

	a.stop()
	eventually(t, "a to leave", func() bool {
		_, ok := b.presence.Others()[conn]
		return !ok
	})
}

func TestHub_WelcomeCarriesPresence(t *testing.T) {
	_, srv := startHub(t)
	a := join(t, srv, "r", "ana")
	a.presence.Publish(presence.WithSelection("x"))
	conn := a.client.Conn()

	b := join(t, srv, "r", "ben")
	eventually(t, "b to know a", func() bool {
		r, ok := b.presence.Others()[conn]
		return ok && r.Selected("x")
	})
}

func TestHub_RoomLifecycle(t *testing.T) {
	h, srv := startHub(t)
	a := join(t, srv, "tmp", "ana")
	if rooms := h.Rooms(); len(rooms) != 1 || rooms[0] != "tmp" {
		t.Fatalf("rooms %v, want [tmp]", rooms)
	}
	a.stop()
	eventually(t, "room to be discarded", func() bool { return len(h.Rooms()) == 0 })
}

func TestHub_Snapshot(t *testing.T) {
	_, srv := startHub(t)

	res, err := http.Get(srv.URL + "/rooms/none/snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", res.StatusCode)
	}

	a := join(t, srv, "r", "ana")
	a.store.Insert(rect("x", 0))
	eventually(t, "echo", func() bool { return a.store.Seq() == 1 })

	res, err = http.Get(srv.URL + "/rooms/r/snapshot")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	var snap Snapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Seq != 1 || snap.Peers != 1 || snap.Document == nil || !snap.Document.Has("x") {
		t.Errorf("snapshot %+v", snap)
	}
}

func TestHub_Healthz(t *testing.T) {
	_, srv := startHub(t)
	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(res.Body)
	if res.StatusCode != http.StatusOK || buf.String() != "ok" {
		t.Errorf("healthz %d %q", res.StatusCode, buf.String())
	}
}

func TestClient_DropsFramesWhileOffline(t *testing.T) {
	c := NewClient("127.0.0.1:1", "r", "ana", 0)
	c.Send(state.Transaction{ID: "tx-1"})
	c.SendPresence(presence.Record{User: "ana"})
	if len(c.drain()) != 0 {
		t.Error("frames queued while offline")
	}
	if c.delay != DefaultReconnectDelay {
		t.Errorf("delay %s, want default", c.delay)
	}
}

func TestClient_ResyncQueuesPendingBeforeNewWrites(t *testing.T) {
	c := NewClient("127.0.0.1:1", "r", "ana", 0)
	s := state.NewStore("site", c)
	s.Resync(state.NewDocument(), 0)
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()

	s.Insert(rect("a", 0))
	s.Insert(rect("b", 20))
	if len(c.drain()) != 0 {
		t.Fatal("frames queued while offline")
	}

	s.Resync(state.NewDocument(), 0)
	s.Insert(rect("c", 40))

	var got []state.LayerID
	for _, m := range c.drain() {
		if m.Type == MsgTx {
			got = append(got, m.Tx.Ops[0].Layer.Base().ID)
		}
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("queued %v, want [a b c]", got)
	}
}

func TestClient_ReconnectsAfterHubRestart(t *testing.T) {
	h := NewHub()
	srv := httptest.NewUnstartedServer(h.Routes())
	srv.Start()
	addr := srv.Listener.Addr().String()

	c := NewClient(addr, "r", "ana", 20*time.Millisecond)
	s := state.NewStore(state.NewSiteID(), c)
	p := presence.NewChannel("ana", c)
	c.Bind(s, p)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()
	eventually(t, "join", s.Ready)

	h.Close()
	srv.Close()
	eventually(t, "disconnect", func() bool { return s.Status() != state.StatusOpen })

	// Edits made offline stay pending and reach the next hub.
	s.Insert(rect("x", 0))
	if s.Pending() != 1 {
		t.Fatalf("pending %d, want 1", s.Pending())
	}

	h2 := NewHub()
	srv2 := httptest.NewUnstartedServer(h2.Routes())
	srv2.Listener.Close()
	l, err := newListener(addr)
	if err != nil {
		t.Skipf("port %s not reusable: %v", addr, err)
	}
	srv2.Listener = l
	srv2.Start()
	defer srv2.Close()

	eventually(t, "resend on reconnect", func() bool {
		return s.Status() == state.StatusOpen && s.Pending() == 0 && s.Document().Has("x")
	})
}

func newListener(addr string) (net.Listener, error) { return net.Listen("tcp", addr) }
