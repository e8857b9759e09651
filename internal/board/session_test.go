package board

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/hierarchy"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/net"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

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

func click(m *interaction.Machine, x, y float64) {
	e := interaction.PointerEvent{Point: geometry.Point{X: x, Y: y}}
	m.PointerDown(e)
	m.PointerUp(e)
}

func TestOpen_LocalBoard(t *testing.T) {
	var notified atomic.Int32
	s := Open(context.Background(), Options{User: "ana", HistoryLimit: 10, OnChange: func() { notified.Add(1) }})
	defer s.Close()

	if !s.Machine.Ready() {
		t.Fatal("local board not ready")
	}
	s.Machine.SetTool(interaction.InsertTool(state.KindEllipse))
	click(s.Machine, 10, 10)
	if s.Store.Document().Len() != 1 {
		t.Fatalf("Len %d, want 1", s.Store.Document().Len())
	}
	eventually(t, "change notification", func() bool { return notified.Load() > 0 })
	if !s.Gateway.Undo() || s.Store.Document().Len() != 0 {
		t.Error("undo through the session failed")
	}
}

func TestOpen_SharedBoardPrunesRemoteDeletes(t *testing.T) {
	hub := net.NewHub()
	srv := httptest.NewServer(hub.Routes())
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	a := Open(context.Background(), Options{Addr: addr, Room: "r", User: "ana", ReconnectDelay: 20 * time.Millisecond})
	defer a.Close()
	b := Open(context.Background(), Options{Addr: addr, Room: "r", User: "ben", ReconnectDelay: 20 * time.Millisecond})
	defer b.Close()
	eventually(t, "both ready", func() bool { return a.Machine.Ready() && b.Machine.Ready() })

	a.Machine.SetTool(interaction.InsertTool(state.KindRectangle))
	click(a.Machine, 0, 0)
	sel := a.Presence.Selection()
	if len(sel) != 1 {
		t.Fatalf("selection %v, want the new rectangle", sel)
	}
	id := sel[0]
	eventually(t, "b to see the rectangle", func() bool { return b.Store.Document().Has(id) })

	b.Gateway.Run(func(tx *mutation.Tx) { tx.Select(id) }, mutation.Options{})
	if !hierarchy.DeleteSelection(b.Gateway) {
		t.Fatal("delete failed")
	}
	eventually(t, "a's selection to be pruned", func() bool {
		return !a.Store.Document().Has(id) && len(a.Presence.Selection()) == 0
	})
	// The insert entry no longer applies and is skipped.
	a.Gateway.Undo()
	if a.Store.Document().Has(id) {
		t.Error("undoing a's insert resurrected a layer b deleted")
	}
}

type dropTransport struct{ sent []state.Transaction }

func (d *dropTransport) Send(tx state.Transaction) { d.sent = append(d.sent, tx) }

func TestWatch_PrunesRejectedOwnInsert(t *testing.T) {
	tr := &dropTransport{}
	store := state.NewStore("site", tr)
	store.Resync(state.NewDocument(), 0)
	id, _ := store.Insert(state.New(state.KindRectangle, geometry.Point{}))
	p := presence.NewLocalChannel("ana")
	p.Publish(presence.WithSelection(id))

	// Another participant filled the room first.
	full := state.NewDocument()
	for i := 0; i < state.MaxLayers; i++ {
		full, _, _ = full.Apply(state.InsertOp(state.WithID(state.New(state.KindEllipse, geometry.Point{X: float64(i)}), state.NewLayerID())))
	}
	store.Resync(full, 1)
	if len(p.Selection()) != 1 {
		t.Fatalf("selection %v, want the stale id still held", p.Selection())
	}

	s := &Session{Store: store, Presence: p}
	changes := store.Subscribe()
	events := p.Subscribe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.watch(ctx, changes, events, nil)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// The hub echoes our insert, which no longer applies.
	store.Receive(2, tr.sent[0])
	eventually(t, "selection to be pruned", func() bool { return len(p.Selection()) == 0 })
	if store.Pending() != 0 {
		t.Errorf("pending %d, want 0", store.Pending())
	}
}

func TestRecolor(t *testing.T) {
	s := Open(context.Background(), Options{User: "ana"})
	defer s.Close()

	s.Machine.SetTool(interaction.InsertTool(state.KindRectangle))
	click(s.Machine, 0, 0)
	s.Machine.SetTool(interaction.InsertTool(state.KindLine))
	click(s.Machine, 0, 300)
	d := s.Store.Document()
	ids := d.Order()
	s.Gateway.Run(func(tx *mutation.Tx) { tx.Select(ids...) }, mutation.Options{})

	if !s.Recolor("#e03131") {
		t.Fatal("recolor changed nothing")
	}
	d = s.Store.Document()
	r, _ := d.Layer(ids[0])
	if fill := r.(*state.Rectangle).Fill; fill != "#e03131" {
		t.Errorf("rectangle fill %s", fill)
	}
	l, _ := d.Layer(ids[1])
	if stroke := l.(*state.Line).Stroke; stroke != "#e03131" {
		t.Errorf("line stroke %s", stroke)
	}
	if !s.Gateway.Undo() {
		t.Fatal("undo failed")
	}
	r, _ = s.Store.Document().Layer(ids[0])
	if fill := r.(*state.Rectangle).Fill; fill != state.DefaultFill {
		t.Errorf("fill after undo %s, want %s", fill, state.DefaultFill)
	}
}
