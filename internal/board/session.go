// Package board opens one room: it wires the replicated document, presence,
// the mutation gateway, the pointer machine and the keyboard dispatcher.
package board

import (
	"context"
	"log"
	"sync"
	"time"

	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/keyboard"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/net"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

// Options configures a session.
type Options struct {
	// Addr is the hub's host:port. Empty opens a board that is not shared.
	Addr           string
	Room           string
	User           string
	HistoryLimit   int
	ReconnectDelay time.Duration
	// Clipboard mirrors copied layers outside the process. May be nil.
	Clipboard keyboard.SystemClipboard
	// OnChange is called after every document, status or presence change.
	OnChange func()
}

// Session is an open room.
type Session struct {
	Store    *state.Store
	Presence *presence.Channel
	Gateway  *mutation.Gateway
	Machine  *interaction.Machine
	Keys     *keyboard.Dispatcher
	Client   *net.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open starts a session. It returns immediately; a shared board stays inert
// until the hub's snapshot arrives.
func Open(ctx context.Context, opts Options) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{cancel: cancel}

	if opts.Addr == "" {
		s.Store = state.NewLocalStore()
		s.Presence = presence.NewLocalChannel(opts.User)
	} else {
		s.Client = net.NewClient(opts.Addr, opts.Room, opts.User, opts.ReconnectDelay)
		s.Store = state.NewStore(state.NewSiteID(), s.Client)
		s.Presence = presence.NewChannel(opts.User, s.Client)
		s.Client.Bind(s.Store, s.Presence)
	}
	s.Gateway = mutation.New(s.Store, s.Presence, opts.HistoryLimit)
	s.Machine = interaction.New(s.Gateway)
	s.Keys = keyboard.New(s.Machine, opts.Clipboard)

	changes := s.Store.Subscribe()
	events := s.Presence.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.Store.Unsubscribe(changes)
		defer s.Presence.Unsubscribe(events)
		s.watch(ctx, changes, events, opts.OnChange)
	}()

	if s.Client != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.Client.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[NET] client stopped: %v", err)
			}
		}()
	}
	return s
}

// watch prunes our selection whenever a selected layer disappears, whether
// another participant deleted it or the hub rejected our own insert, and
// forwards every change to notify.
func (s *Session) watch(ctx context.Context, changes chan state.Change, events chan presence.Event, notify func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			s.Presence.PruneSelection(c.Document)
		case _, ok := <-events:
			if !ok {
				return
			}
		}
		if notify != nil {
			notify()
		}
	}
}

// Recolor sets the pen color and paints the selection with c: the stroke of
// lines and arrows, the fill of everything else. Locked layers keep their
// color.
func (s *Session) Recolor(c state.Color) bool {
	s.Machine.SetPenColor(c)
	return s.Gateway.Run(func(tx *mutation.Tx) {
		for _, id := range tx.Selection() {
			l, ok := tx.Document().Layer(id)
			if !ok || l.Base().Locked {
				continue
			}
			if state.IsSegment(l) {
				tx.Patch(id, state.Patch{Stroke: state.Ptr(c)})
			} else {
				tx.Patch(id, state.Patch{Fill: state.Ptr(c)})
			}
		}
	}, mutation.Options{AddToHistory: true})
}

// Close stops the session and waits for its goroutines.
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}
