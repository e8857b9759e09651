package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"CollabCanvas/internal/board"
	"CollabCanvas/internal/config"
	"CollabCanvas/internal/keyboard"
	boardnet "CollabCanvas/internal/net"
	"CollabCanvas/internal/telemetry"
	"CollabCanvas/internal/ui"
)

const browseTimeout = 3 * time.Second

func main() {
	cfg, err := config.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("%v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Browse {
		cfg.Link = discover(ctx)
	}
	if cfg.Hosting() {
		runHost(ctx, cfg)
	} else {
		runClient(ctx, cfg)
	}
}

func options(cfg config.Config, addr, room string) board.Options {
	opts := board.Options{
		Addr:           addr,
		Room:           room,
		User:           cfg.User,
		HistoryLimit:   cfg.HistoryLimit,
		ReconnectDelay: cfg.ReconnectDelay,
	}
	if clip := (keyboard.OSClipboard{}); clip.Available() {
		opts.Clipboard = clip
	} else {
		log.Println("[CLIPBOARD] system clipboard unavailable, copy and paste stay inside the app")
	}
	return opts
}

func runHost(ctx context.Context, cfg config.Config) {
	log.SetPrefix("[HOST] ")
	log.Println("Starting as HOST")

	shutdown, err := telemetry.Setup(ctx, cfg.OTelEndpoint, "collabcanvas-hub")
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}
	defer shutdown(context.Background())

	hub := boardnet.NewHub()
	addr := fmt.Sprintf(":%d", cfg.Port)
	go func() {
		if err := hub.ListenAndServe(ctx, addr); err != nil {
			log.Printf("hub stopped: %v", err)
		}
	}()

	if cfg.MDNS {
		server, err := boardnet.Advertise(cfg.Port, cfg.Room)
		if err != nil {
			log.Printf("[MDNS] %v", err)
		} else {
			defer server.Shutdown()
		}
	}

	shareLink := config.ShareLink(boardnet.GetOutgoingIP(), cfg.Port, cfg.Room)
	log.Printf("Share link: %s", shareLink)
	local := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	ui.RunApp("CollabCanvas: "+cfg.Room, shareLink, func(onChange func()) *board.Session {
		opts := options(cfg, local, cfg.Room)
		opts.OnChange = onChange
		return board.Open(ctx, opts)
	})
}

func runClient(ctx context.Context, cfg config.Config) {
	log.SetPrefix("[CLIENT] ")
	log.Println("Starting as CLIENT")

	addr, room, err := config.ParseLink(cfg.Link)
	if err != nil {
		config.Exitf("%v", err)
	}
	ui.RunApp("CollabCanvas: "+room, cfg.Link, func(onChange func()) *board.Session {
		opts := options(cfg, addr, room)
		opts.OnChange = onChange
		return board.Open(ctx, opts)
	})
}

// discover returns the share link of the first hub answering on the local
// network, or exits.
func discover(ctx context.Context) string {
	found, err := boardnet.Browse(ctx, browseTimeout)
	if err != nil {
		log.Printf("[MDNS] %v", err)
	}
	if len(found) == 0 {
		config.Exitf("no hub found on the local network")
	}
	f := found[0]
	log.Printf("[MDNS] joining %s (%s, room %s)", f.Name, f.Addr, f.Room)
	return config.Scheme + f.Addr + "/" + f.Room
}
