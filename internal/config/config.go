// Package config loads CollabCanvas settings from the environment and
// command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Scheme prefixes share links handed to other participants.
const Scheme = "collabcanvas://"

// ErrBadLink is returned for a share link that cannot be parsed.
var ErrBadLink = errors.New("invalid share link")

// Config holds the settings of one CollabCanvas process.
type Config struct {
	Port           int           `env:"COLLABCANVAS_PORT" envDefault:"8888"`
	Room           string        `env:"COLLABCANVAS_ROOM" envDefault:"lobby"`
	User           string        `env:"COLLABCANVAS_USER"`
	HistoryLimit   int           `env:"COLLABCANVAS_HISTORY_LIMIT" envDefault:"200"`
	MDNS           bool          `env:"COLLABCANVAS_MDNS" envDefault:"true"`
	Browse         bool          `env:"COLLABCANVAS_BROWSE"`
	OTelEndpoint   string        `env:"COLLABCANVAS_OTEL_ENDPOINT"`
	ReconnectDelay time.Duration `env:"COLLABCANVAS_RECONNECT_DELAY" envDefault:"1s"`

	// Link is the share link to join. Empty means host a board.
	Link string
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ParseConfig parses environment and flags into Config. The first
// positional argument, when present, is a share link to join.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port the hub listens on")
	fs.StringVar(&cfg.Room, "room", cfg.Room, "Room to host or join")
	fs.StringVar(&cfg.User, "user", cfg.User, "Name shown to other participants")
	fs.IntVar(&cfg.HistoryLimit, "history", cfg.HistoryLimit, "Undo steps kept per participant")
	fs.BoolVar(&cfg.MDNS, "mdns", cfg.MDNS, "Advertise the hub on the local network")
	fs.BoolVar(&cfg.Browse, "browse", cfg.Browse, "Join the first hub found on the local network")
	fs.StringVar(&cfg.OTelEndpoint, "otel-endpoint", cfg.OTelEndpoint, "OTLP/HTTP endpoint for hub traces")
	fs.DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "Wait between reconnect attempts")
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	cfg.Link = fs.Arg(0)
	if cfg.User == "" {
		cfg.User, _ = os.Hostname()
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("history limit must be positive, got %d", cfg.HistoryLimit)
	}
	return cfg, nil
}

// Hosting reports whether this process runs the hub.
func (c Config) Hosting() bool { return c.Link == "" && !c.Browse }

// ShareLink builds the link other participants use to join.
func ShareLink(host string, port int, room string) string {
	return fmt.Sprintf("%s%s:%d/%s", Scheme, host, port, room)
}

// ParseLink splits a share link into the hub address and the room. A link
// without a room joins "lobby".
func ParseLink(link string) (addr, room string, err error) {
	rest, ok := strings.CutPrefix(link, Scheme)
	if !ok || rest == "" {
		return "", "", fmt.Errorf("%w: %q", ErrBadLink, link)
	}
	addr, room, _ = strings.Cut(strings.TrimSuffix(rest, "/"), "/")
	host, port, found := strings.Cut(addr, ":")
	if !found || host == "" {
		return "", "", fmt.Errorf("%w: missing port in %q", ErrBadLink, link)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", "", fmt.Errorf("%w: port %q", ErrBadLink, port)
	}
	if room == "" {
		room = "lobby"
	}
	return addr, room, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
