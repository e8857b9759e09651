// Package keyboard maps key combinations to editor commands and keeps the
// local clipboard.
package keyboard

import "strings"

// Key names for keys that are not a single printable character.
const (
	KeyEscape    = "escape"
	KeyDelete    = "delete"
	KeyBackspace = "backspace"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyUp        = "up"
	KeyDown      = "down"
)

// Key is one key press with its modifiers. Name is a lower-case character
// such as "z" or "]", or one of the Key* names.
type Key struct {
	Name  string
	Ctrl  bool
	Shift bool
	Alt   bool
	Meta  bool
}

// String renders k as a combo like "ctrl+shift+z". Meta is reported as ctrl.
func (k Key) String() string {
	var b strings.Builder
	if k.Ctrl || k.Meta {
		b.WriteString("ctrl+")
	}
	if k.Alt {
		b.WriteString("alt+")
	}
	if k.Shift {
		b.WriteString("shift+")
	}
	b.WriteString(strings.ToLower(k.Name))
	return b.String()
}

// Parse is the inverse of String.
func Parse(combo string) Key {
	parts := strings.Split(strings.ToLower(combo), "+")
	k := Key{Name: parts[len(parts)-1]}
	for _, mod := range parts[:len(parts)-1] {
		switch mod {
		case "ctrl", "cmd", "meta":
			k.Ctrl = true
		case "alt", "option":
			k.Alt = true
		case "shift":
			k.Shift = true
		}
	}
	return k
}
