package keyboard

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"CollabCanvas/internal/state"
)

// ErrNotLayers is returned when clipboard text does not hold copied layers.
var ErrNotLayers = errors.New("clipboard does not hold layers")

// SystemClipboard is a clipboard shared with other programs.
type SystemClipboard interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

// OSClipboard is the desktop clipboard.
type OSClipboard struct{}

func (OSClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

func (OSClipboard) ReadAll() (string, error) { return clipboard.ReadAll() }

// Available reports whether the platform has a usable clipboard.
func (OSClipboard) Available() bool { return !clipboard.Unsupported }

type clipboardEnvelope struct {
	Format string            `json:"format"`
	Layers []json.RawMessage `json:"layers"`
}

const clipboardFormat = "collabcanvas/layers"

// EncodeLayers renders layers as clipboard text.
func EncodeLayers(layers []state.Layer) ([]byte, error) {
	env := clipboardEnvelope{Format: clipboardFormat}
	for _, l := range layers {
		data, err := state.MarshalLayer(l)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", l.Base().ID, err)
		}
		env.Layers = append(env.Layers, data)
	}
	return json.Marshal(env)
}

// DecodeLayers parses text written by EncodeLayers.
func DecodeLayers(data []byte) ([]state.Layer, error) {
	var env clipboardEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Format != clipboardFormat {
		return nil, ErrNotLayers
	}
	out := make([]state.Layer, 0, len(env.Layers))
	for _, raw := range env.Layers {
		l, err := state.UnmarshalLayer(raw)
		if err != nil {
			return nil, fmt.Errorf("decode layer: %w", err)
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, ErrNotLayers
	}
	return out, nil
}
