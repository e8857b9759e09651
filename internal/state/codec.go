package state

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a payload names a kind that does not exist.
var ErrUnknownKind = errors.New("unknown layer kind")

type layerEnvelope struct {
	Kind  Kind            `json:"kind"`
	Layer json.RawMessage `json:"layer"`
}

func empty(kind Kind) (Layer, error) {
	switch kind {
	case KindRectangle:
		return &Rectangle{}, nil
	case KindEllipse:
		return &Ellipse{}, nil
	case KindPath:
		return &Path{}, nil
	case KindText:
		return &Text{}, nil
	case KindFrame:
		return &Frame{}, nil
	case KindGroup:
		return &Group{}, nil
	case KindStar:
		return &Star{}, nil
	case KindLine:
		return &Line{}, nil
	case KindArrow:
		return &Arrow{}, nil
	case KindPolygon:
		return &Polygon{}, nil
	case KindImage:
		return &Image{}, nil
	case KindVideo:
		return &Video{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// MarshalLayer encodes l with its kind so it can be decoded back into the
// right variant.
func MarshalLayer(l Layer) ([]byte, error) {
	body, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return json.Marshal(layerEnvelope{Kind: l.Kind(), Layer: body})
}

// UnmarshalLayer decodes a layer written by MarshalLayer.
func UnmarshalLayer(data []byte) (Layer, error) {
	var env layerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode layer: %w", err)
	}
	l, err := empty(env.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Layer, l); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return l, nil
}

func (o Op) MarshalJSON() ([]byte, error) {
	type alias Op
	out := struct {
		alias
		Layer json.RawMessage `json:"layer,omitempty"`
	}{alias: alias(o)}
	if o.Layer != nil {
		body, err := MarshalLayer(o.Layer)
		if err != nil {
			return nil, err
		}
		out.Layer = body
	}
	return json.Marshal(out)
}

func (o *Op) UnmarshalJSON(data []byte) error {
	type alias Op
	in := struct {
		*alias
		Layer json.RawMessage `json:"layer,omitempty"`
	}{alias: (*alias)(o)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	o.Layer = nil
	if len(in.Layer) > 0 && string(in.Layer) != "null" {
		l, err := UnmarshalLayer(in.Layer)
		if err != nil {
			return err
		}
		o.Layer = l
	}
	return nil
}

type documentJSON struct {
	Background Color             `json:"background"`
	Order      []LayerID         `json:"order"`
	Layers     []json.RawMessage `json:"layers"`
}

// MarshalJSON writes the layers back to front alongside the order.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{Background: d.background, Order: d.Order()}
	out.Layers = make([]json.RawMessage, 0, len(d.order))
	for _, l := range d.Layers() {
		body, err := MarshalLayer(l)
		if err != nil {
			return nil, err
		}
		out.Layers = append(out.Layers, body)
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a snapshot and rejects it unless every structural
// invariant holds.
func (d *Document) UnmarshalJSON(data []byte) error {
	var in documentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	next := NewDocument()
	if in.Background != "" {
		next.background = in.Background
	}
	for _, raw := range in.Layers {
		l, err := UnmarshalLayer(raw)
		if err != nil {
			return err
		}
		next.layers[l.Base().ID] = l
	}
	next.order = in.Order
	if err := next.Validate(); err != nil {
		return err
	}
	*d = *next
	return nil
}
