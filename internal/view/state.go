package view

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/starford/svgview/internal/resource"
)

// DefaultZoom is used when a persisted state carries no usable zoom.
const DefaultZoom = 1.0

// State is the serializable part of a view: the bound resource and, for
// previews, the zoom level. Export views leave Zoom at zero.
type State struct {
	Resource resource.Resource
	Zoom     float64
}

type persistedState struct {
	Resource string          `json:"resource"`
	Zoom     json.RawMessage `json:"zoom,omitempty"`
}

// MarshalJSON encodes {"resource": <uri>, "zoom": <number>}. Zoom is
// omitted when not positive.
func (s State) MarshalJSON() ([]byte, error) {
	out := persistedState{Resource: s.Resource.String()}
	if s.Zoom > 0 {
		z, err := json.Marshal(s.Zoom)
		if err != nil {
			return nil, err
		}
		out.Zoom = z
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON; see ParseState.
func (s *State) UnmarshalJSON(b []byte) error {
	st, err := ParseState(b)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState decodes a persisted state. The resource must parse; a missing,
// non-numeric or non-positive zoom becomes DefaultZoom.
func ParseState(raw []byte) (State, error) {
	var p persistedState
	if err := json.Unmarshal(raw, &p); err != nil {
		return State{}, fmt.Errorf("view: decode state: %w", err)
	}
	r, err := resource.Parse(p.Resource)
	if err != nil {
		return State{}, fmt.Errorf("view: state resource: %w", err)
	}
	zoom, ok := parseZoom(p.Zoom)
	if !ok {
		zoom = DefaultZoom
	}
	return State{Resource: r, Zoom: zoom}, nil
}

func parseZoom(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var z float64
	if err := json.Unmarshal(raw, &z); err != nil {
		return 0, false
	}
	if !validZoom(z) {
		return 0, false
	}
	return z, true
}

func validZoom(z float64) bool {
	return z > 0 && !math.IsInf(z, 0) && !math.IsNaN(z)
}
