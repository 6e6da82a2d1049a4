package view

import (
	"encoding/json"
	"testing"

	"github.com/starford/svgview/internal/resource"
)

func TestState_RoundTrip(t *testing.T) {
	r := resource.FromPath("/work/icons/a b.svg")
	raw, err := json.Marshal(State{Resource: r, Zoom: 1.75})
	if err != nil {
		t.Fatal(err)
	}
	var got State
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if !got.Resource.Equal(r) || got.Zoom != 1.75 {
		t.Errorf("got %+v from %s", got, raw)
	}
}

func TestState_ZoomOmittedWhenUnset(t *testing.T) {
	raw, err := json.Marshal(State{Resource: resource.FromPath("/work/a.svg")})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"resource":"file:///work/a.svg"}` {
		t.Errorf("got %s", raw)
	}
}

func TestParseState_Zoom(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{`{"resource":"file:///work/a.svg","zoom":3}`, 3},
		{`{"resource":"file:///work/a.svg"}`, DefaultZoom},
		{`{"resource":"file:///work/a.svg","zoom":"2"}`, DefaultZoom},
		{`{"resource":"file:///work/a.svg","zoom":0}`, DefaultZoom},
		{`{"resource":"file:///work/a.svg","zoom":-2}`, DefaultZoom},
		{`{"resource":"file:///work/a.svg","zoom":null}`, DefaultZoom},
		{`{"resource":"/work/a.svg","zoom":0.5}`, 0.5},
	}
	for _, tc := range cases {
		st, err := ParseState([]byte(tc.raw))
		if err != nil {
			t.Errorf("%s: %v", tc.raw, err)
			continue
		}
		if st.Zoom != tc.want {
			t.Errorf("%s: zoom = %v, want %v", tc.raw, st.Zoom, tc.want)
		}
		if st.Resource.Path() != "/work/a.svg" {
			t.Errorf("%s: resource = %s", tc.raw, st.Resource.Path())
		}
	}
}

func TestParseState_Invalid(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"zoom":2}`, `{"resource":""}`, `{"resource":"https://x/a.svg"}`} {
		if _, err := ParseState([]byte(raw)); err == nil {
			t.Errorf("%q: expected error", raw)
		}
	}
}
