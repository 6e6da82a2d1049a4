package raster

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/svgview/internal/apperr"
)

const redSquare = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10"><rect x="0" y="0" width="10" height="10" fill="#ff0000"/></svg>`

func TestOutputSpecString(t *testing.T) {
	cases := []struct {
		spec OutputSpec
		want string
	}{
		{OutputSpec{Path: "/w/a.png"}, "/w/a.png"},
		{OutputSpec{Path: "/w/a.png", Width: 64, Height: 32}, "/w/a.png pad 64:32"},
		{OutputSpec{Path: "/w/my icon.png", Width: 1, Height: 2}, "/w/my icon.png pad 1:2"},
		{OutputSpec{Path: "/w/a.png", Width: 64}, "/w/a.png"},
	}
	for _, tc := range cases {
		if got := tc.spec.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestParseOutputSpec(t *testing.T) {
	got, err := ParseOutputSpec("/w/my icon.png pad 64:32")
	if err != nil {
		t.Fatal(err)
	}
	if got != (OutputSpec{Path: "/w/my icon.png", Width: 64, Height: 32}) {
		t.Errorf("got %+v", got)
	}

	got, err = ParseOutputSpec("/w/a.png")
	if err != nil || got != (OutputSpec{Path: "/w/a.png"}) {
		t.Errorf("got %+v, %v", got, err)
	}

	for _, bad := range []string{"", "/w/a.png pad 64", "/w/a.png pad x:1", "/w/a.png pad 0:10", "/w/a.png pad 5:-1"} {
		if _, err := ParseOutputSpec(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
	if _, err := ParseOutputSpec("a.png pad 1:x"); !errors.Is(err, apperr.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestFit(t *testing.T) {
	x, y, w, h := fit(10, 10, 40, 20)
	if x != 10 || y != 0 || w != 20 || h != 20 {
		t.Errorf("fit = %v %v %v %v", x, y, w, h)
	}
	x, y, w, h = fit(20, 10, 20, 40)
	if x != 0 || y != 15 || w != 20 || h != 10 {
		t.Errorf("fit = %v %v %v %v", x, y, w, h)
	}
}

func TestNew(t *testing.T) {
	if r, err := New(Options{}); err != nil {
		t.Errorf("default engine: %v", err)
	} else if _, ok := r.(Native); !ok {
		t.Errorf("default engine = %T", r)
	}
	if r, err := New(Options{Engine: EngineChrome, ChromePath: "/usr/bin/chromium"}); err != nil {
		t.Errorf("chrome engine: %v", err)
	} else if c, ok := r.(*Chrome); !ok || c.ExecPath != "/usr/bin/chromium" {
		t.Errorf("chrome engine = %#v", r)
	}
	if _, err := New(Options{Engine: "inkscape"}); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func writeSVG(t *testing.T, text string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.svg")
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNativeIntrinsicSize(t *testing.T) {
	in := writeSVG(t, redSquare)
	out := filepath.Join(t.TempDir(), "out.png")

	if err := (Native{}).Render(context.Background(), in, OutputSpec{Path: out}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("size = %v", b)
	}
	r, g, _, a := img.At(5, 5).RGBA()
	if r>>8 != 0xff || g != 0 || a>>8 != 0xff {
		t.Errorf("centre pixel = %v", img.At(5, 5))
	}
}

func TestNativePadsToRequestedSize(t *testing.T) {
	in := writeSVG(t, redSquare)
	out := filepath.Join(t.TempDir(), "nested", "out.png")

	if err := (Native{}).Render(context.Background(), in, OutputSpec{Path: out, Width: 40, Height: 20}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("size = %v", b)
	}
	if _, _, _, a := img.At(2, 10).RGBA(); a != 0 {
		t.Errorf("padding should be transparent, alpha = %d", a)
	}
	if r, _, _, a := img.At(20, 10).RGBA(); r>>8 != 0xff || a>>8 != 0xff {
		t.Errorf("drawing should be centred, got %v", img.At(20, 10))
	}
}

func TestNativeErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.png")
	if err := (Native{}).Render(context.Background(), "/does/not/exist.svg", OutputSpec{Path: out}); err == nil {
		t.Error("expected error for missing input")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := writeSVG(t, redSquare)
	if err := (Native{}).Render(ctx, in, OutputSpec{Path: out}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("cancelled render wrote output")
	}
}
