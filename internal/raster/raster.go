// Package raster converts SVG files to PNG images.
package raster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/svgview/internal/apperr"
)

// Engines.
const (
	EngineNative = "native"
	EngineChrome = "chrome"
)

// OutputSpec names the PNG to produce. A zero Width or Height keeps the
// drawing's intrinsic size; otherwise the drawing is scaled to fit the box,
// preserving its aspect ratio, and padded with transparency.
type OutputSpec struct {
	Path   string
	Width  int
	Height int
}

// Sized reports whether the spec requests an explicit size.
func (o OutputSpec) Sized() bool { return o.Width > 0 && o.Height > 0 }

// String formats the spec as "<path>" or "<path> pad <W>:<H>".
func (o OutputSpec) String() string {
	if !o.Sized() {
		return o.Path
	}
	return fmt.Sprintf("%s pad %d:%d", o.Path, o.Width, o.Height)
}

// ParseOutputSpec is the inverse of OutputSpec.String.
func ParseOutputSpec(s string) (OutputSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return OutputSpec{}, fmt.Errorf("raster: empty output spec")
	}
	idx := strings.LastIndex(s, " pad ")
	if idx == -1 {
		return OutputSpec{Path: s}, nil
	}
	path, size := s[:idx], s[idx+len(" pad "):]
	ws, hs, ok := strings.Cut(size, ":")
	if !ok {
		return OutputSpec{}, fmt.Errorf("raster: size %q: %w", size, apperr.ErrInvalidSize)
	}
	w, werr := strconv.Atoi(ws)
	h, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || w <= 0 || h <= 0 {
		return OutputSpec{}, fmt.Errorf("raster: size %q: %w", size, apperr.ErrInvalidSize)
	}
	return OutputSpec{Path: path, Width: w, Height: h}, nil
}

// Rasterizer renders the SVG file at input to out.
type Rasterizer interface {
	Render(ctx context.Context, input string, out OutputSpec) error
}

// Options configure New.
type Options struct {
	Engine     string
	ChromePath string
	Timeout    time.Duration
}

// New returns the rasterizer for opts.Engine.
func New(opts Options) (Rasterizer, error) {
	switch opts.Engine {
	case "", EngineNative:
		return Native{}, nil
	case EngineChrome:
		return &Chrome{ExecPath: opts.ChromePath, Timeout: opts.Timeout}, nil
	default:
		return nil, fmt.Errorf("raster: unknown engine %q", opts.Engine)
	}
}

// fit returns the placement of a w×h drawing inside a bw×bh box.
func fit(w, h float64, bw, bh int) (x, y, fw, fh float64) {
	scale := float64(bw) / w
	if s := float64(bh) / h; s < scale {
		scale = s
	}
	fw, fh = w*scale, h*scale
	return (float64(bw) - fw) / 2, (float64(bh) - fh) / 2, fw, fh
}
