package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/starford/svgview/internal/storage"
)

const (
	defaultWidth  = 300
	defaultHeight = 150
)

// Native rasterizes in-process with oksvg. It covers the static SVG subset
// (paths, shapes, gradients) without text or scripting.
type Native struct{}

// Render implements Rasterizer.
func (Native) Render(ctx context.Context, input string, out OutputSpec) error {
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("raster: open %s: %w", input, err)
	}
	defer f.Close()

	icon, err := oksvg.ReadIconStream(f, oksvg.IgnoreErrorMode)
	if err != nil {
		return fmt.Errorf("raster: parse %s: %w", input, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		vw, vh = defaultWidth, defaultHeight
	}

	bw, bh := int(math.Ceil(vw)), int(math.Ceil(vh))
	x, y, w, h := 0.0, 0.0, float64(bw), float64(bh)
	if out.Sized() {
		bw, bh = out.Width, out.Height
		x, y, w, h = fit(vw, vh, bw, bh)
	}

	img := image.NewRGBA(image.Rect(0, 0, bw, bh))
	icon.SetTarget(x, y, w, h)
	scanner := rasterx.NewScannerGV(bw, bh, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(bw, bh, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("raster: encode png: %w", err)
	}
	return storage.WriteFileAtomic(out.Path, buf.Bytes())
}
