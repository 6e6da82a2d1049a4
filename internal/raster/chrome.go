package raster

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/starford/svgview/internal/storage"
	"github.com/starford/svgview/internal/svgdoc"
)

const defaultChromeTimeout = 30 * time.Second

// Chrome rasterizes with a headless Chrome, so the output matches what the
// preview shows.
type Chrome struct {
	// ExecPath overrides the browser binary lookup.
	ExecPath string
	Timeout  time.Duration
}

// Render implements Rasterizer.
func (c *Chrome) Render(ctx context.Context, input string, out OutputSpec) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("raster: read %s: %w", input, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	ctx, cancel = chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultChromeTimeout
	}
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	page := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(pageHTML(string(data))))

	var size struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	}
	var shot []byte
	err = chromedp.Run(ctx,
		emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
		chromedp.Navigate(page),
		chromedp.WaitReady(`#svg`, chromedp.ByID),
		chromedp.Evaluate(`(() => {
			const img = document.getElementById('svg');
			return { w: img.naturalWidth || 300, h: img.naturalHeight || 150 };
		})()`, &size),
		chromedp.ActionFunc(func(ctx context.Context) error {
			bw, bh := int(size.W+0.5), int(size.H+0.5)
			x, y, w, h := 0.0, 0.0, float64(bw), float64(bh)
			if out.Sized() {
				bw, bh = out.Width, out.Height
				x, y, w, h = fit(size.W, size.H, bw, bh)
			}
			script := fmt.Sprintf(`(() => {
				const s = document.getElementById('svg').style;
				s.left = '%fpx'; s.top = '%fpx'; s.width = '%fpx'; s.height = '%fpx';
			})()`, x, y, w, h)
			if err := chromedp.Evaluate(script, nil).Do(ctx); err != nil {
				return err
			}
			return emulation.SetDeviceMetricsOverride(int64(bw), int64(bh), 1, false).Do(ctx)
		}),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return fmt.Errorf("raster: chrome: %w", err)
	}
	return storage.WriteFileAtomic(out.Path, shot)
}

func pageHTML(text string) string {
	return `<!DOCTYPE html><html><head><style>html,body{margin:0;background:transparent;overflow:hidden}` +
		`#svg{position:absolute;left:0;top:0}</style></head><body>` +
		`<img id="svg" src="` + svgdoc.DataURI(svgdoc.AddNamespace(text)) + `"></body></html>`
}
