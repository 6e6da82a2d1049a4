package view

import (
	"context"
	"testing"
	"time"

	"github.com/starford/svgview/internal/clock"
	"github.com/starford/svgview/internal/loop"
	"github.com/starford/svgview/internal/notify"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/testutil"
)

const (
	svgA = `<svg xmlns="http://www.w3.org/2000/svg" id="a"><rect width="1" height="1"/></svg>`
	svgB = `<svg xmlns="http://www.w3.org/2000/svg" id="b"><circle r="1"/></svg>`
)

type harness struct {
	t        *testing.T
	loop     *loop.Loop
	clock    *clock.Fake
	ws       *testutil.FakeWorkspace
	panels   *testutil.FakePanelHost
	notes    *notify.Recorder
	settings *settings.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := loop.New(testutil.Logger())
	t.Cleanup(l.Close)
	return &harness{
		t:        t,
		loop:     l,
		clock:    clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		ws:       testutil.NewFakeWorkspace(),
		panels:   &testutil.FakePanelHost{},
		notes:    &notify.Recorder{},
		settings: settings.NewStore(settings.Default()),
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Workspace: h.ws,
		Panels:    h.panels,
		Settings:  h.settings,
		Notifier:  h.notes,
		Clock:     h.clock,
		Loop:      h.loop,
		Logger:    testutil.Logger(),
	}
}

// do runs fn on the view loop and waits for it.
func (h *harness) do(fn func()) {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.loop.Do(ctx, fn); err != nil {
		h.t.Fatalf("loop: %v", err)
	}
}

// doc stores text under a fresh absolute path and returns its resource.
func (h *harness) doc(name, text string) resource.Resource {
	r := resource.FromPath("/work/" + name)
	h.ws.Put(r, text)
	return r
}

func (h *harness) waitHTML(p interface{ HTMLCount() int }, n int) {
	h.t.Helper()
	testutil.Eventually(h.t, 2*time.Second, 5*time.Millisecond, func() bool {
		return p.HTMLCount() >= n
	}, "panel content was not set")
}

// settle gives in-flight loads time to post their results, then drains the loop.
func (h *harness) settle() {
	h.t.Helper()
	time.Sleep(30 * time.Millisecond)
	h.do(func() {})
}

func mustPreview(t *testing.T, text string, st State, opts settings.Viewer) string {
	t.Helper()
	html, err := previewContent(text, st, opts)
	if err != nil {
		t.Fatal(err)
	}
	return html
}
