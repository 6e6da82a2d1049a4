package view

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/notify"
	"github.com/starford/svgview/internal/render"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/testutil"
)

func TestPreview_FirstUpdateRendersImmediately(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })

	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	if h.clock.Pending() != 0 {
		t.Errorf("first update should not be debounced, %d timers pending", h.clock.Pending())
	}
	want := mustPreview(t, svgA, State{Resource: a, Zoom: 1}, h.settings.Viewer())
	if panel.HTML() != want {
		t.Errorf("unexpected preview html")
	}
	if panel.Title() != "Preview a.svg" {
		t.Errorf("title = %q", panel.Title())
	}
	if panel.ViewType() != PreviewViewType {
		t.Errorf("view type = %q", panel.ViewType())
	}

	st, err := ParseState(panel.SavedState())
	if err != nil {
		t.Fatalf("saved state: %v", err)
	}
	if !st.Resource.Equal(a) || st.Zoom != 1 {
		t.Errorf("saved state = %+v", st)
	}
	h.do(func() {
		if v.Zoom() != 1 {
			t.Errorf("zoom = %v", v.Zoom())
		}
	})
}

func TestPreview_RepeatedRefreshIsDebounced(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() {
		for i := 0; i < 5; i++ {
			v.Refresh()
		}
	})
	if got := h.clock.Pending(); got != 1 {
		t.Fatalf("expected exactly one pending refresh, got %d", got)
	}

	h.clock.Advance(DebounceWindow - time.Millisecond)
	h.settle()
	if got := h.ws.LoadCount(a); got != 1 {
		t.Fatalf("refresh ran before the debounce window elapsed: %d loads", got)
	}

	h.clock.Advance(time.Millisecond)
	h.waitHTML(panel, 2)
	if got := h.ws.LoadCount(a); got != 2 {
		t.Errorf("expected 2 loads, got %d", got)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("timer still pending after it fired")
	}
}

func TestPreview_DebouncedRefreshUsesLatestState(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() { v.Refresh() })
	h.ws.Put(a, svgB)
	h.do(func() {
		if err := panel.Send("setState", map[string]any{"resource": a.String(), "zoom": 3}); err != nil {
			t.Fatal(err)
		}
	})
	if h.clock.Pending() != 1 {
		t.Fatalf("expected one pending refresh, got %d", h.clock.Pending())
	}

	h.clock.Advance(DebounceWindow)
	h.waitHTML(panel, 2)

	want := mustPreview(t, svgB, State{Resource: a, Zoom: 3}, h.settings.Viewer())
	if panel.HTML() != want {
		t.Errorf("trailing refresh did not use the content and zoom current when the window elapsed")
	}
	st, err := ParseState(panel.SavedState())
	if err != nil {
		t.Fatal(err)
	}
	if st.Zoom != 3 {
		t.Errorf("persisted zoom = %v", st.Zoom)
	}
}

func TestPreview_ResourceChangeSkipsDebounce(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() { v.Refresh() })
	if h.clock.Pending() != 1 {
		t.Fatalf("expected pending refresh")
	}

	h.do(func() { v.Update(b) })
	if h.clock.Pending() != 0 {
		t.Errorf("pending refresh of the previous resource was not cancelled")
	}
	h.waitHTML(panel, 2)

	want := mustPreview(t, svgB, State{Resource: b, Zoom: 1}, h.settings.Viewer())
	if panel.HTML() != want {
		t.Errorf("panel does not show b")
	}
	if panel.Title() != "Preview b.svg" {
		t.Errorf("title = %q", panel.Title())
	}

	h.clock.Advance(time.Second)
	h.settle()
	if got := h.ws.LoadCount(a); got != 1 {
		t.Errorf("cancelled refresh of a still ran: %d loads", got)
	}
}

func TestPreview_StaleLoadIsDropped(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	release := h.ws.Gate(a)
	defer release()
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]

	h.do(func() { v.Update(b) })
	h.waitHTML(panel, 1)

	release()
	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, func() bool {
		return h.ws.Completed() == 2
	}, "blocked load did not return")
	h.settle()

	if got := panel.HTMLCount(); got != 1 {
		t.Errorf("stale result was applied: %d content updates", got)
	}
	if !strings.Contains(panel.Title(), "b.svg") {
		t.Errorf("title = %q", panel.Title())
	}
	h.do(func() {
		if !v.Resource().Equal(b) {
			t.Errorf("resource = %s", v.Resource())
		}
	})
}

func TestPreview_OlderRefreshOfSameResourceIsDropped(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	release := h.ws.Gate(a)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]

	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, func() bool {
		return len(h.ws.Loads()) == 1
	}, "first load did not start")

	// The second refresh overtakes the blocked first one.
	h.ws.Put(a, svgB)
	h.do(func() { v.Refresh() })
	h.clock.Advance(DebounceWindow)
	h.waitHTML(panel, 1)

	release()
	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, func() bool {
		return h.ws.Completed() == 2
	}, "loads did not complete")
	h.settle()

	if got := panel.HTMLCount(); got != 1 {
		t.Errorf("older refresh was applied: %d content updates", got)
	}

	want := mustPreview(t, svgB, State{Resource: a, Zoom: 1}, h.settings.Viewer())
	if panel.HTML() != want {
		t.Errorf("panel does not show the newest content")
	}
}

func TestPreview_DisposeCancelsPendingRefresh(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() {
		v.Refresh()
		v.Dispose()
	})
	if h.clock.Pending() != 0 {
		t.Errorf("dispose left a timer pending")
	}
	if !panel.Disposed() {
		t.Errorf("panel not disposed")
	}

	h.clock.Advance(time.Second)
	h.settle()
	if got := h.ws.LoadCount(a); got != 1 {
		t.Errorf("refresh ran after dispose: %d loads", got)
	}

	h.do(func() {
		v.Update(a)
		v.Dispose()
		if !v.Disposed() {
			t.Errorf("Disposed() = false")
		}
	})
	h.settle()
	if got := h.ws.LoadCount(a); got != 1 {
		t.Errorf("update after dispose started a load")
	}
}

func TestPreview_DisposeIsIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	h.waitHTML(h.panels.Panels()[0], 1)

	fired := 0
	h.do(func() {
		v.OnDispose(func() { fired++ })
		v.Dispose()
		v.Dispose()
	})
	h.do(func() {
		if fired != 1 {
			t.Errorf("dispose listener fired %d times, want 1", fired)
		}
		if m.Len() != 0 {
			t.Errorf("registry still holds %d views", m.Len())
		}
	})
}

func TestPreview_DocumentChangeRefreshesMatchingView(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	other := h.doc("other.svg", svgB)
	notSVG := h.doc("notes.txt", "plain text")
	m := NewPreviewManager(h.deps())

	h.do(func() { m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() {
		h.ws.FireChange(other)
		h.ws.FireChange(notSVG)
	})
	if h.clock.Pending() != 0 {
		t.Fatalf("unrelated change scheduled a refresh")
	}

	h.ws.Put(a, "<svg broken")
	h.do(func() { h.ws.FireChange(a) })
	if h.clock.Pending() != 0 {
		t.Fatalf("non-SVG content scheduled a refresh")
	}

	h.ws.Put(a, svgB)
	h.do(func() { h.ws.FireChange(a) })
	if h.clock.Pending() != 1 {
		t.Fatalf("edit did not schedule a refresh")
	}
	h.clock.Advance(DebounceWindow)
	h.waitHTML(panel, 2)

	want := mustPreview(t, svgB, State{Resource: a, Zoom: 1}, h.settings.Viewer())
	if panel.HTML() != want {
		t.Errorf("panel does not show edited content")
	}
}

func TestPreview_FollowsActiveEditor(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	txt := h.doc("readme.md", "# hi")
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() { h.ws.FireActive(txt) })
	h.do(func() {
		if !v.Resource().Equal(a) {
			t.Errorf("preview followed a non-SVG editor")
		}
	})

	h.do(func() { h.ws.FireActive(b) })
	h.waitHTML(panel, 2)
	h.do(func() {
		if !v.Resource().Equal(b) {
			t.Errorf("preview did not follow the active SVG editor")
		}
	})
}

func TestPreview_MissingFileShowsErrorWithoutNotification(t *testing.T) {
	h := newHarness(t)
	gone := resource.FromPath("/work/gone.svg")
	m := NewPreviewManager(h.deps())

	h.do(func() { m.View(gone, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	if !strings.Contains(panel.HTML(), "gone.svg") {
		t.Errorf("error page does not name the file: %s", panel.HTML())
	}
	if n := len(h.notes.All()); n != 0 {
		t.Errorf("expected no notification, got %d", n)
	}
	if panel.SavedState() != nil {
		t.Errorf("failed render should not persist state")
	}
}

func TestPreview_LoadFailureNotifies(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	h.ws.Fail(a, errors.New("permission denied"))
	m := NewPreviewManager(h.deps())

	h.do(func() { m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	if panel.HTML() != render.Error("permission denied") {
		t.Errorf("unexpected error page: %s", panel.HTML())
	}
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return h.notes.Count(notify.LevelError) == 1
	}, "expected one error notification")
	if msg := h.notes.All()[0].Message; msg != "Could not load a.svg: permission denied" {
		t.Errorf("message = %q", msg)
	}
}

func TestPreview_SetStateMessageUpdatesZoom(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var v *Preview
	h.do(func() { v = m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	send := func(body any) {
		h.do(func() {
			if err := panel.Send("setState", body); err != nil {
				t.Fatal(err)
			}
		})
	}

	send(map[string]any{"resource": a.String(), "zoom": 2.5})
	send(map[string]any{"resource": "file:///work/other.svg", "zoom": 4})
	send(map[string]any{"resource": a.String(), "zoom": "big"})
	send(map[string]any{"resource": a.String(), "zoom": -1})
	h.do(func() {
		if err := panel.Send("unknown", map[string]any{"zoom": 9}); err != nil {
			t.Fatal(err)
		}
	})

	h.do(func() {
		if v.Zoom() != 2.5 {
			t.Errorf("zoom = %v, want 2.5", v.Zoom())
		}
	})
	st, err := ParseState(panel.SavedState())
	if err != nil {
		t.Fatal(err)
	}
	if st.Zoom != 2.5 {
		t.Errorf("persisted zoom = %v", st.Zoom)
	}
	if h.clock.Pending() != 0 || h.ws.LoadCount(a) != 1 {
		t.Errorf("zoom change should not re-render")
	}
}

func TestExport_RendersAndSavesMatchingMessages(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)

	type saveCall struct{ dataURL, output string }
	var mu sync.Mutex
	var calls []saveCall
	save := func(_ context.Context, dataURL, output string) error {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, saveCall{dataURL, output})
		return nil
	}
	m := NewExportManager(h.deps(), save)

	h.do(func() { m.View(a, host.ColumnActive) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	if panel.ViewType() != ExportViewType {
		t.Errorf("view type = %q", panel.ViewType())
	}
	if panel.Title() != "Export a.svg" {
		t.Errorf("title = %q", panel.Title())
	}
	want, err := render.Export(svgA, render.ExportData{Resource: a.String(), Output: "/work/a.png"}, h.settings.Viewer().RenderOptions())
	if err != nil {
		t.Fatal(err)
	}
	if panel.HTML() != want {
		t.Errorf("unexpected export html")
	}

	h.do(func() {
		_ = panel.Send("exportData", ExportDataMessage{DataURL: "data:image/png;base64,AAAA", Output: "/work/other.png", Resource: "file:///work/other.svg"})
		_ = panel.Send("exportData", ExportDataMessage{DataURL: "data:image/png;base64,AAAA", Output: "/work/a.png", Resource: a.String()})
	})

	testutil.Eventually(t, 2*time.Second, 5*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, "expected one save")
	h.settle()

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0].output != "/work/a.png" {
		t.Errorf("calls = %+v", calls)
	}

	st, err := ParseState(panel.SavedState())
	if err != nil {
		t.Fatal(err)
	}
	if !st.Resource.Equal(a) {
		t.Errorf("state resource = %s", st.Resource)
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(panel.SavedState(), &raw)
	if _, ok := raw["zoom"]; ok {
		t.Errorf("export state should carry no zoom: %s", panel.SavedState())
	}
}
