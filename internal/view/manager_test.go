package view

import (
	"encoding/json"
	"testing"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/notify"
	"github.com/starford/svgview/internal/resource"
	"github.com/starford/svgview/internal/settings"
	"github.com/starford/svgview/internal/testutil"
)

func TestManager_ViewReusesPanelForSameResource(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	var first, second *Preview
	h.do(func() {
		first = m.View(a, host.ColumnBeside)
		second = m.View(resource.FromPath("/work/./a.svg"), host.ColumnTwo)
	})

	if first != second {
		t.Fatalf("expected the existing view to be reused")
	}
	panels := h.panels.Panels()
	if len(panels) != 1 {
		t.Fatalf("expected 1 panel, got %d", len(panels))
	}
	if panels[0].RevealCount() != 1 || panels[0].Column() != host.ColumnTwo {
		t.Errorf("existing panel was not revealed in the requested column")
	}
	h.do(func() {
		if m.Len() != 1 {
			t.Errorf("Len = %d", m.Len())
		}
	})
}

func TestManager_DistinctResourcesGetDistinctViews(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	m := NewPreviewManager(h.deps())

	h.do(func() {
		m.View(a, host.ColumnBeside)
		vb := m.View(b, host.ColumnBeside)
		if m.Len() != 2 {
			t.Errorf("Len = %d", m.Len())
		}
		active, ok := m.Active()
		if !ok || active != vb {
			t.Errorf("newest view should be active")
		}
		r, ok := m.ActiveResource()
		if !ok || !r.Equal(b) {
			t.Errorf("ActiveResource = %s, %v", r, ok)
		}
	})
}

func TestManager_ClosedPanelLeavesRegistry(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	h.do(func() { m.View(a, host.ColumnBeside) })
	panel := h.panels.Panels()[0]
	h.waitHTML(panel, 1)

	h.do(func() {
		panel.Dispose()
		if m.Len() != 0 {
			t.Errorf("closed view still registered")
		}
		if _, ok := m.Active(); ok {
			t.Errorf("closed view still active")
		}
	})

	h.do(func() { m.View(a, host.ColumnBeside) })
	if len(h.panels.Panels()) != 2 {
		t.Errorf("reopening should create a new panel")
	}
}

func TestManager_FocusDisposesDuplicates(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	m := NewPreviewManager(h.deps())

	state, err := json.Marshal(State{Resource: a, Zoom: 1.5})
	if err != nil {
		t.Fatal(err)
	}
	p1 := testutil.NewFakePanel("p1", PreviewViewType, "Preview a.svg", host.ColumnOne)
	p2 := testutil.NewFakePanel("p2", PreviewViewType, "Preview a.svg", host.ColumnTwo)

	h.do(func() {
		if err := m.DeserializeWebviewPanel(p1, state); err != nil {
			t.Fatal(err)
		}
		if err := m.DeserializeWebviewPanel(p2, state); err != nil {
			t.Fatal(err)
		}
		if m.Len() != 2 {
			t.Fatalf("Len = %d, want 2 revived views", m.Len())
		}
	})

	h.do(func() { p2.Focus(true) })

	if !p1.Disposed() {
		t.Errorf("duplicate panel was not disposed")
	}
	if p2.Disposed() {
		t.Errorf("focused panel was disposed")
	}
	h.do(func() {
		if m.Len() != 1 {
			t.Errorf("Len = %d", m.Len())
		}
		active, ok := m.Active()
		if !ok || active.Panel() != p2 {
			t.Errorf("focused view should be active")
		}
		if active.Zoom() != 1.5 {
			t.Errorf("revived zoom = %v", active.Zoom())
		}
	})

	h.do(func() { p2.Focus(false) })
	h.do(func() {
		if _, ok := m.Active(); ok {
			t.Errorf("blurred view still active")
		}
	})
}

func TestManager_DeserializeInvalidState(t *testing.T) {
	h := newHarness(t)
	m := NewPreviewManager(h.deps())

	for _, raw := range []string{`not json`, `{}`, `{"resource":"http://example.com/a.svg"}`} {
		p := testutil.NewFakePanel("p", PreviewViewType, "", host.ColumnOne)
		h.do(func() {
			if err := m.DeserializeWebviewPanel(p, json.RawMessage(raw)); err == nil {
				t.Errorf("%s: expected error", raw)
			}
		})
		if !p.Disposed() {
			t.Errorf("%s: panel should be disposed", raw)
		}
	}
	h.do(func() {
		if m.Len() != 0 {
			t.Errorf("Len = %d", m.Len())
		}
	})
}

func TestManager_RevivedMissingFileStaysOpen(t *testing.T) {
	h := newHarness(t)
	m := NewExportManager(h.deps(), nil)
	p := testutil.NewFakePanel("p", ExportViewType, "Export gone.svg", host.ColumnOne)

	h.do(func() {
		err := m.DeserializeWebviewPanel(p, json.RawMessage(`{"resource":"file:///work/gone.svg"}`))
		if err != nil {
			t.Fatal(err)
		}
	})
	h.waitHTML(p, 1)

	if p.Disposed() {
		t.Errorf("panel for a missing file should stay open")
	}
	if h.notes.Count(notify.LevelError) != 0 {
		t.Errorf("missing file should not notify")
	}
	h.do(func() {
		if m.Len() != 1 {
			t.Errorf("Len = %d", m.Len())
		}
	})
}

func TestManager_RefreshAllViews(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	m := NewPreviewManager(h.deps())

	h.do(func() {
		m.View(a, host.ColumnBeside)
		m.View(b, host.ColumnBeside)
	})
	for _, p := range h.panels.Panels() {
		h.waitHTML(p, 1)
	}

	h.settings.Set(settings.Viewer{PreviewColumn: host.ColumnOne, TransparencyColor: "red"})
	h.do(m.Refresh)
	if h.clock.Pending() != 2 {
		t.Fatalf("expected a pending refresh per view, got %d", h.clock.Pending())
	}
	h.clock.Advance(DebounceWindow)

	for _, p := range h.panels.Panels() {
		h.waitHTML(p, 2)
	}
	want := mustPreview(t, svgA, State{Resource: a, Zoom: 1}, h.settings.Viewer())
	if h.panels.Panels()[0].HTML() != want {
		t.Errorf("refresh did not pick up the new settings")
	}
}

func TestManager_Dispose(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	m := NewPreviewManager(h.deps())

	h.do(func() {
		m.View(a, host.ColumnBeside)
		m.View(b, host.ColumnBeside)
		m.Dispose()
		if m.Len() != 0 {
			t.Errorf("Len = %d", m.Len())
		}
	})
	for _, p := range h.panels.Panels() {
		if !p.Disposed() {
			t.Errorf("panel %s not disposed", p.ID())
		}
	}
}

func TestPreviewManager_AutoPreview(t *testing.T) {
	h := newHarness(t)
	a := h.doc("a.svg", svgA)
	b := h.doc("b.svg", svgB)
	txt := h.doc("a.txt", "hello")
	m := NewPreviewManager(h.deps())

	h.do(func() { h.ws.FireActive(a) })
	if len(h.panels.Panels()) != 0 {
		t.Fatalf("auto preview is off by default")
	}

	opts := settings.Default()
	opts.EnableAutoPreview = true
	opts.PreviewColumn = host.ColumnThree
	h.settings.Set(opts)

	h.do(func() { h.ws.FireActive(txt) })
	if len(h.panels.Panels()) != 0 {
		t.Fatalf("non-SVG editor opened a preview")
	}

	h.do(func() { h.ws.FireActive(a) })
	panels := h.panels.Panels()
	if len(panels) != 1 {
		t.Fatalf("expected auto preview, got %d panels", len(panels))
	}
	if panels[0].Column() != host.ColumnThree {
		t.Errorf("column = %s", panels[0].Column())
	}

	h.do(func() { h.ws.FireActive(b) })
	if len(h.panels.Panels()) != 1 {
		t.Errorf("auto preview should not open a second panel")
	}
	h.waitHTML(panels[0], 2)
	h.do(func() {
		if r, _ := m.ActiveResource(); !r.Equal(b) {
			t.Errorf("preview did not follow the editor: %s", r)
		}
	})
}
