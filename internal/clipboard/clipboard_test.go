package clipboard

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestTerminalWritesOSC52(t *testing.T) {
	var buf bytes.Buffer
	c := NewTerminal(&buf)
	c.env = func(string) string { return "" }

	if err := c.WriteText("data:image/svg+xml,%3Csvg%3E"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\x1b]52;c;") {
		t.Errorf("missing OSC 52 prefix: %q", out)
	}
	if !strings.Contains(out, base64.StdEncoding.EncodeToString([]byte("data:image/svg+xml,%3Csvg%3E"))) {
		t.Errorf("payload not base64 encoded: %q", out)
	}
}

func TestTerminalTmuxPassthrough(t *testing.T) {
	var buf bytes.Buffer
	c := NewTerminal(&buf)
	c.env = func(k string) string {
		if k == "TMUX" {
			return "/tmp/tmux-1000/default,1,0"
		}
		return ""
	}
	if err := c.WriteText("x"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\x1bPtmux;") {
		t.Errorf("expected tmux passthrough, got %q", buf.String())
	}
}

func TestMemory(t *testing.T) {
	var m Memory
	_ = m.WriteText("a")
	_ = m.WriteText("b")
	if m.Text() != "b" {
		t.Errorf("Text = %q", m.Text())
	}
	var _ Clipboard = &m
	var _ Clipboard = NewTerminal(&bytes.Buffer{})
}
