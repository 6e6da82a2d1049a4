// Package clipboard puts text on the user's clipboard.
package clipboard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aymanbagabas/go-osc52/v2"
)

// Clipboard accepts text for the system clipboard.
type Clipboard interface {
	WriteText(text string) error
}

// Terminal writes OSC 52 escape sequences, which terminal emulators turn
// into clipboard writes. It works over SSH.
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	env func(string) string
}

// NewTerminal returns a clipboard writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, env: os.Getenv}
}

// WriteText implements Clipboard. Inside tmux or screen the sequence is
// wrapped so the multiplexer passes it through.
func (t *Terminal) WriteText(text string) error {
	seq := osc52.New(text)
	switch term := t.env("TERM"); {
	case t.env("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(term, "screen"):
		seq = seq.Screen()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := seq.WriteTo(t.w); err != nil {
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}

// Memory keeps the last text written. It is used when no terminal is
// attached and in tests.
type Memory struct {
	mu   sync.Mutex
	text string
}

// WriteText implements Clipboard.
func (m *Memory) WriteText(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Text returns the last text written.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
