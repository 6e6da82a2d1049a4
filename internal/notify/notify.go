// Package notify delivers user-visible notifications.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/svgview/internal/host"
	"github.com/starford/svgview/internal/sse"
)

// Level is a notification severity.
type Level string

// Severities.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one message shown to the user.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Func adapts a function to host.Notifier.
type Func func(level Level, msg string)

// Info shows an informational message.
func (f Func) Info(msg string) { f(LevelInfo, msg) }

// Warn shows a warning.
func (f Func) Warn(msg string) { f(LevelWarning, msg) }

// Error shows an error.
func (f Func) Error(msg string) { f(LevelError, msg) }

var _ host.Notifier = Func(nil)

// Logger writes notifications to a structured logger.
func Logger(logger *slog.Logger) Func {
	return func(level Level, msg string) {
		attrs := []any{slog.String("message", msg)}
		switch level {
		case LevelError:
			logger.Error("notification", attrs...)
		case LevelWarning:
			logger.Warn("notification", attrs...)
		default:
			logger.Info("notification", attrs...)
		}
	}
}

// Broadcaster publishes notifications to every SSE client as
// "notification" events.
func Broadcaster(broker *sse.Broker) Func {
	return func(level Level, msg string) {
		broker.Broadcast(sse.Event{
			Type: "notification",
			Data: Notification{Level: level, Message: msg, Time: time.Now().UTC()},
		})
	}
}

// Writer prints one line per notification, e.g. to stderr for the CLI.
func Writer(w io.Writer) Func {
	var mu sync.Mutex
	return func(level Level, msg string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[%s] %s\n", level, msg)
	}
}

// Multi fans out to every notifier.
func Multi(ns ...host.Notifier) Func {
	return func(level Level, msg string) {
		for _, n := range ns {
			switch level {
			case LevelError:
				n.Error(msg)
			case LevelWarning:
				n.Warn(msg)
			default:
				n.Info(msg)
			}
		}
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Info records an informational message.
func (r *Recorder) Info(msg string) { r.add(LevelInfo, msg) }

// Warn records a warning.
func (r *Recorder) Warn(msg string) { r.add(LevelWarning, msg) }

// Error records an error.
func (r *Recorder) Error(msg string) { r.add(LevelError, msg) }

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, Notification{Level: level, Message: msg, Time: time.Now()})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.all))
	copy(out, r.all)
	return out
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, x := range r.All() {
		if x.Level == level {
			n++
		}
	}
	return n
}
