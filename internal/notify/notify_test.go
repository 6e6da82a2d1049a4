package notify

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/starford/svgview/internal/sse"
)

func TestWriterAndMulti(t *testing.T) {
	var buf bytes.Buffer
	rec := &Recorder{}
	n := Multi(Writer(&buf), rec)

	n.Info("export done. /tmp/a.png")
	n.Warn("Please set number.")
	n.Error("boom")

	out := buf.String()
	for _, want := range []string{"[info] export done. /tmp/a.png", "[warning] Please set number.", "[error] boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if rec.Count(LevelWarning) != 1 || len(rec.All()) != 3 {
		t.Errorf("recorder = %+v", rec.All())
	}
}

func TestBroadcaster(t *testing.T) {
	b := sse.NewBroker()
	defer b.Close()
	ch := b.Subscribe(sse.GlobalTopic)
	defer b.Unsubscribe(sse.GlobalTopic, ch)

	Broadcaster(b).Error("disk full")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: notification") || !strings.Contains(s, `"message":"disk full"`) {
			t.Errorf("unexpected frame %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for notification")
	}
}
