package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	if b.ClientCount("") != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe("p1")
	if b.ClientCount("p1") != 1 || b.ClientCount("") != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe("p1", ch)
	if b.ClientCount("p1") != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishIsTopicScoped(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	p1 := b.Subscribe("p1")
	defer b.Unsubscribe("p1", p1)
	p2 := b.Subscribe("p2")
	defer b.Unsubscribe("p2", p2)

	b.Publish("p1", Event{Type: "update", Data: map[string]string{"title": "Preview a.svg"}})

	select {
	case msg := <-p1:
		s := string(msg)
		if !strings.Contains(s, "event: update") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"title":"Preview a.svg"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}

	_ = b.ClientCount("")
	select {
	case msg := <-p2:
		t.Errorf("p2 received %q", msg)
	default:
	}
}

func TestBroadcastReachesEveryTopic(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	chs := []chan []byte{b.Subscribe("p1"), b.Subscribe("p2"), b.Subscribe(GlobalTopic)}

	b.Broadcast(Event{Type: "notification", Data: map[string]string{"message": "hi"}})

	for i, ch := range chs {
		select {
		case msg := <-ch:
			if !strings.Contains(string(msg), "event: notification") {
				t.Errorf("client %d got %q", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d: timeout", i)
		}
	}
}

func TestServeTopicWritesInitialFrames(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/panels/p1/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeTopic(w, req, "p1", Event{Type: "update", Data: map[string]string{"html": "<p>now</p>"}})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount("p1") != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish("p1", Event{Type: "reveal", Data: map[string]string{}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	first := strings.Index(body, "event: update")
	second := strings.Index(body, "event: reveal")
	if first == -1 || second == -1 || first > second {
		t.Errorf("unexpected stream %q", body)
	}

	time.Sleep(50 * time.Millisecond)
	if b.ClientCount("p1") != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ch := b.Subscribe("p1")
	defer b.Unsubscribe("p1", ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish("p1", Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe(GlobalTopic)
	if b.ClientCount(GlobalTopic) != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount("") != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish("p1", Event{Type: "update", Data: map[string]string{}})
	b.Broadcast(Event{Type: "notification", Data: map[string]string{}})
}
