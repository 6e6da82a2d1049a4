// Package sse implements a Server-Sent Events broker with per-topic
// subscribers. Each panel streams on its own topic; notifications go to
// every client.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// GlobalTopic carries events not addressed to a single panel.
const GlobalTopic = "global"

// Event represents an SSE event.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Frame encodes e in the text/event-stream wire format.
func Frame(e Event) ([]byte, error) {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", e.Type, err)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, payload)), nil
}

type subReq struct {
	topic string
	ch    chan []byte
}

type publishReq struct {
	topic string // empty means every topic
	event Event
}

type countReq struct {
	topic string
	resp  chan int
}

// Broker manages SSE client connections and fans events out to them.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// client table. Public methods communicate with this loop through channels,
// so no mutexes are required.
type Broker struct {
	subscribeCh   chan subReq
	unsubscribeCh chan subReq
	publishCh     chan publishReq
	countReqCh    chan countReq

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates and starts a broker.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan subReq),
		unsubscribeCh: make(chan subReq),
		publishCh:     make(chan publishReq, 256),
		countReqCh:    make(chan countReq),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	topics := make(map[string]map[chan []byte]struct{})

	send := func(clients map[chan []byte]struct{}, raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for _, clients := range topics {
				for ch := range clients {
					close(ch)
				}
			}
			return

		case req := <-b.subscribeCh:
			clients, ok := topics[req.topic]
			if !ok {
				clients = make(map[chan []byte]struct{})
				topics[req.topic] = clients
			}
			clients[req.ch] = struct{}{}

		case req := <-b.unsubscribeCh:
			clients := topics[req.topic]
			if _, ok := clients[req.ch]; ok {
				delete(clients, req.ch)
				close(req.ch)
				if len(clients) == 0 {
					delete(topics, req.topic)
				}
			}

		case req := <-b.publishCh:
			raw, err := Frame(req.event)
			if err != nil {
				continue
			}
			if req.topic != "" {
				send(topics[req.topic], raw)
				continue
			}
			for _, clients := range topics {
				send(clients, raw)
			}

		case req := <-b.countReqCh:
			if req.topic == "" {
				n := 0
				for _, clients := range topics {
					n += len(clients)
				}
				req.resp <- n
				continue
			}
			req.resp <- len(topics[req.topic])
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client on topic and returns its channel.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subReq{topic: topic, ch: ch}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- subReq{topic: topic, ch: ch}:
	case <-b.stopped:
	}
}

// ClientCount returns the number of clients on topic, or on every topic
// when topic is empty.
func (b *Broker) ClientCount(topic string) int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- countReq{topic: topic, resp: resp}:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the clients of one topic.
func (b *Broker) Publish(topic string, event Event) {
	if topic == "" {
		topic = GlobalTopic
	}
	b.enqueue(publishReq{topic: topic, event: event})
}

// Broadcast sends an event to every client on every topic.
func (b *Broker) Broadcast(event Event) {
	b.enqueue(publishReq{event: event})
}

func (b *Broker) enqueue(req publishReq) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- req:
	case <-b.stopped:
	}
}

// ServeHTTP streams the global topic (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.ServeTopic(w, r, GlobalTopic)
}

// ServeTopic streams one topic. initial frames are written before any
// published event, so a reconnecting client sees current content first.
func (b *Broker) ServeTopic(w http.ResponseWriter, r *http.Request, topic string, initial ...Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := b.Subscribe(topic)
	defer b.Unsubscribe(topic, ch)

	for _, e := range initial {
		if raw, err := Frame(e); err == nil {
			_, _ = w.Write(raw)
		}
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
