// Package event provides typed publish/subscribe emitters with explicit
// unsubscribe handles.
package event

import "sync"

// Disposable releases a resource. Dispose must be safe to call twice.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable. The function runs at most once.
func DisposeFunc(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(d.fn)
}

// Emitter fans a value out to subscribers. Listeners are called in
// subscription order on the goroutine calling Fire; the listener list is
// snapshotted first, so listeners may subscribe or unsubscribe while firing.
type Emitter[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []listener[T]
	closed    bool
}

type listener[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns a handle that removes it.
func (e *Emitter[T]) Subscribe(fn func(T)) Disposable {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return DisposeFunc(func() {})
	}
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener[T]{id: id, fn: fn})
	return DisposeFunc(func() { e.remove(id) })
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Fire calls every current listener with v.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	snapshot := make([]listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	for _, l := range snapshot {
		if e.subscribed(l.id) {
			l.fn(v)
		}
	}
}

func (e *Emitter[T]) subscribed(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range e.listeners {
		if l.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of listeners.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// Close drops all listeners; later subscriptions are ignored.
func (e *Emitter[T]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.listeners = nil
}

// Stack collects disposables and releases them in reverse order.
type Stack struct {
	mu    sync.Mutex
	items []Disposable
}

// Push adds d to the stack.
func (s *Stack) Push(d Disposable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, d)
}

// DisposeAll pops and disposes every item, last pushed first.
func (s *Stack) DisposeAll() {
	for {
		s.mu.Lock()
		n := len(s.items)
		if n == 0 {
			s.mu.Unlock()
			return
		}
		d := s.items[n-1]
		s.items = s.items[:n-1]
		s.mu.Unlock()
		if d != nil {
			d.Dispose()
		}
	}
}

// Len returns the number of held disposables.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
