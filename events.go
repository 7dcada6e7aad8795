package main

import (
	"sync"
)

// Emitter is a typed observer list. The zero value is ready to use.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []emitterHandler[T]
}

type emitterHandler[T any] struct {
	id   int
	once bool
	fn   func(T)
}

// On registers fn and returns an id usable with Off
func (e *Emitter[T]) On(fn func(T)) int {
	return e.add(fn, false)
}

// Once registers fn for a single emission
func (e *Emitter[T]) Once(fn func(T)) int {
	return e.add(fn, true)
}

func (e *Emitter[T]) add(fn func(T), once bool) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers = append(e.handlers, emitterHandler[T]{id: e.nextID, once: once, fn: fn})
	return e.nextID
}

// Off removes the handler registered under id
func (e *Emitter[T]) Off(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

// Emit calls every handler in registration order. Handlers run outside
// the lock so they may register or remove handlers themselves.
func (e *Emitter[T]) Emit(v T) {
	e.mu.Lock()
	snapshot := make([]emitterHandler[T], len(e.handlers))
	copy(snapshot, e.handlers)
	kept := e.handlers[:0:0]
	for _, h := range e.handlers {
		if !h.once {
			kept = append(kept, h)
		}
	}
	e.handlers = kept
	e.mu.Unlock()

	for _, h := range snapshot {
		h.fn(v)
	}
}

// Len reports the number of registered handlers
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}

// Loop is the mailbox of the UI goroutine. Work posted from any goroutine
// runs on the next Drain, which the game loop calls once per frame.
type Loop struct {
	mu      sync.Mutex
	pending []func()
}

// NewLoop creates an empty mailbox
func NewLoop() *Loop {
	return &Loop{}
}

// Post queues fn for the next drain
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()
}

// Drain runs queued work until the mailbox is empty. Work posted while
// draining runs in the same call. Returns the number of funcs run.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Pending reports whether work is waiting
func (l *Loop) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}
