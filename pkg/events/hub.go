// Package events provides the in-process subscription mechanism the stores
// use to notify screens of state changes. Delivery is synchronous: all
// mutations happen on the consumer's event loop, so subscribers observe every
// published snapshot in order.
package events

import "sync"

// Hub fans a value out to the current set of subscribers.
type Hub[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// NewHub constructs an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: map[int]func(T){}}
}

// Subscribe registers fn and returns a cancel function. A screen leaving
// focus cancels its subscription; it does not abort in-flight work.
func (h *Hub[T]) Subscribe(fn func(T)) (cancel func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Publish delivers value to every subscriber registered at call time.
func (h *Hub[T]) Publish(value T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}
