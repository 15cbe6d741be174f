// Package memory provides the in-process broadcast bus: the simulated
// same-origin network connecting engine instances within one process.
// Delivery is synchronous and in publish order, which keeps multi-tab
// tests deterministic.
package memory

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/calcvault/core/internal/event"
)

var ErrClosed = errors.New("memory bus: endpoint closed")

// Bus is the shared medium. Each simulated context attaches one
// Endpoint; a publish on any endpoint is delivered to all others.
type Bus struct {
	mu        sync.Mutex
	endpoints map[uuid.UUID]*Endpoint

	// drop, when set, is consulted per delivery and lets tests
	// inject transport loss.
	drop func(to *Endpoint, ev event.Event) bool
}

func NewBus() *Bus {
	return &Bus{endpoints: make(map[uuid.UUID]*Endpoint)}
}

// SetDropFunc installs a loss-injection hook. A true return drops the
// delivery to that endpoint.
func (b *Bus) SetDropFunc(fn func(to *Endpoint, ev event.Event) bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop = fn
}

// Endpoint attaches a new context to the bus. Events published before
// attachment are never replayed.
func (b *Bus) Endpoint() *Endpoint {
	ep := &Endpoint{bus: b, id: uuid.New()}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[ep.id] = ep
	return ep
}

func (b *Bus) fanOut(from *Endpoint, ev event.Event) {
	b.mu.Lock()
	drop := b.drop
	targets := make([]*Endpoint, 0, len(b.endpoints))
	for id, ep := range b.endpoints {
		if id == from.id {
			continue
		}
		targets = append(targets, ep)
	}
	b.mu.Unlock()

	for _, ep := range targets {
		if drop != nil && drop(ep, ev) {
			continue
		}
		ep.deliver(ev)
	}
}

// Endpoint is one context's attachment to the bus.
type Endpoint struct {
	bus *Bus
	id  uuid.UUID

	mu       sync.Mutex
	handlers []func(event.Event)
	closed   bool
}

func (e *Endpoint) Publish(ev event.Event) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	e.bus.fanOut(e, ev)
	return nil
}

func (e *Endpoint) OnEvent(h func(event.Event)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, h)
}

func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.handlers = nil
	e.mu.Unlock()

	e.bus.mu.Lock()
	delete(e.bus.endpoints, e.id)
	e.bus.mu.Unlock()
	return nil
}

func (e *Endpoint) deliver(ev event.Event) {
	e.mu.Lock()
	handlers := make([]func(event.Event), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	// Handlers run outside the lock so they may publish in turn.
	for _, h := range handlers {
		h(ev)
	}
}
