// Package transport defines the broadcast medium connecting contexts.
// A transport is a best-effort fan-out: publishes reach every other
// live endpoint, never the publisher itself, with no replay for
// endpoints attached later and no ordering across publishers.
package transport

import "github.com/calcvault/core/internal/event"

type Transport interface {
	// Publish fans ev out to every other endpoint on the medium.
	// Delivery is best effort; a lost event is simply lost.
	Publish(ev event.Event) error

	// OnEvent registers h for every event published by other
	// endpoints. Handlers may be invoked from other goroutines.
	OnEvent(h func(event.Event))

	Close() error
}
