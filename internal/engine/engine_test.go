package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calcvault/core/internal/engine"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/store"
	"github.com/calcvault/core/internal/transport/memory"
)

// newContext simulates one tab: a fresh engine over its own in-memory
// store, attached to the shared bus.
func newContext(t *testing.T, bus *memory.Bus, username string) *engine.Engine {
	t.Helper()
	return newContextOpts(t, bus, username, engine.Options{})
}

func newContextOpts(t *testing.T, bus *memory.Bus, username string, opts engine.Options) *engine.Engine {
	t.Helper()
	st, err := store.OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	e, err := engine.New(st, bus.Endpoint(), opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)

	if username != "" {
		require.NoError(t, e.SetIdentity(username, ""))
	}
	return e
}

// probe attaches a bare endpoint that records every event on the bus,
// so tests can assert on what was (or was not) published.
func probe(bus *memory.Bus) *[]event.Event {
	var events []event.Event
	ep := bus.Endpoint()
	ep.OnEvent(func(ev event.Event) { events = append(events, ev) })
	return &events
}
