// Package engine implements the messaging and presence core. One
// Engine is one context: it owns a full private copy of all state
// (messages, presence, block list, directory) and stays approximately
// in sync with other contexts purely by event replication over the
// transport. There is no server arbitrating order; each context
// applies events as they arrive.
package engine

import (
	"sync"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/store"
	"github.com/calcvault/core/internal/transport"
	"github.com/calcvault/core/pkg/logger"
)

// Options tune behaviors that are policy rather than mechanism.
type Options struct {
	// FilterSystemBroadcasts subjects System_Admin broadcasts to the
	// block filter like any peer message. Off by default: admin
	// messages are privileged.
	FilterSystemBroadcasts bool

	// EnforceEditOwnership rejects edits to messages the local user
	// did not send. Off by default: stock behavior trusts the UI to
	// never expose the affordance.
	EnforceEditOwnership bool
}

// Engine is the aggregate behind every conversation view. All public
// operations are safe for concurrent use; transport callbacks arrive
// on other goroutines. Query results are snapshots: mutating them has
// no effect on engine state.
type Engine struct {
	store     *store.Store
	transport transport.Transport
	opts      Options

	mu       sync.Mutex
	username string
	avatar   string
	messages []*domain.Message
	byID     map[string]*domain.Message
	presence map[string]domain.Presence
	subs     map[int]func()
	nextSub  int
	closed   bool
}

// New builds an engine over its persisted store and transport and
// starts consuming inbound events. Identity is loaded from the store;
// until one exists, send and conversation operations are no-ops.
func New(st *store.Store, tr transport.Transport, opts Options) (*Engine, error) {
	username, avatar, err := st.Identity()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:     st,
		transport: tr,
		opts:      opts,
		username:  username,
		avatar:    avatar,
		byID:      make(map[string]*domain.Message),
		presence:  make(map[string]domain.Presence),
		subs:      make(map[int]func()),
	}
	tr.OnEvent(e.receive)
	return e, nil
}

// Close detaches the engine: every later operation is a no-op and
// inbound events are ignored. The store and transport stay open; their
// owner closes them.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.subs = map[int]func(){}
	e.mu.Unlock()
}

// SetIdentity establishes (or replaces) the local identity and
// persists it. The account-setup flow calls this before anything else
// is meaningful.
func (e *Engine) SetIdentity(username, avatar string) error {
	if err := e.store.SaveIdentity(username, avatar); err != nil {
		return err
	}
	e.mu.Lock()
	e.username = username
	e.avatar = avatar
	e.mu.Unlock()
	e.notify()
	return nil
}

// Identity returns the local username and avatar, both empty before
// account setup.
func (e *Engine) Identity() (username, avatar string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.username, e.avatar
}

// Subscribe registers fn to run synchronously after every state
// change. The returned cancel func removes the subscription.
func (e *Engine) Subscribe(fn func()) (cancel func()) {
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// notify fans out to subscribers outside the engine lock, so a
// subscriber may call back into the engine.
func (e *Engine) notify() {
	e.mu.Lock()
	fns := make([]func(), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// publish is best effort: a failed publish is a lost event, not an
// error the caller sees.
func (e *Engine) publish(ev event.Event) {
	if err := e.transport.Publish(ev); err != nil {
		logger.Warn().Err(err).Str("kind", string(ev.Kind())).Msg("publish failed")
	}
}
