package engine

import (
	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
)

// SetSelfStatus updates the local user's presence and announces it to
// the network. A no-op without identity.
func (e *Engine) SetSelfStatus(status domain.Presence) {
	e.mu.Lock()
	if e.closed || e.username == "" {
		e.mu.Unlock()
		return
	}
	me := e.username
	e.presence[me] = status
	e.mu.Unlock()

	e.notify()
	e.publish(event.PresenceUpdate{Username: me, Status: status})
}

// Status resolves a user's presence: live state first, then the
// directory entry's static fallback, then offline.
func (e *Engine) Status(username string) domain.Presence {
	e.mu.Lock()
	live, ok := e.presence[username]
	e.mu.Unlock()
	if ok && live.Valid() {
		return live
	}

	if entry, found := e.directoryEntry(username); found && entry.Status.Valid() {
		return entry.Status
	}
	return domain.PresenceOffline
}

// ContactInfo decorates a contact with the status this viewer should
// render. A blocked contact always reads offline regardless of true
// presence.
func (e *Engine) ContactInfo(c domain.Contact) domain.Contact {
	if e.IsBlocked(c.Name) {
		c.Status = domain.PresenceOffline
		return c
	}

	e.mu.Lock()
	live, ok := e.presence[c.Name]
	e.mu.Unlock()
	if ok && live.Valid() {
		c.Status = live
	}
	return c
}
