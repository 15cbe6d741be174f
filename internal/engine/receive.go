package engine

import (
	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/metrics"
	"github.com/calcvault/core/pkg/logger"
)

// receive is the single choke point for inbound transport events. The
// originating username is resolved per event kind, and the whole event
// is dropped before touching any store when that user is blocked.
// Application is idempotent, so duplicate delivery from an
// at-least-once transport substitute cannot corrupt state.
func (e *Engine) receive(ev event.Event) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}

	origin, privileged := e.resolveOrigin(ev)
	if origin != "" && !privileged && e.IsBlocked(origin) {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonBlocked).Inc()
		logger.Debug().Str("kind", string(ev.Kind())).Str("origin", origin).Msg("dropped event from blocked user")
		return
	}

	switch v := ev.(type) {
	case event.ChatMessage:
		e.applyChatMessage(v.Message)
	case event.PresenceUpdate:
		e.applyPresence(v.Username, v.Status)
	case event.ReadReceipt:
		e.applyReadReceipt(v.Reader, v.OriginalSender)
	case event.MessageEdit:
		e.applyEdit(v.ID, v.Text)
	case event.UserJoined:
		e.applyUserJoined(v.Entry)
	}
}

// applied counts an event only when it changed local state; dedupes
// and unknown-id no-ops stay out of the counter.
func applied(kind event.Kind) {
	metrics.EventsApplied.WithLabelValues(string(kind)).Inc()
}

// resolveOrigin names the user an event originates from, and whether
// the event is exempt from the block filter. Join announcements carry
// no conversational traffic and are never filtered; system broadcasts
// bypass the filter unless configured otherwise.
func (e *Engine) resolveOrigin(ev event.Event) (origin string, privileged bool) {
	switch v := ev.(type) {
	case event.ChatMessage:
		system := v.Message.Sender == domain.SystemSender && v.Message.Receiver == domain.BroadcastReceiver
		return v.Message.Sender, system && !e.opts.FilterSystemBroadcasts
	case event.PresenceUpdate:
		return v.Username, false
	case event.ReadReceipt:
		return v.Reader, false
	case event.MessageEdit:
		e.mu.Lock()
		defer e.mu.Unlock()
		if m, ok := e.byID[v.ID]; ok {
			return m.Sender, false
		}
		return "", false
	default:
		return "", false
	}
}

func (e *Engine) applyChatMessage(msg domain.Message) {
	e.mu.Lock()
	if _, dup := e.byID[msg.ID]; dup {
		e.mu.Unlock()
		return
	}
	m := msg
	e.messages = append(e.messages, &m)
	e.byID[m.ID] = &m
	e.mu.Unlock()

	applied(event.KindChatMessage)
	e.notify()
}

// applyPresence is last-write-wins with no timestamp tiebreak; a stale
// update can overwrite a fresher one. Accepted for a single-origin
// simulation.
func (e *Engine) applyPresence(username string, status domain.Presence) {
	e.mu.Lock()
	e.presence[username] = status
	e.mu.Unlock()

	applied(event.KindPresenceUpdate)
	e.notify()
}

// applyReadReceipt is the symmetric half of MarkRead: when someone
// reports having read my messages, my own copies flip to read too.
func (e *Engine) applyReadReceipt(reader, originalSender string) {
	e.mu.Lock()
	if e.username == "" || e.username != originalSender {
		e.mu.Unlock()
		return
	}
	changed := false
	for _, m := range e.messages {
		if m.Sender == e.username && m.Receiver == reader && m.Status != domain.StatusRead {
			m.Status = domain.StatusRead
			changed = true
		}
	}
	e.mu.Unlock()

	if changed {
		applied(event.KindReadReceipt)
		e.notify()
	}
}

func (e *Engine) applyEdit(id, text string) {
	e.mu.Lock()
	m, ok := e.byID[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	m.Text = text
	m.IsEdited = true
	e.mu.Unlock()

	applied(event.KindMessageEdit)
	e.notify()
}

// applyUserJoined registers the announced user locally and re-announces
// our own presence so the newcomer learns we are online.
func (e *Engine) applyUserJoined(entry domain.DirectoryEntry) {
	if e.addDirectoryEntry(entry) {
		applied(event.KindUserJoined)
		e.notify()
	}
	e.SetSelfStatus(domain.PresenceOnline)
}
