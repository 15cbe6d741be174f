package engine

import (
	"sort"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/metrics"
)

// Send creates and stores an outbound message, then announces it. A
// missing identity or a blocked receiver makes this a silent no-op;
// pre-validation and user feedback are the caller's job. Sending also
// implies liveness, so a presence update rides along.
func (e *Engine) Send(text, receiver string, attachment *domain.Attachment) *domain.Message {
	e.mu.Lock()
	if e.closed || e.username == "" {
		e.mu.Unlock()
		return nil
	}
	me := e.username
	e.mu.Unlock()

	if e.IsBlocked(receiver) {
		return nil
	}

	msg := domain.NewMessage(me, receiver, text, attachment)

	e.mu.Lock()
	e.messages = append(e.messages, msg)
	e.byID[msg.ID] = msg
	e.presence[me] = domain.PresenceOnline
	e.mu.Unlock()

	metrics.MessagesSent.Inc()
	e.notify()
	e.publish(event.ChatMessage{Message: *msg})
	e.publish(event.PresenceUpdate{Username: me, Status: domain.PresenceOnline})

	out := *msg
	return &out
}

// Edit rewrites a message's text and marks it edited. Identity,
// sender, receiver and timestamp never change. A missing id is a
// no-op. Ownership is only checked when Options.EnforceEditOwnership
// is set; the stock behavior trusts the caller.
func (e *Engine) Edit(id, newText string) {
	e.mu.Lock()
	m, ok := e.byID[id]
	if !ok || e.closed || (e.opts.EnforceEditOwnership && m.Sender != e.username) {
		e.mu.Unlock()
		return
	}
	m.Text = newText
	m.IsEdited = true
	e.mu.Unlock()

	e.notify()
	e.publish(event.MessageEdit{ID: id, Text: newText})
}

// ToggleReaction sets the message's reaction to emoji, or clears it
// when it already equals emoji. A second, different emoji replaces
// rather than stacks. Reactions stay local: each viewer renders them
// from their own state, so nothing is published.
func (e *Engine) ToggleReaction(id, emoji string) {
	e.mu.Lock()
	m, ok := e.byID[id]
	if !ok || e.closed {
		e.mu.Unlock()
		return
	}
	if m.Reaction == emoji {
		m.Reaction = ""
	} else {
		m.Reaction = emoji
	}
	e.mu.Unlock()

	e.notify()
}

// MarkRead flips every unread message from contact to read and, if
// anything changed, publishes a single read receipt so the sender's
// context can update its own copies.
func (e *Engine) MarkRead(contact string) {
	e.mu.Lock()
	if e.closed || e.username == "" {
		e.mu.Unlock()
		return
	}
	me := e.username
	e.mu.Unlock()

	if e.IsBlocked(contact) {
		return
	}

	e.mu.Lock()
	changed := false
	for _, m := range e.messages {
		if m.Sender == contact && m.Receiver == me && m.Status != domain.StatusRead {
			m.Status = domain.StatusRead
			changed = true
		}
	}
	e.mu.Unlock()

	if !changed {
		return
	}
	e.notify()
	e.publish(event.ReadReceipt{Reader: me, OriginalSender: contact})
}

// Clear removes every message between the local user and contact from
// this context only. Nothing is published: the counterpart keeps its
// copy (delete-for-me semantics).
func (e *Engine) Clear(contact string) {
	e.mu.Lock()
	me := e.username
	kept := e.messages[:0]
	for _, m := range e.messages {
		if (m.Sender == me && m.Receiver == contact) || (m.Sender == contact && m.Receiver == me) {
			delete(e.byID, m.ID)
			continue
		}
		kept = append(kept, m)
	}
	e.messages = kept
	e.mu.Unlock()

	e.notify()
}

// Conversation returns the chronological two-way message history with
// contact. Empty without a local identity. The result is a snapshot.
func (e *Engine) Conversation(contact string) []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.username == "" {
		return nil
	}

	var out []domain.Message
	for _, m := range e.messages {
		if (m.Sender == e.username && m.Receiver == contact) || (m.Sender == contact && m.Receiver == e.username) {
			out = append(out, *m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}
