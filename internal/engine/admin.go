package engine

import (
	"sort"
	"strconv"
	"time"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/pkg/logger"
)

// Stats is the aggregate view the admin console renders.
type Stats struct {
	TotalMessages int       `json:"totalMessages"`
	TotalUsers    int       `json:"totalUsers"`
	ActiveUsers   int       `json:"activeUsers"`
	ServerTime    time.Time `json:"serverTime"`
}

// AdminUser is a directory entry overlaid with live presence and the
// local block flag.
type AdminUser struct {
	Name      string          `json:"name"`
	Avatar    string          `json:"avatar,omitempty"`
	Bio       string          `json:"bio,omitempty"`
	Status    domain.Presence `json:"status"`
	IsAI      bool            `json:"isAi"`
	IsBlocked bool            `json:"isBlocked"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	total := len(e.messages)
	active := 0
	for _, status := range e.presence {
		if status == domain.PresenceOnline {
			active++
		}
	}
	entries, err := e.store.Directory()
	e.mu.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("reading directory")
	}

	return Stats{
		TotalMessages: total,
		TotalUsers:    len(entries),
		ActiveUsers:   active,
		ServerTime:    time.Now().UTC(),
	}
}

// AllUsers lists every directory entry with presence overlay and block
// flag.
func (e *Engine) AllUsers() []AdminUser {
	e.mu.Lock()
	entries, err := e.store.Directory()
	e.mu.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("reading directory")
		return nil
	}

	out := make([]AdminUser, 0, len(entries))
	for _, entry := range entries {
		status := entry.Status
		e.mu.Lock()
		if live, ok := e.presence[entry.Name]; ok && live.Valid() {
			status = live
		}
		e.mu.Unlock()
		if !status.Valid() {
			status = domain.PresenceOffline
		}
		out = append(out, AdminUser{
			Name:      entry.Name,
			Avatar:    entry.Avatar,
			Bio:       entry.Bio,
			Status:    status,
			IsAI:      entry.IsAI,
			IsBlocked: e.IsBlocked(entry.Name),
		})
	}
	return out
}

// AllMessages returns the full message log in timestamp order.
func (e *Engine) AllMessages() []domain.Message {
	e.mu.Lock()
	out := make([]domain.Message, 0, len(e.messages))
	for _, m := range e.messages {
		out = append(out, *m)
	}
	e.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// SystemBroadcast sends a privileged alert from System_Admin to every
// user. It needs no local identity and, by default, receivers apply it
// even when System_Admin is blocked (see Options.FilterSystemBroadcasts).
func (e *Engine) SystemBroadcast(text string) *domain.Message {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	now := time.Now().UnixMilli()
	msg := &domain.Message{
		ID:        "sys-" + strconv.FormatInt(now, 10),
		Sender:    domain.SystemSender,
		Receiver:  domain.BroadcastReceiver,
		Text:      "⚠️ SYSTEM ALERT: " + text,
		Timestamp: now,
		Status:    domain.StatusSent,
	}
	e.messages = append(e.messages, msg)
	e.byID[msg.ID] = msg
	e.mu.Unlock()

	e.notify()
	e.publish(event.ChatMessage{Message: *msg})

	out := *msg
	return &out
}

// Reset wipes all persisted state and clears in-memory state. The only
// destructive bulk operation exposed; local to this context.
func (e *Engine) Reset() error {
	if err := e.store.Wipe(); err != nil {
		return err
	}

	e.mu.Lock()
	e.username = ""
	e.avatar = ""
	e.messages = nil
	e.byID = make(map[string]*domain.Message)
	e.presence = make(map[string]domain.Presence)
	e.mu.Unlock()

	e.notify()
	logger.Info().Msg("engine reset")
	return nil
}
