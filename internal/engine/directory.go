package engine

import (
	"strings"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/pkg/logger"
)

const defaultBio = "Verified User"

// Register adds username to the local directory and announces it to
// every listening context, then goes online. Idempotent by name: a
// returning user only re-announces. Real-user registration never sets
// the AI flag.
func (e *Engine) Register(username, avatar string) {
	entry := domain.DirectoryEntry{
		Name:   username,
		Avatar: avatar,
		Bio:    defaultBio,
		Status: domain.PresenceOnline,
		IsAI:   false,
	}
	if e.addDirectoryEntry(entry) {
		e.notify()
		e.publish(event.UserJoined{Entry: entry})
	}
	e.SetSelfStatus(domain.PresenceOnline)
}

// Announce re-broadcasts the local user's directory entry so contexts
// opened while we were away can register us. A no-op without identity.
func (e *Engine) Announce() {
	e.mu.Lock()
	me, avatar := e.username, e.avatar
	e.mu.Unlock()
	if me == "" {
		return
	}

	e.publish(event.UserJoined{Entry: domain.DirectoryEntry{
		Name:   me,
		Avatar: avatar,
		Bio:    defaultBio,
		Status: domain.PresenceOnline,
		IsAI:   false,
	}})
}

// Search finds directory entries whose name contains query
// (case-insensitive), excluding the local user, each decorated with
// block-aware live status. Blocked users still appear; hiding them is
// a UI policy, not enforced here.
func (e *Engine) Search(query string) []domain.Contact {
	e.mu.Lock()
	me := e.username
	entries, err := e.store.Directory()
	e.mu.Unlock()
	if err != nil {
		logger.Error().Err(err).Msg("reading directory")
		return nil
	}

	q := strings.ToLower(query)
	var out []domain.Contact
	for _, entry := range entries {
		if entry.Name == me || !strings.Contains(strings.ToLower(entry.Name), q) {
			continue
		}
		out = append(out, e.ContactInfo(domain.Contact{
			Name:   entry.Name,
			Avatar: entry.Avatar,
			Bio:    entry.Bio,
			Status: entry.Status,
			IsAI:   false,
		}))
	}
	return out
}

// addDirectoryEntry persists entry if its name is new, reporting
// whether anything changed.
func (e *Engine) addDirectoryEntry(entry domain.DirectoryEntry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.store.Directory()
	if err != nil {
		logger.Error().Err(err).Msg("reading directory")
		return false
	}
	for _, existing := range entries {
		if existing.Name == entry.Name {
			return false
		}
	}
	entries = append(entries, entry)
	if err := e.store.SaveDirectory(entries); err != nil {
		logger.Error().Err(err).Msg("persisting directory")
		return false
	}
	return true
}

func (e *Engine) directoryEntry(username string) (domain.DirectoryEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries, err := e.store.Directory()
	if err != nil {
		logger.Error().Err(err).Msg("reading directory")
		return domain.DirectoryEntry{}, false
	}
	for _, entry := range entries {
		if entry.Name == username {
			return entry, true
		}
	}
	return domain.DirectoryEntry{}, false
}
