package engine

import (
	"slices"

	"github.com/calcvault/core/pkg/logger"
)

// Block adds username to the persisted block list. Idempotent; the
// second call changes nothing. Open UI is notified so block state
// updates without a reload.
func (e *Engine) Block(username string) {
	e.mu.Lock()
	blocked, err := e.store.BlockedUsers()
	if err != nil {
		e.mu.Unlock()
		logger.Error().Err(err).Msg("reading block list")
		return
	}
	if slices.Contains(blocked, username) {
		e.mu.Unlock()
		return
	}
	blocked = append(blocked, username)
	if err := e.store.SaveBlockedUsers(blocked); err != nil {
		e.mu.Unlock()
		logger.Error().Err(err).Msg("persisting block list")
		return
	}
	e.mu.Unlock()

	e.notify()
}

// Unblock removes username from the block list; a no-op when not
// blocked.
func (e *Engine) Unblock(username string) {
	e.mu.Lock()
	blocked, err := e.store.BlockedUsers()
	if err != nil {
		e.mu.Unlock()
		logger.Error().Err(err).Msg("reading block list")
		return
	}
	if !slices.Contains(blocked, username) {
		e.mu.Unlock()
		return
	}
	blocked = slices.DeleteFunc(blocked, func(u string) bool { return u == username })
	if err := e.store.SaveBlockedUsers(blocked); err != nil {
		e.mu.Unlock()
		logger.Error().Err(err).Msg("persisting block list")
		return
	}
	e.mu.Unlock()

	e.notify()
}

// IsBlocked reports whether the local user has blocked username.
func (e *Engine) IsBlocked(username string) bool {
	blocked, err := e.store.BlockedUsers()
	if err != nil {
		logger.Error().Err(err).Msg("reading block list")
		return false
	}
	return slices.Contains(blocked, username)
}

// BlockedUsers returns the block list in insertion order.
func (e *Engine) BlockedUsers() []string {
	blocked, err := e.store.BlockedUsers()
	if err != nil {
		logger.Error().Err(err).Msg("reading block list")
		return nil
	}
	return blocked
}
