package engine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/engine"
	"github.com/calcvault/core/internal/transport/memory"
)

func TestStatsAggregateEngineState(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	alice.Register("alice", "")
	bob.Register("bob", "")
	require.NotNil(t, alice.Send("one", "bob", nil))
	require.NotNil(t, bob.Send("two", "alice", nil))

	stats := alice.Stats()
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers, "both registered users announced online")
	assert.False(t, stats.ServerTime.IsZero())
}

func TestAllUsersCarriesBlockFlagAndPresence(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	alice.Register("alice", "")
	bob.Register("bob", "")
	bob.SetSelfStatus(domain.PresenceBusy)
	alice.Block("bob")

	users := alice.AllUsers()
	require.Len(t, users, 2)

	byName := map[string]engine.AdminUser{}
	for _, u := range users {
		byName[u.Name] = u
	}
	assert.True(t, byName["bob"].IsBlocked)
	assert.False(t, byName["alice"].IsBlocked)
	// The admin view shows true presence; only contact-facing reads
	// mask a blocked user as offline.
	assert.Equal(t, domain.PresenceBusy, byName["bob"].Status)
}

func TestSystemBroadcastReachesEveryone(t *testing.T) {
	bus := memory.NewBus()
	admin := newContext(t, bus, "")
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	msg := admin.SystemBroadcast("maintenance at midnight")
	require.NotNil(t, msg)
	assert.Equal(t, domain.SystemSender, msg.Sender)
	assert.Equal(t, domain.BroadcastReceiver, msg.Receiver)
	assert.True(t, strings.HasPrefix(msg.ID, "sys-"))
	assert.Contains(t, msg.Text, "maintenance at midnight")

	for name, e := range map[string]*engine.Engine{"alice": alice, "bob": bob} {
		log := e.AllMessages()
		require.Len(t, log, 1, name)
		assert.Equal(t, domain.BroadcastReceiver, log[0].Receiver, name)
	}
}

func TestSystemBroadcastBypassesBlockFilterByDefault(t *testing.T) {
	bus := memory.NewBus()
	admin := newContext(t, bus, "")
	alice := newContext(t, bus, "alice")

	alice.Block(domain.SystemSender)
	require.NotNil(t, admin.SystemBroadcast("privileged"))

	assert.Len(t, alice.AllMessages(), 1, "admin broadcasts are privileged by default")
}

func TestSystemBroadcastFilterConfigurable(t *testing.T) {
	bus := memory.NewBus()
	admin := newContext(t, bus, "")
	alice := newContextOpts(t, bus, "alice", engine.Options{FilterSystemBroadcasts: true})

	alice.Block(domain.SystemSender)
	require.NotNil(t, admin.SystemBroadcast("filtered"))

	assert.Empty(t, alice.AllMessages(), "with the filter on, a blocked System_Admin is silenced too")
}

func TestResetWipesEverythingLocally(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	alice.Register("alice", "ava")
	alice.Block("mallory")
	require.NotNil(t, alice.Send("hello", "bob", nil))

	require.NoError(t, alice.Reset())

	username, avatar := alice.Identity()
	assert.Empty(t, username)
	assert.Empty(t, avatar)
	assert.Empty(t, alice.AllMessages())
	assert.Empty(t, alice.BlockedUsers())
	assert.Empty(t, alice.Search(""))
	assert.Equal(t, 0, alice.Stats().TotalUsers)

	// Reset is local: bob's copy of the conversation survives.
	assert.Len(t, bob.Conversation("alice"), 1)
}
