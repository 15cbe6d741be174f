package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/transport/memory"
)

func TestBlockIsIdempotent(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")

	alice.Block("mallory")
	alice.Block("mallory")
	assert.Equal(t, []string{"mallory"}, alice.BlockedUsers())
	assert.True(t, alice.IsBlocked("mallory"))

	alice.Unblock("mallory")
	assert.Empty(t, alice.BlockedUsers())

	// Unblock of a non-blocked user is a no-op.
	alice.Unblock("trent")
	assert.Empty(t, alice.BlockedUsers())
	assert.False(t, alice.IsBlocked("trent"))
}

func TestBlockOrderPreserved(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")

	alice.Block("mallory")
	alice.Block("trent")
	alice.Block("eve")
	alice.Unblock("trent")
	assert.Equal(t, []string{"mallory", "eve"}, alice.BlockedUsers())
}

func TestSendToBlockedUserIsNoOp(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	alice.Block("bob")

	events := probe(bus)
	assert.Nil(t, alice.Send("into the void", "bob", nil))
	assert.Empty(t, alice.Conversation("bob"), "store size unchanged")
	assert.Empty(t, *events, "nothing published")
}

func TestInboundFromBlockedOriginIsDropped(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	mallory := newContext(t, bus, "mallory")

	alice.Block("mallory")

	require.NotNil(t, mallory.Send("let me in", "alice", nil))

	assert.Empty(t, alice.Conversation("mallory"), "blocked sender never reaches the conversation")
	assert.Empty(t, alice.AllMessages(), "nor the stored log")
}

func TestBlockedPresenceAndReceiptsDropped(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	sent := alice.Send("read me", "bob", nil)
	require.NotNil(t, sent)

	alice.Block("bob")

	// bob goes busy and reads alice's message; alice must see neither.
	bob.SetSelfStatus(domain.PresenceBusy)
	bob.MarkRead("alice")

	assert.Equal(t, domain.PresenceOffline, alice.Status("bob"))
	assert.Equal(t, domain.StatusSent, alice.Conversation("bob")[0].Status,
		"receipt from blocked reader is dropped")
}

func TestBlockedEditOriginResolvedByMessageID(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	mallory := newContext(t, bus, "mallory")

	sent := mallory.Send("v1", "alice", nil)
	require.NotNil(t, sent)
	require.Len(t, alice.Conversation("mallory"), 1)

	alice.Block("mallory")
	mallory.Edit(sent.ID, "v2")

	conv := alice.Conversation("mallory")
	require.Len(t, conv, 1)
	assert.Equal(t, "v1", conv[0].Text, "edit from blocked origin is dropped")
	assert.False(t, conv[0].IsEdited)
}

func TestBlockedContactAlwaysReadsOffline(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	bob.SetSelfStatus(domain.PresenceOnline)
	require.Equal(t, domain.PresenceOnline, alice.Status("bob"))

	alice.Block("bob")
	info := alice.ContactInfo(domain.Contact{Name: "bob", Status: domain.PresenceOnline})
	assert.Equal(t, domain.PresenceOffline, info.Status)

	alice.Unblock("bob")
	info = alice.ContactInfo(domain.Contact{Name: "bob"})
	assert.Equal(t, domain.PresenceOnline, info.Status, "presence recorded while blocked shows after unblock")
}

func TestBlockNotifiesSubscribers(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")

	var fired int
	cancel := alice.Subscribe(func() { fired++ })
	defer cancel()

	alice.Block("mallory")
	assert.Equal(t, 1, fired)

	// Idempotent re-block changes nothing, so no notification.
	alice.Block("mallory")
	assert.Equal(t, 1, fired)
}

func TestUnblockRestoresTraffic(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	alice.Block("bob")
	require.NotNil(t, bob.Send("dropped", "alice", nil))
	alice.Unblock("bob")
	require.NotNil(t, bob.Send("delivered", "alice", nil))

	conv := alice.Conversation("bob")
	require.Len(t, conv, 1)
	assert.Equal(t, "delivered", conv[0].Text)
}
