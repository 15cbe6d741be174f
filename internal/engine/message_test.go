package engine_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calcvault/core/internal/domain"
	"github.com/calcvault/core/internal/engine"
	"github.com/calcvault/core/internal/event"
	"github.com/calcvault/core/internal/metrics"
	"github.com/calcvault/core/internal/transport/memory"
)

func TestSendReachesOtherContexts(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	msg := alice.Send("the cache is moved", "bob", nil)
	require.NotNil(t, msg)
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "bob", msg.Receiver)
	assert.Equal(t, domain.StatusSent, msg.Status)
	assert.NotEmpty(t, msg.ID)

	conv := bob.Conversation("alice")
	require.Len(t, conv, 1)
	assert.Equal(t, "the cache is moved", conv[0].Text)

	// Sending implies liveness: bob now sees alice online.
	assert.Equal(t, domain.PresenceOnline, bob.Status("alice"))
}

func TestSendWithoutIdentityIsNoOp(t *testing.T) {
	bus := memory.NewBus()
	anon := newContext(t, bus, "")
	events := probe(bus)

	assert.Nil(t, anon.Send("hello", "bob", nil))
	assert.Empty(t, *events, "no transport event for an identity-less send")
	assert.Nil(t, anon.Conversation("bob"), "conversation is empty without identity")
}

func TestSendCarriesAttachmentOpaquely(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	att := &domain.Attachment{Kind: domain.AttachmentFile, URL: "blob:1", Name: "plans.pdf", Size: "3.1MB"}
	require.NotNil(t, alice.Send("see attached", "bob", att))

	conv := bob.Conversation("alice")
	require.Len(t, conv, 1)
	require.NotNil(t, conv[0].Attachment)
	assert.Equal(t, *att, *conv[0].Attachment)
}

func TestEditMutatesExactlyTextAndFlag(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	sent := alice.Send("original", "bob", nil)
	require.NotNil(t, sent)

	alice.Edit(sent.ID, "corrected")

	for name, conv := range map[string][]domain.Message{
		"alice": alice.Conversation("bob"),
		"bob":   bob.Conversation("alice"),
	} {
		require.Len(t, conv, 1, name)
		got := conv[0]
		assert.Equal(t, "corrected", got.Text, name)
		assert.True(t, got.IsEdited, name)
		assert.Equal(t, sent.ID, got.ID, name)
		assert.Equal(t, sent.Sender, got.Sender, name)
		assert.Equal(t, sent.Receiver, got.Receiver, name)
		assert.Equal(t, sent.Timestamp, got.Timestamp, name)
	}
}

func TestEditUnknownIDIsNoOp(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	events := probe(bus)

	alice.Edit("no-such-id", "x")
	assert.Empty(t, *events)
}

func TestEditOwnershipEnforcement(t *testing.T) {
	bus := memory.NewBus()
	alice := newContextOpts(t, bus, "alice", engine.Options{EnforceEditOwnership: true})
	bob := newContext(t, bus, "bob")

	sent := bob.Send("bob's words", "alice", nil)
	require.NotNil(t, sent)

	// alice holds a copy of bob's message but may not edit it.
	alice.Edit(sent.ID, "tampered")
	conv := alice.Conversation("bob")
	require.Len(t, conv, 1)
	assert.Equal(t, "bob's words", conv[0].Text)
	assert.False(t, conv[0].IsEdited)
}

func TestReactionToggle(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")

	sent := alice.Send("hot take", "bob", nil)
	require.NotNil(t, sent)

	alice.ToggleReaction(sent.ID, "🔥")
	assert.Equal(t, "🔥", alice.Conversation("bob")[0].Reaction)

	// Same emoji again toggles off.
	alice.ToggleReaction(sent.ID, "🔥")
	assert.Empty(t, alice.Conversation("bob")[0].Reaction)

	// A different emoji replaces rather than stacks.
	alice.ToggleReaction(sent.ID, "🔥")
	alice.ToggleReaction(sent.ID, "👍")
	assert.Equal(t, "👍", alice.Conversation("bob")[0].Reaction)
}

func TestReactionsStayLocal(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	sent := alice.Send("hot take", "bob", nil)
	require.NotNil(t, sent)

	alice.ToggleReaction(sent.ID, "🔥")
	assert.Empty(t, bob.Conversation("alice")[0].Reaction, "reactions render from local state per viewer")
}

func TestConversationScoping(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")
	carol := newContext(t, bus, "carol")

	require.NotNil(t, alice.Send("for bob", "bob", nil))
	require.NotNil(t, carol.Send("for alice", "alice", nil))

	assert.Len(t, alice.Conversation("bob"), 1)
	assert.Len(t, alice.Conversation("carol"), 1)
	assert.Len(t, bob.Conversation("alice"), 1)
	assert.Empty(t, bob.Conversation("carol"))
	assert.Empty(t, carol.Conversation("bob"))

	for _, m := range alice.Conversation("carol") {
		assert.NotEqual(t, "bob", m.Sender)
		assert.NotEqual(t, "bob", m.Receiver)
	}
}

func TestClearIsLocalOnly(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	require.NotNil(t, alice.Send("one", "bob", nil))
	require.NotNil(t, bob.Send("two", "alice", nil))

	events := probe(bus)
	alice.Clear("bob")

	assert.Empty(t, alice.Conversation("bob"))
	assert.Len(t, bob.Conversation("alice"), 2, "counterpart's copy is untouched")
	assert.Empty(t, *events, "clear never propagates")
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	bob := newContext(t, bus, "bob")

	sent := alice.Send("once", "bob", nil)
	require.NotNil(t, sent)

	// Re-publish the same record from a third endpoint to simulate a
	// duplicate in flight.
	dup := bus.Endpoint()
	require.NoError(t, dup.Publish(event.ChatMessage{Message: *sent}))

	assert.Len(t, bob.Conversation("alice"), 1, "a known id re-applies as a no-op")
}

func TestAppliedCounterSkipsNoOps(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")
	newContext(t, bus, "bob")

	chatApplied := metrics.EventsApplied.WithLabelValues(string(event.KindChatMessage))
	before := testutil.ToFloat64(chatApplied)

	sent := alice.Send("once", "bob", nil)
	require.NotNil(t, sent)
	assert.Equal(t, before+1, testutil.ToFloat64(chatApplied), "bob applied the new message")

	// A duplicate in flight reaches both contexts but changes nothing,
	// so the counter must not move.
	stray := bus.Endpoint()
	require.NoError(t, stray.Publish(event.ChatMessage{Message: *sent}))
	assert.Equal(t, before+1, testutil.ToFloat64(chatApplied))

	// Same for an edit naming an id nobody holds.
	editApplied := metrics.EventsApplied.WithLabelValues(string(event.KindMessageEdit))
	editBefore := testutil.ToFloat64(editApplied)
	require.NoError(t, stray.Publish(event.MessageEdit{ID: "no-such-id", Text: "x"}))
	assert.Equal(t, editBefore, testutil.ToFloat64(editApplied))
}

func TestConversationSnapshotIsImmutable(t *testing.T) {
	bus := memory.NewBus()
	alice := newContext(t, bus, "alice")

	sent := alice.Send("original", "bob", nil)
	require.NotNil(t, sent)

	conv := alice.Conversation("bob")
	conv[0].Text = "mutated by caller"

	assert.Equal(t, "original", alice.Conversation("bob")[0].Text)
}
