package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSoloRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Get(ctx, core.SessionKey{ID: "missing"})
	assert.ErrorIs(t, err, core.ErrSessionNotFound)

	sess := core.NewSession("s1")
	sess.PersonaID = "p1"
	sess.Title = "First flight"
	sess.WorldID = "w1"
	temp := 0.9
	sess.Overrides.Temperature = &temp
	sess.MemorySummary = "The story so far."
	sess.Append(core.NewUserMessage("hello"))
	reply := core.NewAssistantPlaceholder()
	reply.Content = "hi there"
	reply.Reasoning = "greeting back"
	sess.Append(reply)

	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, core.SessionKey{ID: "s1", PersonaID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, "First flight", got.Title)
	assert.Equal(t, "w1", got.WorldID)
	assert.Equal(t, "The story so far.", got.Summary())
	require.NotNil(t, got.Overrides.Temperature)
	assert.Equal(t, 0.9, *got.Overrides.Temperature)

	msgs := got.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "greeting back", msgs[1].Reasoning)
}

func TestStorePutReplacesMessages(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	sess := core.NewSession("s1")
	sess.Title = "t"
	sess.Append(core.NewUserMessage("one"))
	sess.Append(core.NewUserMessage("two"))
	require.NoError(t, store.Put(ctx, sess))

	sess.TruncateAfter(sess.Transcript()[0].ID)
	require.NoError(t, store.Put(ctx, sess))

	got, err := store.Get(ctx, core.SessionKey{ID: "s1"})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "one", got.Transcript()[0].Content)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	assert.ErrorIs(t, store.Delete(ctx, core.SessionKey{ID: "s1"}), core.ErrSessionNotFound)

	sess := core.NewSession("s1")
	sess.Title = "t"
	require.NoError(t, store.Put(ctx, sess))
	require.NoError(t, store.Delete(ctx, core.SessionKey{ID: "s1"}))
	_, err := store.Get(ctx, core.SessionKey{ID: "s1"})
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestStoreGroupRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	g := core.NewGroupSession("g1")
	g.Title = "Party"
	g.Scenario = "A tavern at dusk."
	g.Participants = []core.Participant{
		{ID: "aria", Name: "Aria", Persona: "captain"},
		{ID: "bo", Name: "Bo"},
	}
	msg := core.NewAssistantPlaceholder()
	msg.Content = "[Aria]: Evening, all."
	msg.SpeakerID = "aria"
	g.Append(core.NewUserMessage("hello"))
	g.Append(msg)

	require.NoError(t, store.PutGroup(ctx, g))

	got, err := store.GetGroup(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "A tavern at dusk.", got.Scenario)
	assert.Equal(t, []string{"Aria", "Bo"}, got.ParticipantNames())
	msgs := got.Transcript()
	require.Len(t, msgs, 2)
	assert.Equal(t, "aria", msgs[1].SpeakerID)

	require.NoError(t, store.DeleteGroup(ctx, "g1"))
	_, err = store.GetGroup(ctx, "g1")
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}
