package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/memory"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
	"github.com/IronBullXD/RoleplayNexus-sub001/session"
)

func newTestEngine(t *testing.T, optFns ...func(o *Options)) (*Engine, *provider.MockProvider) {
	t.Helper()
	mock := provider.NewMockProvider("mock-model")
	registry := provider.NewRegistry()
	registry.Register(mock)
	return New(registry, optFns...), mock
}

func TestSendProducesUserAndAssistantMessages(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Hello ", "traveler.")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "Hi there", Params{})
	require.NoError(t, err)

	assert.Equal(t, "Hello traveler.", msg.Content)
	assert.False(t, msg.Failed)
	assert.False(t, sess.IsGenerating())

	transcript := sess.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, core.RoleUser, transcript[0].Role)
	assert.Equal(t, "Hi there", transcript[0].Content)
	assert.Equal(t, core.RoleAssistant, transcript[1].Role)
	assert.Equal(t, "Hello traveler.", transcript[1].Content)
}

func TestSendRejectsEmptyText(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := core.NewSession("s1")
	_, _, _, err := eng.Send(context.Background(), sess, "   \n", Params{})
	require.Error(t, err)
	assert.Equal(t, 0, sess.Len())
}

func TestSendUnknownProvider(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := core.NewSession("s1")
	_, _, _, err := eng.Send(context.Background(), sess, "hi", Params{Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestEmptyStreamGetsMarkerContent(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments()

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, EmptyResponseMarker, msg.Content)
	assert.False(t, msg.Failed)
}

func TestReasoningMarkerDemux(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Answer.", "<|reasoning|>I weighed", " the options.")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Answer.", msg.Content)
	assert.Equal(t, "I weighed the options.", msg.Reasoning)
}

func TestReasoningMarkerMidFragment(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Visible<|reasoning|>hidden", " rest")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Visible", msg.Content)
	assert.Equal(t, "hidden rest", msg.Reasoning)
}

func TestEmptyReasoningLeftUnset(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Text.", "<|reasoning|>", "  \n ")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Text.", msg.Content)
	assert.Empty(t, msg.Reasoning)
}

func TestStreamErrorFinalizesFailedMessage(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Partial reply")
	mock.SetStreamError(errors.New("provider exploded"))

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.Error(t, err)
	assert.Equal(t, "provider exploded", err.Error())
	assert.True(t, msg.Failed)
	assert.Equal(t, "Partial reply\n\n[Error: provider exploded]", msg.Content)
	assert.False(t, sess.IsGenerating())
}

func TestStreamErrorWithNoContent(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetStreamError(errors.New(`provider request failed: {"error":{"message":"rate limited"}}`))

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.Error(t, err)
	assert.Equal(t, "rate limited", err.Error())
	assert.True(t, msg.Failed)
	assert.Equal(t, "[Error: rate limited]", msg.Content)
}

func TestCancelKeepsPartialContent(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetDelay(30 * time.Millisecond)
	mock.SetFragments("One ", "two ", "three ", "four ", "five")

	sess := core.NewSession("s1")
	genID, events, errs, err := eng.Send(context.Background(), sess, "go", Params{})
	require.NoError(t, err)

	sawContent := false
	for ev := range events {
		if ev.Type == EventTypeContent && !sawContent {
			sawContent = true
			eng.Cancel(genID)
		}
	}
	var genErr error
	for e := range errs {
		genErr = e
	}

	require.True(t, sawContent)
	require.NoError(t, genErr)

	// cancelling again after the generation ended has no effect
	eng.Cancel(genID)

	last, ok := sess.Last()
	require.True(t, ok)
	assert.False(t, last.Failed)
	assert.NotEmpty(t, last.Content)
	assert.True(t, strings.HasPrefix("One two three four five", last.Content))
	assert.False(t, sess.IsGenerating())
}

func TestCancelUnknownGenerationIsNoop(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.Cancel("does-not-exist")
	eng.Cancel("does-not-exist")
}

func TestPrefillEchoStripped(t *testing.T) {
	eng, mock := newTestEngine(t, func(o *Options) {
		cfg := DefaultConfig
		cfg.Prefill = "Sure:"
		o.Config = cfg
	})
	mock.SetFragments("Sure:", "\n---\n", "The real reply")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "The real reply", msg.Content)

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "Sure:", req.Prefill)
}

func TestPreambleStripped(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Persona notes to ignore\n---\nHello traveler")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Hello traveler", msg.Content)
}

func TestContentWithoutDelimiterUntouched(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Hello there, nothing to strip here.")

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Hello there, nothing to strip here.", msg.Content)
}

func TestGenerationCompactsFirst(t *testing.T) {
	calls := 0
	summarizer := memory.SummarizerFunc(func(ctx context.Context, msgs []core.Message) (string, error) {
		calls++
		return "what happened earlier", nil
	})
	eng, mock := newTestEngine(t, func(o *Options) {
		cfg := DefaultConfig
		cfg.ContextSize = 1000
		o.Config = cfg
		o.Compactor = memory.NewCompactor(summarizer)
	})
	mock.SetFragments("Onward.")

	sess := core.NewSession("s1")
	for i := 0; i < 10; i++ {
		sess.Append(core.NewUserMessage(strings.Repeat("x", 400)))
	}

	msg, err := eng.SendSync(context.Background(), sess, "next", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Onward.", msg.Content)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "what happened earlier", sess.Summary())

	first := sess.Transcript()[0]
	assert.Equal(t, core.RoleSystem, first.Role)
	assert.Contains(t, first.Content, "5 messages")

	entries := eng.Journal().Entries("s1")
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].SummarizedCount)
}

func TestMemoryDisabledNeverSummarizes(t *testing.T) {
	calls := 0
	summarizer := memory.SummarizerFunc(func(ctx context.Context, msgs []core.Message) (string, error) {
		calls++
		return "should not happen", nil
	})
	eng, mock := newTestEngine(t, func(o *Options) {
		cfg := DefaultConfig
		cfg.ContextSize = 1000
		cfg.Memory = false
		o.Config = cfg
		o.Compactor = memory.NewCompactor(summarizer)
	})
	mock.SetFragments("Reply.")

	sess := core.NewSession("s1")
	for i := 0; i < 10; i++ {
		sess.Append(core.NewUserMessage(strings.Repeat("x", 400)))
	}

	_, err := eng.SendSync(context.Background(), sess, "next", Params{})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Empty(t, sess.Summary())
}

func TestSummarizationFailureIsNonFatal(t *testing.T) {
	summarizer := memory.SummarizerFunc(func(ctx context.Context, msgs []core.Message) (string, error) {
		return "", errors.New("summarizer down")
	})
	eng, mock := newTestEngine(t, func(o *Options) {
		cfg := DefaultConfig
		cfg.ContextSize = 1000
		o.Config = cfg
		o.Compactor = memory.NewCompactor(summarizer)
	})
	mock.SetFragments("Still works.")

	sess := core.NewSession("s1")
	for i := 0; i < 10; i++ {
		sess.Append(core.NewUserMessage(strings.Repeat("x", 400)))
	}

	msg, err := eng.SendSync(context.Background(), sess, "next", Params{})
	require.NoError(t, err)
	assert.Equal(t, "Still works.", msg.Content)
	assert.Empty(t, sess.Summary())
	assert.Equal(t, 12, sess.Len())
}

func TestRegenerateReplacesTrailingReply(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("First draft.")

	sess := core.NewSession("s1")
	first, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)

	mock.SetFragments("Second draft.")
	second, err := eng.RegenerateSync(context.Background(), sess, Params{})
	require.NoError(t, err)

	assert.Equal(t, "Second draft.", second.Content)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, sess.Len())
}

func TestContinueExtendsTrailingReply(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("The story begins.")

	sess := core.NewSession("s1")
	first, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)

	mock.SetFragments("And then it continued.")
	extended, err := eng.ContinueSync(context.Background(), sess, Params{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, extended.ID)
	assert.Equal(t, "The story begins. And then it continued.", extended.Content)
	assert.Equal(t, 2, sess.Len())

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "The story begins.", req.Prefill)
	assert.Len(t, req.Messages, 1)
}

func TestContinueRequiresTrailingAssistant(t *testing.T) {
	eng, _ := newTestEngine(t)
	sess := core.NewSession("s1")
	sess.Append(core.NewUserMessage("hi"))
	_, _, _, err := eng.Continue(context.Background(), sess, Params{})
	require.Error(t, err)
}

func TestEditResendRegeneratesFromEditPoint(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Old reply.")

	sess := core.NewSession("s1")
	_, err := eng.SendSync(context.Background(), sess, "original question", Params{})
	require.NoError(t, err)

	userID := sess.Transcript()[0].ID
	mock.SetFragments("New reply.")
	msg, err := eng.EditResendSync(context.Background(), sess, userID, "edited question", Params{})
	require.NoError(t, err)

	assert.Equal(t, "New reply.", msg.Content)
	transcript := sess.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, "edited question", transcript[0].Content)

	req, ok := mock.LastRequest()
	require.True(t, ok)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "edited question", req.Messages[0].Content)
}

func TestSendPersistsSession(t *testing.T) {
	store := session.NewInMemoryStore()
	eng, mock := newTestEngine(t, func(o *Options) {
		o.SessionStore = store
	})
	mock.SetFragments("Persisted.")

	sess := core.NewSession("s1")
	_, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)

	stored, err := store.Get(context.Background(), sess.Key())
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Len())
}

func TestRequestCarriesPromptIngredients(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Reply.")

	sess := core.NewSession("s1")
	sess.SetSummary("earlier events")
	_, err := eng.SendSync(context.Background(), sess, "hi", Params{
		Model:        "mock-model",
		Persona:      "You are Mira.",
		UserPersona:  "A wandering bard",
		Instructions: "Stay in character.",
		World:        "The Vela system",
	})
	require.NoError(t, err)

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "mock-model", req.Model)
	assert.Equal(t, "You are Mira.", req.Persona)
	assert.Equal(t, "A wandering bard", req.UserPersona)
	assert.Equal(t, "Stay in character.", req.Instructions)
	assert.Equal(t, "The Vela system", req.World)
	assert.Equal(t, "earlier events", req.MemorySummary)
	assert.Empty(t, req.Participants)
}

func TestBeforeGenerationHookAborts(t *testing.T) {
	eng, _ := newTestEngine(t)
	eng.Hooks().Register(NewFunctionHook(HookBeforeGeneration,
		func(ctx context.Context, hctx *HookContext) error {
			return errors.New("blocked")
		}))

	sess := core.NewSession("s1")
	_, _, _, err := eng.Send(context.Background(), sess, "hi", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.False(t, sess.IsGenerating())
}

func TestAfterGenerationHookSeesFinalMessage(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Done.")

	var seen *core.Message
	eng.Hooks().Register(NewFunctionHook(HookAfterGeneration,
		func(ctx context.Context, hctx *HookContext) error {
			seen = hctx.Message
			return nil
		}))

	sess := core.NewSession("s1")
	msg, err := eng.SendSync(context.Background(), sess, "hi", Params{})
	require.NoError(t, err)
	require.NotNil(t, seen)
	assert.Equal(t, msg.Content, seen.Content)
}

func TestFork(t *testing.T) {
	eng, mock := newTestEngine(t)
	mock.SetFragments("Reply one.")

	sess := core.NewSession("s1")
	_, err := eng.SendSync(context.Background(), sess, "first", Params{})
	require.NoError(t, err)
	mock.SetFragments("Reply two.")
	_, err = eng.SendSync(context.Background(), sess, "second", Params{})
	require.NoError(t, err)

	firstReplyID := sess.Transcript()[1].ID
	fork, err := eng.Fork(context.Background(), sess, firstReplyID, "s1-fork")
	require.NoError(t, err)

	assert.Equal(t, 2, fork.Len())
	assert.Equal(t, 4, sess.Len())
	assert.Equal(t, "s1-fork", fork.ID)
}

func TestCleanContent(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		prefill string
		want    string
	}{
		{"plain", "Hello.", "", "Hello."},
		{"prefill echo", "Sure: here goes", "Sure:", "here goes"},
		{"prefill echo with delimiter", "Sure:\n---\nhere goes", "Sure:", "here goes"},
		{"preamble", "notes\n---\nreply", "", "reply"},
		{"delimiter past window", strings.Repeat("a", 450) + "---tail", "", strings.Repeat("a", 450) + "---tail"},
		{"whitespace only", "  \n ", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanContent(tt.text, tt.prefill))
		})
	}
}
