package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
)

func TestProviderSummarizer(t *testing.T) {
	p := provider.NewMockProvider("mock-model")
	p.SetCompletion("  The heroes reached the gate.  ", nil)

	s := NewProviderSummarizer(p, "mock-model")
	out, err := s.Summarize(context.Background(), []core.Message{
		core.NewUserMessage("We march to the gate."),
		{ID: core.NewMessageID(), Role: core.RoleAssistant, Content: "The way is long."},
	})
	require.NoError(t, err)
	assert.Equal(t, "The heroes reached the gate.", out)

	last, ok := p.LastRequest()
	require.True(t, ok)
	require.Len(t, last.Messages, 1)
	assert.Contains(t, last.Messages[0].Content, "User: We march to the gate.")
	assert.Contains(t, last.Messages[0].Content, "Assistant: The way is long.")
	assert.Equal(t, 2048, last.MaxTokens)
}

func TestProviderSummarizerError(t *testing.T) {
	p := provider.NewMockProvider("mock-model")
	p.SetCompletion("", assert.AnError)

	s := NewProviderSummarizer(p, "")
	_, err := s.Summarize(context.Background(), []core.Message{core.NewUserMessage("hi")})
	assert.ErrorIs(t, err, assert.AnError)
}
