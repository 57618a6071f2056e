package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
)

const summaryPrompt = `You are a conversation summarizer for an ongoing roleplay. Summarize the following portion of the story so far.

Focus on:
- Major plot events and their outcomes
- Character decisions, relationships, and changes in disposition
- Facts established about the world or setting
- The current situation at the point the excerpt ends

Keep the summary concise but complete enough to continue the story.
Do NOT include meta-commentary about the conversation.
Output ONLY the summary, nothing else.

Conversation to summarize:
%s`

// ProviderSummarizer produces summaries through a provider's one-shot
// completion path.
type ProviderSummarizer struct {
	provider provider.Provider
	model    string
}

// NewProviderSummarizer constructs a Summarizer backed by the given
// provider. An empty model falls back to the provider default.
func NewProviderSummarizer(p provider.Provider, model string) *ProviderSummarizer {
	return &ProviderSummarizer{provider: p, model: model}
}

// Summarize implements Summarizer.
func (s *ProviderSummarizer) Summarize(ctx context.Context, messages []core.Message) (string, error) {
	var sb strings.Builder
	for _, m := range messages {
		role := "User"
		if m.Role == core.RoleAssistant {
			role = "Assistant"
		} else if m.Role == core.RoleSystem {
			role = "System"
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", role, m.Content)
	}

	req := provider.Request{
		Model:     s.model,
		Messages:  []core.Message{core.NewUserMessage(fmt.Sprintf(summaryPrompt, sb.String()))},
		MaxTokens: 2048,
	}

	summary, err := s.provider.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summary completion: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
