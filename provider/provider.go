package provider

import (
	"context"
	"strings"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// Request captures the normalized provider input produced by the engine.
// Besides the transcript it carries every prompt ingredient the engine
// assembles: persona texts, world and scenario context, the running memory
// summary and the response prefill.
type Request struct {
	Model        string         `json:"model"`
	Messages     []core.Message `json:"messages"`
	Persona      string         `json:"persona,omitempty"`
	UserPersona  string         `json:"user_persona,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	World        string         `json:"world,omitempty"`
	Scenario     string         `json:"scenario,omitempty"`
	Participants []string       `json:"participants,omitempty"`

	// MemorySummary is the session's running summary of compacted history.
	MemorySummary string `json:"memory_summary,omitempty"`

	// Prefill is prepended to the reply on providers that support assistant
	// prefill; providers that echo it are cleaned up during finalization.
	Prefill string `json:"prefill,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	ContextSize int     `json:"context_size,omitempty"`

	// Reasoning requests the provider's thinking side-channel. Providers
	// with a native channel re-frame it behind ReasoningMarker so the engine
	// sees a single in-stream convention.
	Reasoning       bool   `json:"reasoning,omitempty"`
	ReasoningMarker string `json:"reasoning_marker,omitempty"`
}

// SystemPrompt assembles the system instruction block from the request's
// prompt ingredients, skipping empty sections.
func (r Request) SystemPrompt() string {
	var sections []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sections = append(sections, s)
		}
	}
	add(r.Persona)
	if r.UserPersona != "" {
		add("The user is playing as:\n" + r.UserPersona)
	}
	add(r.Instructions)
	if r.World != "" {
		add("World information:\n" + r.World)
	}
	if r.Scenario != "" {
		add("Scenario:\n" + r.Scenario)
	}
	if len(r.Participants) > 0 {
		add("Participants in this conversation: " + strings.Join(r.Participants, ", ") +
			"\nBegin each reply with the speaking participant's name in square brackets, e.g. [" +
			r.Participants[0] + "]: ...")
	}
	if r.MemorySummary != "" {
		add("Memory of earlier events:\n" + r.MemorySummary)
	}
	return strings.Join(sections, "\n\n")
}

// Chunk is a single already-decoded text fragment from a provider stream.
type Chunk struct {
	Text string `json:"text"`
}

// Info contains metadata about a provider implementation.
type Info struct {
	Provider          string `json:"provider"` // "openai", "anthropic", "mock", etc.
	Model             string `json:"model"`
	SupportsReasoning bool   `json:"supports_reasoning"`
}

// Provider is the minimal interface the engine needs from a generative
// language service.
//
// Stream returns a lazy, finite, non-restartable fragment sequence; both
// channels are closed when the stream ends. Implementations must honor ctx
// cancellation without waiting for stream exhaustion, and must fail before
// any network call when credentials or model are missing.
//
// Complete is the non-streamed request/response path used for one-shot
// summarization calls.
type Provider interface {
	Info() Info
	Stream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)
	Complete(ctx context.Context, req Request) (string, error)
}
