package core

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Role identifies the author category of a transcript message.
type Role string

const (
	// RoleUser marks messages authored by the human participant.
	RoleUser Role = "user"
	// RoleAssistant marks messages authored by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks synthetic messages injected by the engine
	// (e.g. compaction notices).
	RoleSystem Role = "system"
)

// Message is a single transcript entry. After finalization it is treated as
// immutable; the only sanctioned mutations are the engine's explicit edit,
// delete and truncate operations on the owning session.
//
// SpeakerID is set only on group-session replies that were attributed to a
// participant. Reasoning holds the side-channel trace demultiplexed from the
// stream and is only ever set on assistant messages.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	SpeakerID string    `json:"speaker_id,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`

	// Failed marks an assistant message that was finalized from a provider
	// failure; its content carries the classified error text.
	Failed bool `json:"failed,omitempty"`

	// Summary marks the synthetic system message that replaces a summarized
	// span of transcript history.
	Summary bool `json:"summary,omitempty"`
}

// NewMessageID generates a lexicographically sortable message identifier.
func NewMessageID() string { return ulid.Make().String() }

// NewID generates a unique identifier for generations and other
// non-transcript entities.
func NewID() string { return uuid.NewString() }

// NewUserMessage creates a finalized user message.
func NewUserMessage(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantPlaceholder creates the empty assistant message the engine
// appends before any content is streamed. The orchestrator guarantees it
// reaches a terminal, non-placeholder state on every exit path.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleAssistant,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemMessage creates a finalized system message.
func NewSystemMessage(text string) Message {
	return Message{
		ID:        NewMessageID(),
		Role:      RoleSystem,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
}

// NewSummaryMessage creates the synthetic system message flagging that a
// span of history was summarized into the session's memory summary.
func NewSummaryMessage(text string) Message {
	m := NewSystemMessage(text)
	m.Summary = true
	return m
}

// IsPlaceholder reports whether the message is an assistant placeholder that
// has not yet been finalized.
func (m Message) IsPlaceholder() bool {
	return m.Role == RoleAssistant && m.Content == "" && !m.Failed
}
