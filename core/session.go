package core

import (
	"sync"
	"time"
)

// Overrides carries optional per-session generation settings. All fields are
// pointers so absence can be distinguished from zero values; unset fields
// fall back to engine defaults.
type Overrides struct {
	Temperature *float64 `json:"temperature,omitempty"`
	ContextSize *int     `json:"context_size,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Reasoning   *bool    `json:"reasoning,omitempty"`
	Memory      *bool    `json:"memory,omitempty"`
}

// Session represents a solo conversational container tracking an ordered
// transcript plus a running memory summary. It is safe for concurrent access.
//
// Contract:
//   - Transcript mutations update the Updated timestamp
//   - Transcript returns a defensive copy to avoid external mutation
//   - The memory summary only ever grows (SetSummary callers extend it)
//   - Clone performs deep copies of slices for safe divergence
type Session struct {
	ID            string    `json:"id"`
	PersonaID     string    `json:"persona_id,omitempty"`
	Title         string    `json:"title"`
	WorldID       string    `json:"world_id,omitempty"`
	Messages      []Message `json:"messages"`
	Overrides     Overrides `json:"overrides"`
	MemorySummary string    `json:"memory_summary,omitempty"`
	Generating    bool      `json:"-"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`

	mu sync.RWMutex
}

// NewSession creates a new empty session with the given ID.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, Messages: []Message{}, Created: now, Updated: now}
}

// Key returns the composite store key for this session.
func (s *Session) Key() SessionKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionKey{ID: s.ID, PersonaID: s.PersonaID}
}

// Transcript returns a defensive copy of the full message list.
func (s *Session) Transcript() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

// Len returns the current transcript length.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// SetTranscript replaces the message list wholesale. Used by the engine when
// applying a compaction result.
func (s *Session) SetTranscript(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = make([]Message, len(msgs))
	copy(s.Messages, msgs)
	s.Updated = time.Now().UTC()
}

// Append adds a message to the end of the transcript.
func (s *Session) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, m)
	s.Updated = time.Now().UTC()
}

// Update applies fn to the message with the given ID under the session lock.
// Returns false when no such message exists.
func (s *Session) Update(id string, fn func(*Message)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			fn(&s.Messages[i])
			s.Updated = time.Now().UTC()
			return true
		}
	}
	return false
}

// Message returns a copy of the message with the given ID.
func (s *Session) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Last returns a copy of the final transcript message.
func (s *Session) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Delete removes the message with the given ID. Returns false when absent.
func (s *Session) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			s.Updated = time.Now().UTC()
			return true
		}
	}
	return false
}

// TruncateAfter drops every message following the one with the given ID,
// keeping that message itself. Returns false when absent.
func (s *Session) TruncateAfter(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			s.Messages = s.Messages[:i+1]
			s.Updated = time.Now().UTC()
			return true
		}
	}
	return false
}

// TrimTrailingAssistant removes the final message when it is an assistant
// reply, returning the removed message. Used by regenerate.
func (s *Session) TrimTrailingAssistant() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.Messages)
	if n == 0 || s.Messages[n-1].Role != RoleAssistant {
		return Message{}, false
	}
	last := s.Messages[n-1]
	s.Messages = s.Messages[:n-1]
	s.Updated = time.Now().UTC()
	return last, true
}

// Summary returns the running memory summary.
func (s *Session) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MemorySummary
}

// SetSummary replaces the memory summary. Callers must only ever pass an
// extension of the previous summary; the engine relies on the summary being
// append-only.
func (s *Session) SetSummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MemorySummary = summary
	s.Updated = time.Now().UTC()
}

// SetGenerating toggles the loading flag for an in-flight generation.
func (s *Session) SetGenerating(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Generating = v
}

// IsGenerating reports whether a generation is currently in flight.
func (s *Session) IsGenerating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Generating
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:            s.ID,
		PersonaID:     s.PersonaID,
		Title:         s.Title,
		WorldID:       s.WorldID,
		Messages:      make([]Message, len(s.Messages)),
		Overrides:     s.Overrides,
		MemorySummary: s.MemorySummary,
		Generating:    s.Generating,
		Created:       s.Created,
		Updated:       s.Updated,
	}
	copy(clone.Messages, s.Messages)
	return clone
}
