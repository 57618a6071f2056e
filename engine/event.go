package engine

import "github.com/IronBullXD/RoleplayNexus-sub001/core"

// EventType distinguishes streaming updates from the terminal event.
type EventType string

const (
	// EventTypeContent is a throttled incremental snapshot of the reply
	// being streamed into the placeholder message.
	EventTypeContent EventType = "content"

	// EventTypeFinal carries the finalized message and is the last event
	// emitted for a generation.
	EventTypeFinal EventType = "final"
)

// Event is a single update emitted while a generation runs. Content events
// are best-effort: slow consumers may miss intermediate snapshots, but the
// session always holds the committed state and the final event (or the
// session itself, once the channels close) holds the terminal message.
type Event struct {
	Type         EventType
	GenerationID string
	MessageID    string

	// Content and Reasoning are the accumulated visible text and reasoning
	// trace at the time of the commit.
	Content   string
	Reasoning string

	// Message is set on EventTypeFinal only.
	Message *core.Message
}
