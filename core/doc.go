// Package core provides the foundational domain types and interfaces used by
// the conversation engine. It defines the core abstractions for:
//
//   - Messages (immutable transcript entries with optional speaker and
//     reasoning annotations)
//   - Sessions (stateful conversational containers with an ordered transcript
//     and a running memory summary)
//   - GroupSessions (sessions with an ordered participant roster and scenario)
//   - Pluggable snapshot stores for session persistence
//
// The package intentionally keeps implementation concerns (persistence,
// provider transports, stream orchestration) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
