// Package engine implements the conversation orchestration layer for
// RoleplayNexus.
//
// The Engine drives the complete lifecycle of a generation: memory
// compaction, placeholder management, provider streaming with reasoning
// demultiplexing, throttled transcript commits, response cleanup, error
// classification and speaker attribution for group sessions.
//
// # Core Responsibilities
//
// Generation Orchestration:
//   - Asynchronous streaming (Send, Regenerate, Continue, EditResend) and
//     synchronous variants that wait for the terminal message
//   - Per-generation cancellation handles with idempotent Cancel
//   - Guaranteed terminal state: the placeholder always resolves to
//     content, an error-flagged message, or the empty-response marker
//
// Memory Management:
//   - Token-estimate driven compaction at generation start, before the
//     provider request is built
//   - Compaction results applied to the live session and persisted
//     immediately, independent of the generation's eventual outcome
//   - Append-only rolling summary carried in the session
//
// Streaming:
//   - Per-fragment reasoning marker demultiplexing into visible content
//     and a reasoning trace
//   - Commit throttling so the transcript is rewritten at most once per
//     commit interval, plus an unconditional final commit
//   - Non-blocking, best-effort content events; the session holds the
//     authoritative committed state
//
// Group Sessions:
//   - Participant rosters with GroupSendAs for speaking as a roster member
//   - Speaker attribution from the bracketed-name convention in replies
//
// # Usage
//
// Basic setup and a streaming exchange:
//
//	registry := provider.NewRegistry()
//	registry.Register(anthropic.New())
//
//	eng := engine.New(registry, func(o *engine.Options) {
//	    o.SessionStore = store
//	    o.Logger = logger
//	})
//
//	sess := core.NewSession(core.NewID())
//	generationID, events, errs, err := eng.Send(ctx, sess, "Hello there", engine.Params{
//	    Model:   "claude-sonnet-4-20250514",
//	    Persona: "You are Captain Mira of the starship Vela.",
//	})
//	if err != nil {
//	    return err
//	}
//	_ = generationID // keep for Cancel
//	for ev := range events {
//	    render(ev)
//	}
//	if err := <-errs; err != nil {
//	    return err
//	}
//
// Or synchronously:
//
//	msg, err := eng.SendSync(ctx, sess, "Hello there", params)
//
// # Error Handling
//
// Startup failures (unknown provider, rejected hook) are returned
// directly. Failures during streaming are classified: cancellation is
// silent and keeps the partial reply, everything else finalizes the
// placeholder with error-flagged content and surfaces a message on the
// error channel. Summarization failures never abort a generation.
package engine
