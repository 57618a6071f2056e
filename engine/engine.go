package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/logging"
	"github.com/IronBullXD/RoleplayNexus-sub001/memory"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
	"github.com/IronBullXD/RoleplayNexus-sub001/session"
)

const (
	// DefaultReasoningMarker is the in-stream marker separating visible
	// reply text from the reasoning trace that follows it.
	DefaultReasoningMarker = "<|reasoning|>"

	// EmptyResponseMarker replaces reply content when the provider stream
	// finished without producing any visible text.
	EmptyResponseMarker = "*[Empty response]*"
)

// Config defines tuning parameters for the engine's generation behavior.
//
// These are the process-wide defaults; sessions can override the sampling
// and memory fields per conversation through core.Overrides.
type Config struct {
	// Temperature is the default sampling temperature.
	Temperature float64

	// ContextSize is the default context budget, in tokens, that drives
	// memory compaction. Set to 0 to disable compaction by default.
	ContextSize int

	// MaxTokens caps the length of a single generated reply.
	MaxTokens int

	// Reasoning requests the provider's thinking side-channel by default.
	Reasoning bool

	// Memory enables transcript compaction by default.
	Memory bool

	// Prefill is an optional default response-prefill string sent with
	// every request. Echoes of it are stripped during finalization.
	Prefill string

	// ReasoningMarker is the in-stream marker used to demultiplex the
	// reasoning side-channel. Defaults to DefaultReasoningMarker.
	ReasoningMarker string

	// CommitInterval throttles how often accumulated content is committed
	// to the placeholder message while streaming.
	CommitInterval time.Duration

	// EventBufferSize sets the buffer of the per-generation event channel.
	EventBufferSize int
}

// DefaultConfig provides production-ready defaults: compaction on with a
// 16k-token budget, 100ms commit throttle, reasoning off.
var DefaultConfig = Config{
	Temperature:     0.7,
	ContextSize:     16384,
	MaxTokens:       1024,
	Reasoning:       false,
	Memory:          true,
	ReasoningMarker: DefaultReasoningMarker,
	CommitInterval:  100 * time.Millisecond,
	EventBufferSize: 64,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains generation defaults. Defaults to DefaultConfig.
	Config Config

	// SessionStore persists solo sessions. Defaults to the in-memory
	// implementation.
	SessionStore core.SessionStore

	// GroupStore persists group sessions. Defaults to the in-memory
	// implementation.
	GroupStore core.GroupSessionStore

	// Compactor overrides the per-generation compactor. When nil the
	// engine builds one around the request's provider for each generation.
	Compactor *memory.Compactor

	// Journal records compaction events. Defaults to a fresh Journal.
	Journal *memory.Journal

	// Hooks observes the generation lifecycle. Defaults to an empty
	// manager.
	Hooks *HookManager

	// Logger provides structured logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Params carries per-request prompt ingredients and provider routing. The
// engine treats persona, world and instruction texts as opaque; assembling
// them from the application's character and lore data is the caller's job.
type Params struct {
	// Provider selects the registered provider. May be empty when exactly
	// one provider is registered.
	Provider string

	// Model overrides the provider's default model.
	Model string

	Persona      string
	UserPersona  string
	Instructions string
	World        string

	// Prefill overrides the configured default response prefill.
	Prefill string
}

// Engine orchestrates streaming chat generations over solo and group
// sessions: it compacts transcripts, opens provider streams, demultiplexes
// reasoning traces, throttles commits, classifies failures and guarantees
// the placeholder message reaches a terminal state on every exit path.
//
// Concurrency: all methods are safe for concurrent use across sessions.
// At most one generation may be active per session at a time; this is a
// documented caller precondition, not internally enforced.
type Engine struct {
	store    core.SessionStore
	groups   core.GroupSessionStore
	registry *provider.Registry

	compactor *memory.Compactor
	journal   *memory.Journal
	hooks     *HookManager

	logger logging.Logger
	config Config

	activeGenerations map[string]context.CancelFunc
	generationsMu     sync.RWMutex
}

// New creates an Engine around a provider registry. All services default to
// in-memory implementations so the engine works without external
// dependencies; production setups typically supply a durable store.
func New(registry *provider.Registry, optFns ...func(o *Options)) *Engine {
	store := session.NewInMemoryStore()
	opts := Options{
		Config:       DefaultConfig,
		SessionStore: store,
		GroupStore:   store,
		Journal:      memory.NewJournal(),
		Hooks:        NewHookManager(),
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.ReasoningMarker == "" {
		opts.Config.ReasoningMarker = DefaultReasoningMarker
	}
	if opts.Config.EventBufferSize <= 0 {
		opts.Config.EventBufferSize = DefaultConfig.EventBufferSize
	}

	return &Engine{
		store:             opts.SessionStore,
		groups:            opts.GroupStore,
		registry:          registry,
		compactor:         opts.Compactor,
		journal:           opts.Journal,
		hooks:             opts.Hooks,
		logger:            opts.Logger,
		config:            opts.Config,
		activeGenerations: make(map[string]context.CancelFunc),
	}
}

// Journal exposes the compaction journal for inspection.
func (e *Engine) Journal() *memory.Journal { return e.journal }

// Hooks exposes the hook manager for registration.
func (e *Engine) Hooks() *HookManager { return e.hooks }

// Cancel signals the generation with the given ID to stop. The stream stops
// at the next fragment boundary and whatever content accumulated so far is
// kept. Cancelling an unknown or already-finished generation is a no-op.
func (e *Engine) Cancel(generationID string) {
	e.generationsMu.RLock()
	cancel, ok := e.activeGenerations[generationID]
	e.generationsMu.RUnlock()
	if ok {
		cancel()
	}
}

// DeleteMessage removes a message from the session and persists the result.
func (e *Engine) DeleteMessage(ctx context.Context, sess *core.Session, messageID string) error {
	if !sess.Delete(messageID) {
		return fmt.Errorf("message %s not found", messageID)
	}
	return e.store.Put(ctx, sess)
}

// DeleteGroupMessage removes a message from a group session and persists
// the result.
func (e *Engine) DeleteGroupMessage(ctx context.Context, g *core.GroupSession, messageID string) error {
	if !g.Delete(messageID) {
		return fmt.Errorf("message %s not found", messageID)
	}
	return e.groups.PutGroup(ctx, g)
}

// Fork clones the session up to and including messageID into a new session
// with the given ID, persists it, and returns it. The original session is
// untouched.
func (e *Engine) Fork(ctx context.Context, sess *core.Session, messageID, newID string) (*core.Session, error) {
	fork := sess.Clone()
	fork.ID = newID
	if !fork.TruncateAfter(messageID) {
		return nil, fmt.Errorf("message %s not found", messageID)
	}
	if err := e.store.Put(ctx, fork); err != nil {
		return nil, fmt.Errorf("persist fork: %w", err)
	}
	return fork, nil
}

// providerFor resolves the provider for a request. With an empty selector
// the sole registered provider is used; anything ambiguous is an error.
func (e *Engine) providerFor(p Params) (provider.Provider, error) {
	if p.Provider != "" {
		prov, ok := e.registry.Get(p.Provider)
		if !ok {
			return nil, fmt.Errorf("provider %q not registered", p.Provider)
		}
		return prov, nil
	}
	list := e.registry.List()
	if len(list) == 1 {
		return list[0], nil
	}
	return nil, fmt.Errorf("no provider selected and %d registered", len(list))
}

// settings are the per-generation knobs after session overrides are applied
// on top of the engine defaults.
type settings struct {
	temperature float64
	contextSize int
	maxTokens   int
	reasoning   bool
	memory      bool
}

func (e *Engine) resolve(o core.Overrides) settings {
	st := settings{
		temperature: e.config.Temperature,
		contextSize: e.config.ContextSize,
		maxTokens:   e.config.MaxTokens,
		reasoning:   e.config.Reasoning,
		memory:      e.config.Memory,
	}
	if o.Temperature != nil {
		st.temperature = *o.Temperature
	}
	if o.ContextSize != nil {
		st.contextSize = *o.ContextSize
	}
	if o.MaxTokens != nil {
		st.maxTokens = *o.MaxTokens
	}
	if o.Reasoning != nil {
		st.reasoning = *o.Reasoning
	}
	if o.Memory != nil {
		st.memory = *o.Memory
	}
	return st
}

// logCompaction routes to the rich EngineLogger helper when available.
func (e *Engine) logCompaction(summarized, kept int, dur time.Duration, err error) {
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogCompaction(summarized, kept, dur, err)
		return
	}
	if err != nil {
		e.logger.Warn("compaction skipped", "error", err)
		return
	}
	e.logger.Info("compaction completed", "summarized", summarized, "kept", kept)
}

// logProviderCall routes to the rich EngineLogger helper when available.
func (e *Engine) logProviderCall(model string, tokens int, dur time.Duration, err error) {
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogProviderCall(model, tokens, dur, err == nil, err)
		return
	}
	e.logger.Debug("provider call finished", "model", model, "tokens", tokens)
}

// logGeneration routes to the rich EngineLogger helper when available.
func (e *Engine) logGeneration(outcome string, chars int, dur time.Duration, err error) {
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogGeneration(outcome, chars, dur, err)
		return
	}
	if err != nil {
		e.logger.Error("generation finished", "outcome", outcome, "error", err)
		return
	}
	e.logger.Info("generation finished", "outcome", outcome, "chars", chars)
}
