package engine

import (
	"context"
	"fmt"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// HookType defines the lifecycle points where hooks can be executed.
//
// Hooks provide a mechanism for observing the engine's generation pipeline
// without modifying core logic. They are executed synchronously; a hook
// returning an error from HookBeforeGeneration aborts the generation before
// any message is appended, while errors from later hooks are logged and
// otherwise ignored (the pipeline's own finalization guarantees must hold
// regardless of observer failures).
type HookType string

const (
	// HookBeforeGeneration is triggered before a generation starts, after
	// the provider has been resolved. Use for validation or instrumentation.
	HookBeforeGeneration HookType = "before_generation"

	// HookAfterCompaction is triggered after a compaction attempt, whether
	// or not it fired. Use for metrics or summary auditing.
	HookAfterCompaction HookType = "after_compaction"

	// HookAfterGeneration is triggered once the placeholder has reached its
	// terminal state. Use for cleanup, metrics, or post-processing.
	HookAfterGeneration HookType = "after_generation"
)

// HookContext carries the information hooks receive at each lifecycle point.
type HookContext struct {
	// SessionID identifies the session the generation belongs to.
	SessionID string

	// GenerationID identifies the generation, matching the ID returned by
	// the engine operation that started it.
	GenerationID string

	// Message is the placeholder (or finalized) assistant message, when one
	// exists at this lifecycle point. May be nil.
	Message *core.Message

	// Compacted reports, for HookAfterCompaction, whether any messages were
	// folded away.
	Compacted bool

	// Err is the terminal error for HookAfterGeneration, nil on success or
	// cancellation.
	Err error
}

// Hook is an execution lifecycle observer.
type Hook interface {
	// Type returns the lifecycle point this hook handles.
	Type() HookType

	// Execute performs the hook logic. For HookBeforeGeneration a returned
	// error aborts the generation.
	Execute(ctx context.Context, hctx *HookContext) error
}

// FunctionHook wraps a function as a Hook.
type FunctionHook struct {
	hookType HookType
	fn       func(ctx context.Context, hctx *HookContext) error
}

// NewFunctionHook creates a hook from a bare function.
func NewFunctionHook(hookType HookType, fn func(ctx context.Context, hctx *HookContext) error) *FunctionHook {
	return &FunctionHook{hookType: hookType, fn: fn}
}

// Type returns the lifecycle point this hook handles.
func (h *FunctionHook) Type() HookType { return h.hookType }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ctx context.Context, hctx *HookContext) error {
	return h.fn(ctx, hctx)
}

// HookManager routes hook execution by lifecycle point. Hooks run in
// registration order; the first error stops the chain.
//
// Registration is not thread-safe; register everything before starting
// generations. Execution is safe for concurrent use once registration is
// complete.
type HookManager struct {
	hooks map[HookType][]Hook
}

// NewHookManager creates an empty manager.
func NewHookManager() *HookManager {
	return &HookManager{hooks: make(map[HookType][]Hook)}
}

// Register adds a hook for its lifecycle point.
func (hm *HookManager) Register(h Hook) {
	hm.hooks[h.Type()] = append(hm.hooks[h.Type()], h)
}

// Execute runs every hook registered for the given type, stopping at the
// first error.
func (hm *HookManager) Execute(ctx context.Context, hookType HookType, hctx *HookContext) error {
	for _, h := range hm.hooks[hookType] {
		if err := h.Execute(ctx, hctx); err != nil {
			return fmt.Errorf("%s hook: %w", hookType, err)
		}
	}
	return nil
}
