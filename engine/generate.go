package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/IronBullXD/RoleplayNexus-sub001/classify"
	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/memory"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
	"github.com/IronBullXD/RoleplayNexus-sub001/speaker"
	"github.com/IronBullXD/RoleplayNexus-sub001/token"
)

// preambleWindow bounds how deep into a reply a stray `---` delimiter is
// still treated as echoed scaffolding.
const preambleWindow = 400

// genSpec describes one generation request.
type genSpec struct {
	sess   *core.Session
	group  *core.GroupSession // non-nil in group mode
	params Params

	// continuation extends the trailing assistant reply instead of
	// appending a fresh placeholder.
	continuation bool
}

func (s genSpec) session() *core.Session {
	if s.group != nil {
		return s.group.Session
	}
	return s.sess
}

// start resolves the provider, registers the cancellation handle and spawns
// the generation goroutine. The returned channels are closed when the
// generation reaches its terminal state.
func (e *Engine) start(ctx context.Context, spec genSpec) (string, <-chan Event, <-chan error, error) {
	prov, err := e.providerFor(spec.params)
	if err != nil {
		return "", nil, nil, err
	}

	sess := spec.session()
	generationID := uuid.NewString()

	if err := e.hooks.Execute(ctx, HookBeforeGeneration,
		&HookContext{SessionID: sess.ID, GenerationID: generationID}); err != nil {
		return "", nil, nil, err
	}

	events := make(chan Event, e.config.EventBufferSize)
	errs := make(chan error, 1)

	genCtx, cancel := context.WithCancel(ctx)
	e.generationsMu.Lock()
	e.activeGenerations[generationID] = cancel
	e.generationsMu.Unlock()

	sess.SetGenerating(true)

	go func() {
		defer func() {
			e.generationsMu.Lock()
			delete(e.activeGenerations, generationID)
			e.generationsMu.Unlock()
			cancel()
			close(events)
			close(errs)
		}()
		e.generate(genCtx, generationID, spec, prov, events, errs)
	}()

	return generationID, events, errs, nil
}

// generate runs the full pipeline: compact, append placeholder, stream,
// demultiplex, commit throttled, finalize. The deferred finalize guarantees
// the placeholder reaches a terminal state and the loading flag resets on
// every exit path, including panics.
func (e *Engine) generate(
	ctx context.Context,
	generationID string,
	spec genSpec,
	prov provider.Provider,
	events chan<- Event,
	errs chan<- error,
) {
	sess := spec.session()
	st := e.resolve(sess.Overrides)
	started := time.Now()

	// Compaction result is persisted immediately so a cancelled or failed
	// generation still keeps it.
	e.compact(ctx, generationID, spec, prov, st)

	var msgID, base, prefill string
	if spec.continuation {
		last, ok := sess.Last()
		if !ok || last.Role != core.RoleAssistant {
			sess.SetGenerating(false)
			errs <- fmt.Errorf("nothing to continue: transcript does not end with an assistant reply")
			return
		}
		msgID = last.ID
		base = last.Content
		prefill = last.Content
	} else {
		ph := core.NewAssistantPlaceholder()
		sess.Append(ph)
		msgID = ph.ID
		prefill = spec.params.Prefill
		if prefill == "" {
			prefill = e.config.Prefill
		}
	}

	var visible, reasoning strings.Builder
	var streamErr error

	defer func() {
		if r := recover(); r != nil {
			streamErr = fmt.Errorf("generation panic: %v", r)
		}
		e.finalize(finalizeState{
			spec:         spec,
			generationID: generationID,
			msgID:        msgID,
			base:         base,
			prefill:      prefill,
			visible:      visible.String(),
			reasoning:    reasoning.String(),
			streamErr:    streamErr,
			started:      started,
		}, events, errs)
	}()

	var lastCommit time.Time
	commit := func(force bool) {
		if !force && time.Since(lastCommit) < e.config.CommitInterval {
			return
		}
		lastCommit = time.Now()
		content := base + visible.String()
		trace := reasoning.String()
		sess.Update(msgID, func(m *core.Message) {
			m.Content = content
			m.Reasoning = trace
		})
		select {
		case events <- Event{
			Type:         EventTypeContent,
			GenerationID: generationID,
			MessageID:    msgID,
			Content:      content,
			Reasoning:    trace,
		}:
		default:
		}
	}

	req := e.buildRequest(spec, st, msgID, prefill)
	streamStart := time.Now()
	chunks, errCh := prov.Stream(ctx, req)

	marker := e.config.ReasoningMarker
	markerSeen := false

	for chunk := range chunks {
		// Cancellation is cooperative: a fragment already received is
		// processed, then consumption stops.
		text := chunk.Text
		if markerSeen {
			reasoning.WriteString(text)
		} else if idx := strings.Index(text, marker); idx >= 0 {
			visible.WriteString(text[:idx])
			reasoning.WriteString(text[idx+len(marker):])
			markerSeen = true
		} else {
			visible.WriteString(text)
		}
		commit(false)
		if ctx.Err() != nil {
			break
		}
	}
	for err := range errCh {
		if err != nil && streamErr == nil {
			streamErr = err
		}
	}
	e.logProviderCall(req.Model, token.Estimate(visible.String()+reasoning.String()),
		time.Since(streamStart), streamErr)
}

// compact runs the memory compactor and applies its result to the session.
// Failures are non-fatal: the generation proceeds with the uncompacted
// transcript.
func (e *Engine) compact(ctx context.Context, generationID string, spec genSpec, prov provider.Provider, st settings) {
	sess := spec.session()
	if !st.memory || st.contextSize <= 0 {
		return
	}

	compactor := e.compactor
	if compactor == nil {
		compactor = memory.NewCompactor(memory.NewProviderSummarizer(prov, spec.params.Model))
	}

	start := time.Now()
	res, err := compactor.Compact(ctx, sess.Transcript(), sess.Summary(), true, st.contextSize)
	if err != nil {
		e.logCompaction(0, sess.Len(), time.Since(start), err)
		return
	}

	if res.Compacted {
		sess.SetTranscript(res.Messages)
		sess.SetSummary(res.Summary)
		e.journal.Record(sess.ID, res)
		if perr := e.persist(ctx, spec); perr != nil {
			e.logger.Warn("persist compaction", "session_id", sess.ID, "error", perr)
		}
		e.logCompaction(res.SummarizedCount, len(res.Messages), time.Since(start), nil)
	}

	if herr := e.hooks.Execute(ctx, HookAfterCompaction, &HookContext{
		SessionID:    sess.ID,
		GenerationID: generationID,
		Compacted:    res.Compacted,
	}); herr != nil {
		e.logger.Warn("after compaction hook", "error", herr)
	}
}

// buildRequest assembles the provider request from the session state and
// the per-request params. The target message is excluded from the history;
// when continuing, its content rides along as the prefill instead.
func (e *Engine) buildRequest(spec genSpec, st settings, msgID, prefill string) provider.Request {
	sess := spec.session()
	transcript := sess.Transcript()
	history := make([]core.Message, 0, len(transcript))
	for _, m := range transcript {
		if m.ID == msgID {
			continue
		}
		history = append(history, m)
	}

	req := provider.Request{
		Model:           spec.params.Model,
		Messages:        history,
		Persona:         spec.params.Persona,
		UserPersona:     spec.params.UserPersona,
		Instructions:    spec.params.Instructions,
		World:           spec.params.World,
		MemorySummary:   sess.Summary(),
		Prefill:         prefill,
		Temperature:     st.temperature,
		MaxTokens:       st.maxTokens,
		ContextSize:     st.contextSize,
		Reasoning:       st.reasoning,
		ReasoningMarker: e.config.ReasoningMarker,
	}
	if spec.group != nil {
		req.Scenario = spec.group.Scenario
		req.Participants = spec.group.ParticipantNames()
	}
	return req
}

type finalizeState struct {
	spec         genSpec
	generationID string
	msgID        string
	base         string
	prefill      string
	visible      string
	reasoning    string
	streamErr    error
	started      time.Time
}

// finalize cleans the accumulated text, classifies any failure, writes the
// terminal message state, resets the loading flag and persists the session.
func (e *Engine) finalize(fs finalizeState, events chan<- Event, errs chan<- error) {
	sess := fs.spec.session()

	cleaned := cleanContent(fs.visible, fs.prefill)
	trace := strings.TrimSpace(fs.reasoning)

	var res classify.Result
	failed := false
	if fs.streamErr != nil {
		res = classify.Classify(fs.streamErr)
		failed = !res.Silent
	}

	content := joinContinuation(fs.base, cleaned)
	if failed {
		if strings.TrimSpace(content) == "" {
			content = "[Error: " + res.Message + "]"
		} else {
			content += "\n\n[Error: " + res.Message + "]"
		}
	} else if strings.TrimSpace(content) == "" {
		content = EmptyResponseMarker
	}

	var final core.Message
	sess.Update(fs.msgID, func(m *core.Message) {
		m.Content = content
		m.Reasoning = trace
		m.Failed = failed
		if fs.spec.group != nil && !failed {
			if id, ok := speaker.Resolve(m.Content, fs.spec.group.Participants); ok {
				m.SpeakerID = id
			} else {
				e.logger.Debug("speaker attribution miss", "session_id", sess.ID, "message_id", m.ID)
			}
		}
		final = *m
	})

	sess.SetGenerating(false)

	// The final persist must happen even when the generation context has
	// been cancelled.
	if err := e.persist(context.Background(), fs.spec); err != nil {
		e.logger.Error("persist session", "session_id", sess.ID, "error", err)
	}

	if failed {
		select {
		case errs <- errors.New(res.Message):
		default:
		}
	}

	select {
	case events <- Event{
		Type:         EventTypeFinal,
		GenerationID: fs.generationID,
		MessageID:    fs.msgID,
		Content:      final.Content,
		Reasoning:    final.Reasoning,
		Message:      &final,
	}:
	default:
	}

	outcome := "completed"
	var loggedErr error
	switch {
	case failed:
		outcome = "errored"
		loggedErr = fs.streamErr
	case res.Silent:
		outcome = "cancelled"
	}
	e.logGeneration(outcome, len(final.Content), time.Since(fs.started), loggedErr)

	hctx := &HookContext{SessionID: sess.ID, GenerationID: fs.generationID, Message: &final}
	if failed {
		hctx.Err = errors.New(res.Message)
	}
	if err := e.hooks.Execute(context.Background(), HookAfterGeneration, hctx); err != nil {
		e.logger.Warn("after generation hook", "error", err)
	}
}

// persist writes the whole session snapshot to the appropriate store.
func (e *Engine) persist(ctx context.Context, spec genSpec) error {
	if spec.group != nil {
		if e.groups == nil {
			return nil
		}
		return e.groups.PutGroup(ctx, spec.group)
	}
	if e.store == nil {
		return nil
	}
	return e.store.Put(ctx, spec.sess)
}

// cleanContent strips provider scaffolding from the accumulated visible
// text: a leading echo of the response prefill (plus a `---` delimiter
// right after it), or failing that a `---`-delimited preamble within the
// first preambleWindow characters.
func cleanContent(text, prefill string) string {
	if prefill != "" && strings.HasPrefix(text, prefill) {
		text = strings.TrimLeft(text[len(prefill):], " \t\n")
		if strings.HasPrefix(text, "---") {
			text = strings.TrimLeft(text[3:], " \t\n")
		}
		return strings.TrimSpace(text)
	}
	window := text
	if len(window) > preambleWindow {
		window = window[:preambleWindow]
	}
	if idx := strings.Index(window, "---"); idx >= 0 {
		text = strings.TrimLeft(text[idx+3:], " \t\n")
	}
	return strings.TrimSpace(text)
}

// joinContinuation splices freshly generated text onto the reply it
// continues, inserting a space only when neither side provides separation.
func joinContinuation(base, addition string) string {
	if base == "" {
		return addition
	}
	if addition == "" {
		return base
	}
	if strings.HasSuffix(base, " ") || strings.HasSuffix(base, "\n") {
		return base + addition
	}
	return base + " " + addition
}
