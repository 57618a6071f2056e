package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// Send appends the user's text to the session and starts a streaming
// generation for the reply. It returns the generation ID together with the
// event and error channels; both channels are closed once the generation
// reaches a terminal state.
func (e *Engine) Send(ctx context.Context, sess *core.Session, text string, params Params) (string, <-chan Event, <-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, nil, fmt.Errorf("message text is empty")
	}
	sess.Append(core.NewUserMessage(text))
	return e.start(ctx, genSpec{sess: sess, params: params})
}

// Regenerate discards the trailing assistant reply, if any, and produces a
// fresh one from the same conversational position.
func (e *Engine) Regenerate(ctx context.Context, sess *core.Session, params Params) (string, <-chan Event, <-chan error, error) {
	sess.TrimTrailingAssistant()
	if sess.Len() == 0 {
		return "", nil, nil, fmt.Errorf("nothing to regenerate: transcript is empty")
	}
	return e.start(ctx, genSpec{sess: sess, params: params})
}

// Continue extends the trailing assistant reply in place. The reply's
// current content is offered to the provider as a response prefill and the
// newly generated text is appended to it.
func (e *Engine) Continue(ctx context.Context, sess *core.Session, params Params) (string, <-chan Event, <-chan error, error) {
	last, ok := sess.Last()
	if !ok || last.Role != core.RoleAssistant {
		return "", nil, nil, fmt.Errorf("nothing to continue: transcript does not end with an assistant reply")
	}
	return e.start(ctx, genSpec{sess: sess, params: params, continuation: true})
}

// EditResend rewrites the content of an earlier user message, drops
// everything after it and regenerates the reply from that point.
func (e *Engine) EditResend(ctx context.Context, sess *core.Session, messageID, text string, params Params) (string, <-chan Event, <-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, nil, fmt.Errorf("message text is empty")
	}
	if ok := sess.Update(messageID, func(m *core.Message) { m.Content = text }); !ok {
		return "", nil, nil, fmt.Errorf("message %s not found", messageID)
	}
	sess.TruncateAfter(messageID)
	return e.start(ctx, genSpec{sess: sess, params: params})
}

// SendSync is Send followed by a wait for the terminal message.
func (e *Engine) SendSync(ctx context.Context, sess *core.Session, text string, params Params) (core.Message, error) {
	_, events, errs, err := e.Send(ctx, sess, text, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(sess, events, errs)
}

// RegenerateSync is Regenerate followed by a wait for the terminal message.
func (e *Engine) RegenerateSync(ctx context.Context, sess *core.Session, params Params) (core.Message, error) {
	_, events, errs, err := e.Regenerate(ctx, sess, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(sess, events, errs)
}

// ContinueSync is Continue followed by a wait for the terminal message.
func (e *Engine) ContinueSync(ctx context.Context, sess *core.Session, params Params) (core.Message, error) {
	_, events, errs, err := e.Continue(ctx, sess, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(sess, events, errs)
}

// EditResendSync is EditResend followed by a wait for the terminal message.
func (e *Engine) EditResendSync(ctx context.Context, sess *core.Session, messageID, text string, params Params) (core.Message, error) {
	_, events, errs, err := e.EditResend(ctx, sess, messageID, text, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(sess, events, errs)
}

// wait drains both channels until the generation closes them, returning the
// terminal message and any non-silent generation error. Cancellation is not
// an error here: the partial message is returned with a nil error.
func (e *Engine) wait(sess *core.Session, events <-chan Event, errs <-chan error) (core.Message, error) {
	var final *core.Message
	var genErr error
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Type == EventTypeFinal && ev.Message != nil {
				m := *ev.Message
				final = &m
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				genErr = err
			}
		}
	}
	if final == nil {
		if last, ok := sess.Last(); ok {
			final = &last
		}
	}
	if final == nil {
		return core.Message{}, fmt.Errorf("generation produced no message")
	}
	return *final, genErr
}
