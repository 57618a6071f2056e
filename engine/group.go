package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
)

// GroupSend appends the user's text to the group session and starts a
// streaming generation. The reply is attributed to a participant when it
// opens with that participant's bracketed name.
func (e *Engine) GroupSend(ctx context.Context, g *core.GroupSession, text string, params Params) (string, <-chan Event, <-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, nil, fmt.Errorf("message text is empty")
	}
	g.Append(core.NewUserMessage(text))
	return e.start(ctx, genSpec{group: g, params: params})
}

// GroupSendAs appends the text as spoken by one of the roster's
// participants rather than by the user, then generates the next reply.
func (e *Engine) GroupSendAs(ctx context.Context, g *core.GroupSession, participantID, text string, params Params) (string, <-chan Event, <-chan error, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, nil, fmt.Errorf("message text is empty")
	}
	if _, ok := g.Participant(participantID); !ok {
		return "", nil, nil, fmt.Errorf("participant %s not in roster", participantID)
	}
	msg := core.NewUserMessage(text)
	msg.SpeakerID = participantID
	g.Append(msg)
	return e.start(ctx, genSpec{group: g, params: params})
}

// GroupRegenerate discards the trailing assistant reply, if any, and
// produces a fresh one.
func (e *Engine) GroupRegenerate(ctx context.Context, g *core.GroupSession, params Params) (string, <-chan Event, <-chan error, error) {
	g.TrimTrailingAssistant()
	if g.Len() == 0 {
		return "", nil, nil, fmt.Errorf("nothing to regenerate: transcript is empty")
	}
	return e.start(ctx, genSpec{group: g, params: params})
}

// GroupContinue extends the trailing assistant reply in place.
func (e *Engine) GroupContinue(ctx context.Context, g *core.GroupSession, params Params) (string, <-chan Event, <-chan error, error) {
	last, ok := g.Last()
	if !ok || last.Role != core.RoleAssistant {
		return "", nil, nil, fmt.Errorf("nothing to continue: transcript does not end with an assistant reply")
	}
	return e.start(ctx, genSpec{group: g, params: params, continuation: true})
}

// GroupSendSync is GroupSend followed by a wait for the terminal message.
func (e *Engine) GroupSendSync(ctx context.Context, g *core.GroupSession, text string, params Params) (core.Message, error) {
	_, events, errs, err := e.GroupSend(ctx, g, text, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(g.Session, events, errs)
}

// GroupSendAsSync is GroupSendAs followed by a wait for the terminal message.
func (e *Engine) GroupSendAsSync(ctx context.Context, g *core.GroupSession, participantID, text string, params Params) (core.Message, error) {
	_, events, errs, err := e.GroupSendAs(ctx, g, participantID, text, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(g.Session, events, errs)
}

// GroupRegenerateSync is GroupRegenerate followed by a wait for the
// terminal message.
func (e *Engine) GroupRegenerateSync(ctx context.Context, g *core.GroupSession, params Params) (core.Message, error) {
	_, events, errs, err := e.GroupRegenerate(ctx, g, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(g.Session, events, errs)
}

// GroupContinueSync is GroupContinue followed by a wait for the terminal
// message.
func (e *Engine) GroupContinueSync(ctx context.Context, g *core.GroupSession, params Params) (core.Message, error) {
	_, events, errs, err := e.GroupContinue(ctx, g, params)
	if err != nil {
		return core.Message{}, err
	}
	return e.wait(g.Session, events, errs)
}
