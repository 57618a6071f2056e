// Package anthropic implements provider.Provider on top of the Anthropic
// Messages API, including streaming and extended thinking.
package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
)

// Options configure the Anthropic provider adapter.
type Options struct {
	APIKey      string
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64

	// ThinkingBudget is the token budget granted to the thinking
	// side-channel when a request asks for reasoning.
	ThinkingBudget int64
}

// Provider wraps the Anthropic Messages API behind the generic
// provider.Provider interface.
type Provider struct {
	client anthropic.Client
	opts   Options
}

// New creates an Anthropic provider using the official client. The API key
// is taken from the options or, failing that, the ANTHROPIC_API_KEY
// environment variable.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:          anthropic.ModelClaude3_5Sonnet20241022,
		Temperature:    0.7,
		MaxTokens:      4096,
		ThinkingBudget: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Provider{client: anthropic.NewClient(clientOpts...), opts: opts}
}

// Info returns metadata describing this provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Provider:          "anthropic",
		Model:             string(p.opts.Model),
		SupportsReasoning: true,
	}
}

func (p *Provider) validate(req provider.Request) error {
	if p.opts.APIKey == "" {
		return fmt.Errorf("anthropic: missing API key")
	}
	if req.Model == "" && p.opts.Model == "" {
		return fmt.Errorf("anthropic: no model configured")
	}
	return nil
}

// buildParams assembles the Messages API parameters. Consecutive same-role
// messages are merged since the API rejects them, and the prefill rides as
// a trailing assistant message so the model continues from it.
func (p *Provider) buildParams(req provider.Request) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	appendText := func(role core.Role, text string) {
		if text == "" {
			return
		}
		isAssistant := role == core.RoleAssistant
		if n := len(messages); n > 0 {
			lastAssistant := messages[n-1].Role == anthropic.MessageParamRoleAssistant
			if lastAssistant == isAssistant {
				messages[n-1].Content = append(messages[n-1].Content, anthropic.NewTextBlock(text))
				return
			}
		}
		if isAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		} else {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}

	for _, m := range req.Messages {
		// In-transcript system notes are folded into the user turn stream.
		appendText(m.Role, m.Content)
	}
	if req.Prefill != "" {
		appendText(core.RoleAssistant, req.Prefill)
	}

	model := p.opts.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	maxTokens := p.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}

	if sys := req.SystemPrompt(); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}

	if req.Reasoning && p.opts.ThinkingBudget > 0 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(p.opts.ThinkingBudget)
		// Thinking requires default temperature.
	} else {
		temperature := p.opts.Temperature
		if req.Temperature > 0 {
			temperature = req.Temperature
		}
		params.Temperature = anthropic.Float(temperature)
	}

	return params
}

// Stream implements provider.Provider using the streaming Messages endpoint.
// Visible text deltas are forwarded as they arrive. Thinking deltas are
// accumulated and, once the stream finishes, replayed behind the request's
// reasoning marker so downstream consumers see the single in-stream
// convention.
func (p *Provider) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	out := make(chan provider.Chunk, 32)
	errCh := make(chan error, 1)

	if err := p.validate(req); err != nil {
		errCh <- err
		close(out)
		close(errCh)
		return out, errCh
	}

	params := p.buildParams(req)

	go func() {
		defer close(out)
		defer close(errCh)

		emit := func(text string) bool {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			case out <- provider.Chunk{Text: text}:
				return true
			}
		}

		var thinking strings.Builder
		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" && !emit(delta.Text) {
						return
					}
				case anthropic.ThinkingDelta:
					thinking.WriteString(delta.Thinking)
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
			return
		}

		if thinking.Len() > 0 && req.ReasoningMarker != "" {
			if !emit("\n" + req.ReasoningMarker + "\n") {
				return
			}
			emit(thinking.String())
		}
	}()

	return out, errCh
}

// Complete implements provider.Provider with a single non-streaming call.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	if err := p.validate(req); err != nil {
		return "", err
	}
	resp, err := p.client.Messages.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String(), nil
}
