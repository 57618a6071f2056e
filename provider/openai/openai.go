// Package openai implements provider.Provider on top of the OpenAI Chat
// Completions API. It adapts the normalized chat request into the SDK's
// message format and forwards streaming text deltas as fragments.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/IronBullXD/RoleplayNexus-sub001/core"
	"github.com/IronBullXD/RoleplayNexus-sub001/provider"
)

// Options configure the OpenAI provider adapter.
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// Provider wraps the OpenAI Chat Completions API behind the generic
// provider.Provider interface.
type Provider struct {
	client openai.Client
	opts   Options
}

// New creates an OpenAI provider using the official client. The API key is
// taken from the options or, failing that, the OPENAI_API_KEY environment
// variable.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       openai.ChatModelGPT4oMini,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	return &Provider{client: openai.NewClient(clientOpts...), opts: opts}
}

// Info returns metadata describing this provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Provider:          "openai",
		Model:             p.opts.Model,
		SupportsReasoning: false,
	}
}

// validate rejects requests that cannot possibly succeed before any network
// traffic happens.
func (p *Provider) validate(req provider.Request) error {
	if p.opts.APIKey == "" {
		return fmt.Errorf("openai: missing API key")
	}
	if req.Model == "" && p.opts.Model == "" {
		return fmt.Errorf("openai: no model configured")
	}
	return nil
}

// buildParams assembles the chat completion parameters from a normalized
// request. The prefill, when present, is sent as a trailing assistant
// message so the model continues from it.
func (p *Provider) buildParams(req provider.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	if sys := req.SystemPrompt(); sys != "" {
		messages = append(messages, openai.SystemMessage(sys))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		}
	}
	if req.Prefill != "" {
		messages = append(messages, openai.AssistantMessage(req.Prefill))
	}

	model := req.Model
	if model == "" {
		model = p.opts.Model
	}
	temperature := p.opts.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	maxTokens := p.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

// Stream implements provider.Provider using the streaming completions
// endpoint. Text deltas are forwarded as fragments in arrival order.
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

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- provider.Chunk{Text: ch.Delta.Content}:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()

	return out, errCh
}

// Complete implements provider.Provider with a single non-streaming call.
func (p *Provider) Complete(ctx context.Context, req provider.Request) (string, error) {
	if err := p.validate(req); err != nil {
		return "", err
	}
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
