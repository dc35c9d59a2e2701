package adapter

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/zen-systems/askgate/pkg/config"
)

// AnthropicAdapter implements the Adapter interface for Claude models.
type AnthropicAdapter struct {
	client anthropic.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter.
func NewAnthropicAdapter(apiKey string, target config.LLMTarget) (*AnthropicAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if target.Endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(target.Endpoint))
	}

	client := anthropic.NewClient(reqOpts...)
	return &AnthropicAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *AnthropicAdapter) Name() string {
	return "anthropic"
}

// Models returns the list of supported Claude models.
func (a *AnthropicAdapter) Models() []string {
	return []string{
		"claude-sonnet-4-20250514",
		"claude-opus-4-20250514",
	}
}

// Stream opens a streaming message request against Anthropic.
func (a *AnthropicAdapter) Stream(ctx context.Context, model string, msgs []Message, opts StreamOptions) (*TextStream, error) {
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	system, converted := splitAnthropicMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	stream := a.client.Messages.NewStreaming(ctx, params)
	out := NewTextStream()

	go func() {
		defer stream.Close()
		var usage Usage
		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !out.Send(ctx, delta.Text) {
						out.Close(ctx.Err())
						return
					}
				}
			case anthropic.MessageStartEvent:
				usage.PromptTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.MessageDeltaEvent:
				usage.CompletionTokens = int(ev.Usage.OutputTokens)
			}
		}
		if err := stream.Err(); err != nil {
			out.Close(fmt.Errorf("anthropic stream: %w", err))
			return
		}
		if usage.PromptTokens > 0 || usage.CompletionTokens > 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			out.SetUsage(&usage)
		}
		out.Close(nil)
	}()

	return out, nil
}

// splitAnthropicMessages lifts system-role messages into the Messages
// API's top-level system prompt and converts the rest.
func splitAnthropicMessages(msgs []Message) (string, []anthropic.MessageParam) {
	var system string
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == "system" {
			if system != "" {
				system += "\n"
			}
			system += m.Content
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return system, out
}
