package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/zen-systems/askgate/pkg/config"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models and
// Azure-style OpenAI-compatible deployments.
type OpenAIAdapter struct {
	client     openai.Client
	deployment string
}

// NewOpenAIAdapter creates a new OpenAI adapter. A target endpoint
// redirects the client to an OpenAI-compatible gateway; a deployment
// name replaces the model on every request, Azure-style.
func NewOpenAIAdapter(apiKey string, target config.LLMTarget) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if target.Endpoint != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(target.Endpoint))
	}
	if target.APIVersion != "" {
		reqOpts = append(reqOpts, option.WithQueryAdd("api-version", target.APIVersion))
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIAdapter{client: client, deployment: target.Deployment}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIAdapter) Models() []string {
	return []string{
		"gpt-5.2-instant",
		"gpt-5.2-thinking",
		"gpt-5.2-codex",
		"gpt-5.2-pro",
	}
}

// Stream opens a streaming chat completion against OpenAI.
func (a *OpenAIAdapter) Stream(ctx context.Context, model string, msgs []Message, opts StreamOptions) (*TextStream, error) {
	if a.deployment != "" {
		model = a.deployment
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(msgs),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}

	stream := a.client.Chat.Completions.NewStreaming(ctx, params)
	out := NewTextStream()

	go func() {
		defer stream.Close()
		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.TotalTokens > 0 {
				out.SetUsage(&Usage{
					PromptTokens:     int(chunk.Usage.PromptTokens),
					CompletionTokens: int(chunk.Usage.CompletionTokens),
					TotalTokens:      int(chunk.Usage.TotalTokens),
				})
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			if !out.Send(ctx, delta) {
				out.Close(ctx.Err())
				return
			}
		}
		if err := stream.Err(); err != nil {
			out.Close(fmt.Errorf("openai stream: %w", err))
			return
		}
		out.Close(nil)
	}()

	return out, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
