package adapter

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/zen-systems/askgate/pkg/config"
)

// GoogleAdapter implements the Adapter interface for Gemini models.
type GoogleAdapter struct {
	client *genai.Client
}

// NewGoogleAdapter creates a new Google Gemini adapter.
func NewGoogleAdapter(apiKey string, target config.LLMTarget) (*GoogleAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if target.Endpoint != "" {
		cc.HTTPOptions.BaseURL = target.Endpoint
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create google client: %w", err)
	}

	return &GoogleAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *GoogleAdapter) Name() string {
	return "google"
}

// Models returns the list of supported Gemini models.
func (a *GoogleAdapter) Models() []string {
	return []string{
		"gemini-2.0-pro",
	}
}

// Stream opens a streaming generation request against Gemini.
func (a *GoogleAdapter) Stream(ctx context.Context, model string, msgs []Message, opts StreamOptions) (*TextStream, error) {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*opts.Temperature))
	}

	out := NewTextStream()

	go func() {
		var usage *Usage
		for resp, err := range a.client.Models.GenerateContentStream(ctx, model, toGoogleContents(msgs), cfg) {
			if err != nil {
				out.Close(fmt.Errorf("google stream: %w", err))
				return
			}
			if resp.UsageMetadata != nil {
				usage = &Usage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
			}
			if text := resp.Text(); text != "" {
				if !out.Send(ctx, text) {
					out.Close(ctx.Err())
					return
				}
			}
		}
		out.SetUsage(usage)
		out.Close(nil)
	}()

	return out, nil
}

func toGoogleContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		var role genai.Role = genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}
