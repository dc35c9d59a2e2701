package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/sse"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekAdapter implements the Adapter interface for DeepSeek models.
// DeepSeek uses an OpenAI-compatible API format, so the wire handling
// is done directly over its event stream.
type DeepSeekAdapter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// deepseekRequest represents the OpenAI-compatible request format.
type deepseekRequest struct {
	Model         string                `json:"model"`
	Messages      []deepseekMessage     `json:"messages"`
	MaxTokens     int                   `json:"max_tokens,omitempty"`
	Temperature   *float64              `json:"temperature,omitempty"`
	Stream        bool                  `json:"stream"`
	StreamOptions deepseekStreamOptions `json:"stream_options"`
}

type deepseekStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// deepseekMessage represents a chat message.
type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// deepseekChunk represents one streamed OpenAI-compatible chunk.
type deepseekChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// NewDeepSeekAdapter creates a new DeepSeek adapter. A target endpoint
// replaces the public API base URL.
func NewDeepSeekAdapter(apiKey string, target config.LLMTarget) (*DeepSeekAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	baseURL := deepseekBaseURL
	if target.Endpoint != "" {
		baseURL = target.Endpoint
	}
	return &DeepSeekAdapter{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Name returns the adapter identifier.
func (a *DeepSeekAdapter) Name() string {
	return "deepseek"
}

// Models returns the list of supported DeepSeek models.
func (a *DeepSeekAdapter) Models() []string {
	return []string{
		"deepseek-chat",
		"deepseek-coder",
		"deepseek-reasoner",
	}
}

// Stream opens a streaming chat completion against DeepSeek.
func (a *DeepSeekAdapter) Stream(ctx context.Context, model string, msgs []Message, opts StreamOptions) (*TextStream, error) {
	reqBody := deepseekRequest{
		Model:         model,
		Messages:      toDeepSeekMessages(msgs),
		MaxTokens:     opts.MaxTokens,
		Temperature:   opts.Temperature,
		Stream:        true,
		StreamOptions: deepseekStreamOptions{IncludeUsage: true},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &AdapterError{Temporary: true, Err: fmt.Errorf("deepseek API request failed: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &AdapterError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("deepseek API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	out := NewTextStream()

	go func() {
		defer resp.Body.Close()
		reader := sse.NewReader(resp.Body)
		for {
			ev, err := reader.Next()
			if err == io.EOF {
				out.Close(nil)
				return
			}
			if err != nil {
				out.Close(fmt.Errorf("deepseek stream: %w", err))
				return
			}
			if ev.IsDone() {
				out.Close(nil)
				return
			}

			var chunk deepseekChunk
			if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				out.Close(&AdapterError{Err: fmt.Errorf("deepseek API error: %s (type: %s, code: %s)",
					chunk.Error.Message, chunk.Error.Type, chunk.Error.Code)})
				return
			}
			if chunk.Usage != nil {
				out.SetUsage(&Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				})
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !out.Send(ctx, delta) {
					out.Close(ctx.Err())
					return
				}
			}
		}
	}()

	return out, nil
}

func toDeepSeekMessages(msgs []Message) []deepseekMessage {
	out := make([]deepseekMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, deepseekMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
