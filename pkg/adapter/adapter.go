// Package adapter provides streaming clients for the general-purpose
// LLM providers the gateway can forward to. Every adapter exposes the
// same contract: one request, one TextStream of incremental deltas.
package adapter

import (
	"context"
	"fmt"

	"github.com/zen-systems/askgate/pkg/config"
)

// Message is a single chat turn handed to a provider.
type Message struct {
	Role    string
	Content string
}

// StreamOptions carries the per-request generation knobs.
type StreamOptions struct {
	Temperature *float64
	MaxTokens   int
}

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Stream opens a streaming completion. Errors that can be detected
	// before any delta is produced are returned directly; mid-stream
	// failures surface through TextStream.Err.
	Stream(ctx context.Context, model string, msgs []Message, opts StreamOptions) (*TextStream, error)

	// Name returns the adapter's identifier.
	Name() string

	// Models returns the list of supported models.
	Models() []string
}

// New builds the adapter for a configured provider name, wiring in the
// configured target endpoint, deployment, and API version.
func New(provider string, cfg *config.Config) (Adapter, error) {
	var target config.LLMTarget
	if cfg.RoutingConfig != nil {
		target = cfg.RoutingConfig.LLM
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	switch provider {
	case "openai":
		return NewOpenAIAdapter(cfg.OpenAIAPIKey, target)
	case "anthropic":
		return NewAnthropicAdapter(cfg.AnthropicAPIKey, target)
	case "google":
		return NewGoogleAdapter(cfg.GoogleAPIKey, target)
	case "deepseek":
		return NewDeepSeekAdapter(cfg.DeepSeekAPIKey, target)
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
