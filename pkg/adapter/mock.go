package adapter

import (
	"context"
	"fmt"
	"strings"
)

// MockAdapter returns deterministic streams for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Usage           *Usage
	Fail            error
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	if defaultResponse == "" {
		defaultResponse = "mock response:"
	}
	return &MockAdapter{responses: responses, defaultResponse: defaultResponse}
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Stream replays the canned response as word-sized deltas.
func (a *MockAdapter) Stream(ctx context.Context, model string, msgs []Message, _ StreamOptions) (*TextStream, error) {
	if a.Fail != nil {
		return nil, a.Fail
	}

	prompt := ""
	if len(msgs) > 0 {
		prompt = msgs[len(msgs)-1].Content
	}
	content, ok := a.responses[prompt]
	if !ok {
		content = fmt.Sprintf("%s %s", a.defaultResponse, prompt)
	}

	out := NewTextStream()
	go func() {
		words := strings.SplitAfter(content, " ")
		for _, w := range words {
			if w == "" {
				continue
			}
			if !out.Send(ctx, w) {
				out.Close(ctx.Err())
				return
			}
		}
		out.SetUsage(a.Usage)
		out.Close(nil)
	}()
	return out, nil
}
