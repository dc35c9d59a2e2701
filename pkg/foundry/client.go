// Package foundry is the streaming client for the external agent
// delegation service. Delegation gets exactly one attempt per request
// with a bounded timeout; any failure is reported to the caller, which
// decides the next fallback stage.
package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/convo"
	"github.com/zen-systems/askgate/pkg/sse"
)

const defaultTimeout = 30 * time.Second

// Client talks to one configured Foundry agent endpoint.
type Client struct {
	endpoint   string
	agentID    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient builds a client from the routing config. Returns nil when
// delegation is not configured; callers treat a nil client as disabled.
func NewClient(cfg *config.RoutingConfig, apiKey string) *Client {
	if cfg.FoundryEndpoint == "" {
		return nil
	}
	timeout := defaultTimeout
	if cfg.FoundryTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.FoundryTimeoutSeconds) * time.Second
	}
	return &Client{
		endpoint:   cfg.FoundryEndpoint,
		agentID:    cfg.FoundryAgentID,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// delegateRequest is the payload sent to the agent service.
type delegateRequest struct {
	Query          string          `json:"query"`
	Messages       []convo.Message `json:"messages,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
}

// delegateEvent is one streamed agent event.
type delegateEvent struct {
	Delta string `json:"delta"`
	Error string `json:"error,omitempty"`
}

// Delegate streams the agent's answer for a query. The returned stream
// closes with an error on any mid-stream failure; connection and status
// failures are returned synchronously so the caller can fall back
// before emitting anything.
func (c *Client) Delegate(ctx context.Context, query string, msgs []convo.Message, cctx *convo.Context) (*adapter.TextStream, error) {
	payload := delegateRequest{Query: query, Messages: msgs}
	if cctx != nil {
		payload.ConversationID = cctx.ConversationID
		payload.UserID = cctx.UserID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("foundry: marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("foundry: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.agentID != "" {
		req.Header.Set("X-Foundry-Agent-Id", c.agentID)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &adapter.AdapterError{Temporary: true, Err: fmt.Errorf("foundry: request failed: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, &adapter.AdapterError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("foundry: status %d: %s", resp.StatusCode, string(msg)),
		}
	}

	out := adapter.NewTextStream()
	go func() {
		defer cancel()
		defer resp.Body.Close()
		reader := sse.NewReader(resp.Body)
		for {
			ev, err := reader.Next()
			if err == io.EOF {
				out.Close(nil)
				return
			}
			if err != nil {
				out.Close(fmt.Errorf("foundry stream: %w", err))
				return
			}
			if ev.IsDone() {
				out.Close(nil)
				return
			}

			var event delegateEvent
			if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
				// Plain-text agents stream raw deltas.
				event.Delta = ev.Data
			}
			if event.Error != "" {
				out.Close(fmt.Errorf("foundry agent error: %s", event.Error))
				return
			}
			if event.Delta == "" {
				continue
			}
			if !out.Send(ctx, event.Delta) {
				out.Close(ctx.Err())
				return
			}
		}
	}()
	return out, nil
}
