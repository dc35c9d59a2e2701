package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/convo"
)

func testConfig(endpoint string) *config.RoutingConfig {
	return &config.RoutingConfig{
		FoundryEndpoint:       endpoint,
		FoundryAgentID:        "agent-42",
		FoundryTimeoutSeconds: 5,
	}
}

func TestDelegateStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Foundry-Agent-Id"); got != "agent-42" {
			t.Errorf("agent header = %q", got)
		}
		var req delegateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "what rooms are free?" {
			t.Errorf("query = %q", req.Query)
		}
		if req.ConversationID != "conv-9" {
			t.Errorf("conversation_id = %q", req.ConversationID)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":\"Rooms \"}\n\n")
		fmt.Fprint(w, "data: {\"delta\":\"A and B.\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "key")
	stream, err := c.Delegate(context.Background(), "what rooms are free?", nil, &convo.Context{ConversationID: "conv-9"})
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	var b strings.Builder
	for chunk := range stream.Chunks() {
		b.WriteString(chunk)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if b.String() != "Rooms A and B." {
		t.Fatalf("text = %q", b.String())
	}
}

func TestDelegatePlainTextEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: raw text delta\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")
	stream, err := c.Delegate(context.Background(), "q", nil, nil)
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}

	var b strings.Builder
	for chunk := range stream.Chunks() {
		b.WriteString(chunk)
	}
	if b.String() != "raw text delta" {
		t.Fatalf("text = %q", b.String())
	}
}

func TestDelegateNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")
	_, err := c.Delegate(context.Background(), "q", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !adapter.IsTransient(err) {
		t.Fatalf("502 should be transient: %v", err)
	}
}

func TestDelegateAgentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"delta\":\"partial\"}\n\n")
		fmt.Fprint(w, "data: {\"error\":\"tool execution failed\"}\n\n")
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")
	stream, err := c.Delegate(context.Background(), "q", nil, nil)
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	for range stream.Chunks() {
	}
	if stream.Err() == nil {
		t.Fatalf("expected stream error")
	}
}

func TestDelegateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	c := NewClient(cfg, "")
	c.timeout = 50 * time.Millisecond

	_, err := c.Delegate(context.Background(), "q", nil, nil)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestNewClientDisabled(t *testing.T) {
	if c := NewClient(&config.RoutingConfig{}, ""); c != nil {
		t.Fatalf("expected nil client without an endpoint")
	}
}
