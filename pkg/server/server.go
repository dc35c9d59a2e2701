// Package server exposes the routing engine over HTTP: a streaming
// chat endpoint plus feedback, introspection and health endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/zen-systems/askgate/pkg/adapter"
	"github.com/zen-systems/askgate/pkg/config"
	"github.com/zen-systems/askgate/pkg/convo"
	"github.com/zen-systems/askgate/pkg/metrics"
	"github.com/zen-systems/askgate/pkg/orchestrate"
	"github.com/zen-systems/askgate/pkg/sse"
)

// Request headers and query flags for per-request overrides.
const (
	headerDelegate = "X-Askgate-Delegate"
	headerRole     = "X-Askgate-Role"
	headerDebug    = "X-Askgate-Debug"
)

// Server wires the HTTP surface to the orchestrator.
type Server struct {
	cfg      *config.Config
	orch     *orchestrate.Orchestrator
	recorder *metrics.Recorder
	logger   *log.Logger
}

func New(cfg *config.Config, orch *orchestrate.Orchestrator, recorder *metrics.Recorder) *Server {
	return &Server{
		cfg:      cfg,
		orch:     orch,
		recorder: recorder,
		logger:   log.New(os.Stderr, "[server] ", log.LstdFlags),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/feedback", s.handleFeedback)
	mux.HandleFunc("/v1/metrics/recent", s.handleMetricsRecent)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("listening on %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// chatRequest is the inbound chat payload.
type chatRequest struct {
	Messages    []convo.Message `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Context     map[string]any  `json:"context,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	query := convo.LastUserQuery(req.Messages)
	if query == "" {
		writeError(w, http.StatusBadRequest, "no user message found")
		return
	}

	forceDelegate, err := s.delegateOverride(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	cctx := convo.ExtractFromMessages(req.Context, req.Messages)

	writer, err := sse.NewWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	oreq := &orchestrate.Request{
		Query:         query,
		Messages:      req.Messages,
		Context:       cctx,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		ForceDelegate: forceDelegate,
		Debug:         debugRequested(r),
	}

	if err := s.orch.Respond(r.Context(), oreq, func(ev orchestrate.Event) error {
		return writer.WriteJSON(ev)
	}); err != nil {
		s.logger.Printf("chat stream failed: %v", err)
		// Upstream rejections propagate as an in-stream error with no
		// terminator. Any other error means the caller is gone.
		if adapter.IsRejection(err) {
			if werr := writer.WriteJSON(orchestrate.Event{Error: err.Error()}); werr != nil {
				s.logger.Printf("write rejection: %v", werr)
			}
		}
		return
	}
	if err := writer.WriteDone(); err != nil {
		s.logger.Printf("write done: %v", err)
	}
}

// delegateOverride checks the per-request forced delegation flag
// against the config gates: the override must be allowed, and when a
// required role is configured the caller must present it.
func (s *Server) delegateOverride(r *http.Request) (bool, error) {
	requested := overrideRequested(r.Header.Get(headerDelegate)) || overrideRequested(r.URL.Query().Get("delegate"))
	if !requested {
		return false, nil
	}
	rc := s.cfg.RoutingConfig
	if !rc.AllowDelegateOverride {
		return false, fmt.Errorf("delegation override is not allowed")
	}
	if rc.DelegateRequiredRole != "" && r.Header.Get(headerRole) != rc.DelegateRequiredRole {
		return false, fmt.Errorf("delegation override requires role %q", rc.DelegateRequiredRole)
	}
	return true, nil
}

func debugRequested(r *http.Request) bool {
	return isTruthy(r.Header.Get(headerDebug)) || isTruthy(r.URL.Query().Get("debug"))
}

// feedbackRequest is the inbound feedback payload.
type feedbackRequest struct {
	ConversationID string `json:"conversation_id"`
	Helpful        bool   `json:"helpful"`
	Comment        string `json:"comment,omitempty"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	s.recorder.RecordFeedback(metrics.FeedbackRecord{
		ConversationID: req.ConversationID,
		Helpful:        req.Helpful,
		Comment:        req.Comment,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleMetricsRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":  s.recorder.Recent(limit),
		"feedback": s.recorder.RecentFeedback(limit),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	rc := s.cfg.RoutingConfig
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"strategy": string(rc.Strategy),
		"llm":      s.cfg.HasProvider(rc.LLM.Provider) || rc.LLM.Provider == "mock",
		"foundry":  rc.DelegateToFoundry && rc.FoundryEndpoint != "",
	})
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// overrideRequested accepts the canonical "force" value as well as
// plain truthy flags.
func overrideRequested(v string) bool {
	return v == "force" || isTruthy(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
