package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zen-systems/askgate/pkg/convo"
	"github.com/zen-systems/askgate/pkg/metrics"
)

// DefaultRegistry builds the registry with the built-in handlers. A
// registration conflict among builtins is a programming error, so it
// panics at startup.
func DefaultRegistry(recorder *metrics.Recorder) *Registry {
	r := NewRegistry()
	for _, h := range []Handler{
		&ProjectDetailsAction{},
		&SessionScheduleAction{},
		&RateResponseAction{recorder: recorder},
	} {
		if err := r.Register(h); err != nil {
			panic(fmt.Sprintf("builtin action %s: %v", h.Name(), err))
		}
	}
	return r
}

// adaptiveCard renders the minimal card payload the UI layer consumes.
func adaptiveCard(title string, facts map[string]any) json.RawMessage {
	card := map[string]any{
		"type":    "AdaptiveCard",
		"version": "1.5",
		"body": []any{
			map[string]any{"type": "TextBlock", "text": title, "weight": "Bolder"},
		},
	}
	if len(facts) > 0 {
		card["data"] = facts
	}
	out, _ := json.Marshal(card)
	return out
}

// ProjectDetailsAction acknowledges a card tap on a project tile and
// points the renderer at the selected project.
type ProjectDetailsAction struct{}

func (a *ProjectDetailsAction) Name() string { return "show_project_details" }

func (a *ProjectDetailsAction) Schema() Schema {
	return Schema{
		Action: a.Name(),
		Fields: []Field{
			{Name: "project_id", Type: FieldString, Required: true},
		},
	}
}

func (a *ProjectDetailsAction) Handle(_ context.Context, payload map[string]any, _ *convo.Context) (*Result, error) {
	projectID := payload["project_id"].(string)
	return &Result{
		Text: fmt.Sprintf("Here are the details for project %s.", projectID),
		Card: adaptiveCard("Project details", map[string]any{"project_id": projectID}),
	}, nil
}

// SessionScheduleAction shows the schedule, optionally narrowed to one
// day.
type SessionScheduleAction struct{}

func (a *SessionScheduleAction) Name() string { return "show_session_schedule" }

func (a *SessionScheduleAction) Schema() Schema {
	return Schema{
		Action: a.Name(),
		Fields: []Field{
			{Name: "day", Type: FieldString},
		},
	}
}

func (a *SessionScheduleAction) Handle(_ context.Context, payload map[string]any, _ *convo.Context) (*Result, error) {
	text := "Here is the session schedule."
	facts := map[string]any{}
	if day, ok := payload["day"].(string); ok && day != "" {
		text = fmt.Sprintf("Here is the session schedule for %s.", day)
		facts["day"] = day
	}
	return &Result{
		Text: text,
		Card: adaptiveCard("Session schedule", facts),
	}, nil
}

// RateResponseAction records thumbs-up/down feedback on an answer.
type RateResponseAction struct {
	recorder *metrics.Recorder
}

func (a *RateResponseAction) Name() string { return "rate_response" }

func (a *RateResponseAction) Schema() Schema {
	return Schema{
		Action: a.Name(),
		Fields: []Field{
			{Name: "helpful", Type: FieldBool, Required: true},
			{Name: "comment", Type: FieldString},
		},
	}
}

func (a *RateResponseAction) Handle(_ context.Context, payload map[string]any, cctx *convo.Context) (*Result, error) {
	rec := metrics.FeedbackRecord{Helpful: payload["helpful"].(bool)}
	if comment, ok := payload["comment"].(string); ok {
		rec.Comment = comment
	}
	if cctx != nil {
		rec.ConversationID = cctx.ConversationID
	}
	if a.recorder != nil {
		a.recorder.RecordFeedback(rec)
	}
	return &Result{Text: "Thanks for the feedback."}, nil
}
