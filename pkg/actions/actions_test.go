package actions

import (
	"context"
	"strings"
	"testing"

	"github.com/zen-systems/askgate/pkg/convo"
	"github.com/zen-systems/askgate/pkg/metrics"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantAction string
		wantOK     bool
	}{
		{"card action", `{"action":"show_project_details","project_id":"p-1"}`, "show_project_details", true},
		{"leading whitespace", `  {"action":"rate_response","helpful":true}`, "rate_response", true},
		{"plain question", "what is this event?", "", false},
		{"json without action", `{"project_id":"p-1"}`, "", false},
		{"empty action", `{"action":""}`, "", false},
		{"malformed json", `{"action":`, "", false},
		{"json array", `[1,2,3]`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, payload, ok := ParsePayload(tt.query)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if action != tt.wantAction {
				t.Fatalf("action = %q, want %q", action, tt.wantAction)
			}
			if ok && payload == nil {
				t.Fatalf("payload missing")
			}
		})
	}
}

func TestSchemaValidate(t *testing.T) {
	s := Schema{
		Action: "show_project_details",
		Fields: []Field{
			{Name: "project_id", Type: FieldString, Required: true},
			{Name: "expand", Type: FieldBool},
		},
	}

	if err := s.Validate(map[string]any{"project_id": "p-1"}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	if err := s.Validate(map[string]any{}); err == nil {
		t.Fatalf("missing required field accepted")
	}
	if err := s.Validate(map[string]any{"project_id": 42.0}); err == nil {
		t.Fatalf("wrong type accepted")
	}
	if err := s.Validate(map[string]any{"project_id": "p-1", "expand": "yes"}); err == nil {
		t.Fatalf("wrong optional type accepted")
	}
	if err := s.Validate(map[string]any{"project_id": "p-1", "extra": 1.0}); err != nil {
		t.Fatalf("unknown field rejected: %v", err)
	}
}

func TestDefaultRegistryRegistersAllBuiltins(t *testing.T) {
	reg := DefaultRegistry(nil)

	got := reg.Actions()
	want := map[string]bool{
		"show_project_details":  true,
		"show_session_schedule": true,
		"rate_response":         true,
	}
	if len(got) != len(want) {
		t.Fatalf("actions = %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Fatalf("unexpected action %q", name)
		}
	}
}

func TestRegistryDispatch(t *testing.T) {
	reg := DefaultRegistry(nil)

	res, err := reg.Dispatch(context.Background(), "show_project_details",
		map[string]any{"action": "show_project_details", "project_id": "p-42"}, nil)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(res.Text, "p-42") {
		t.Fatalf("Text = %q", res.Text)
	}
	if len(res.Card) == 0 {
		t.Fatalf("expected a card payload")
	}
}

func TestRegistryUnknownAction(t *testing.T) {
	reg := DefaultRegistry(nil)

	if _, err := reg.Dispatch(context.Background(), "delete_everything", map[string]any{}, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRegistryValidationFailure(t *testing.T) {
	reg := DefaultRegistry(nil)

	_, err := reg.Dispatch(context.Background(), "show_project_details", map[string]any{"action": "show_project_details"}, nil)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "project_id") {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&ProjectDetailsAction{}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := reg.Register(&ProjectDetailsAction{}); err == nil {
		t.Fatalf("duplicate accepted")
	}
}

func TestRateResponseRecordsFeedback(t *testing.T) {
	recorder := metrics.NewRecorder(5, nil)
	reg := DefaultRegistry(recorder)

	cctx := &convo.Context{ConversationID: "conv-7"}
	res, err := reg.Dispatch(context.Background(), "rate_response",
		map[string]any{"action": "rate_response", "helpful": false, "comment": "wrong building"}, cctx)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text == "" {
		t.Fatalf("empty ack")
	}

	fb := recorder.RecentFeedback(1)
	if len(fb) != 1 {
		t.Fatalf("feedback not recorded")
	}
	if fb[0].ConversationID != "conv-7" || fb[0].Helpful || fb[0].Comment != "wrong building" {
		t.Fatalf("record = %+v", fb[0])
	}
}
