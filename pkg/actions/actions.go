// Package actions dispatches structured card-action payloads. A query
// that parses as a JSON object with an "action" field bypasses
// classification entirely: it is validated against the schema for that
// action and handed to a registered handler.
package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/askgate/pkg/convo"
)

// FieldType names the accepted JSON types for a schema field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldNumber FieldType = "number"
	FieldBool   FieldType = "bool"
	FieldObject FieldType = "object"
)

// Field is one validated payload field.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema describes the accepted payload for one action.
type Schema struct {
	Action string
	Fields []Field
}

// Validate checks a payload against the schema. Unknown fields are
// allowed; missing required fields and type mismatches are not.
func (s Schema) Validate(payload map[string]any) error {
	var violations []string
	for _, f := range s.Fields {
		val, ok := payload[f.Name]
		if !ok || val == nil {
			if f.Required {
				violations = append(violations, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}
		if !typeMatches(f.Type, val) {
			violations = append(violations, fmt.Sprintf("field %q must be %s", f.Name, f.Type))
		}
	}
	if len(violations) > 0 {
		return fmt.Errorf("invalid %s payload: %s", s.Action, strings.Join(violations, "; "))
	}
	return nil
}

func typeMatches(t FieldType, val any) bool {
	switch t {
	case FieldString:
		_, ok := val.(string)
		return ok
	case FieldNumber:
		_, ok := val.(float64)
		return ok
	case FieldBool:
		_, ok := val.(bool)
		return ok
	case FieldObject:
		_, ok := val.(map[string]any)
		return ok
	}
	return false
}

// Result is a handler's single text-plus-optional-card answer.
type Result struct {
	Text string
	Card json.RawMessage
}

// Handler executes one named action.
type Handler interface {
	Handle(ctx context.Context, payload map[string]any, cctx *convo.Context) (*Result, error)

	// Name returns the action identifier.
	Name() string

	// Schema returns the accepted payload shape.
	Schema() Schema
}

// Registry holds the known handlers. Built once at startup, read-only
// afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler, rejecting duplicate action names.
func (r *Registry) Register(h Handler) error {
	name := h.Name()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("action %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Actions returns the registered action names.
func (r *Registry) Actions() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// Dispatch validates and executes one action payload.
func (r *Registry) Dispatch(ctx context.Context, name string, payload map[string]any, cctx *convo.Context) (*Result, error) {
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	if err := h.Schema().Validate(payload); err != nil {
		return nil, err
	}
	return h.Handle(ctx, payload, cctx)
}

// ParsePayload reports whether a query is a card-action payload: a JSON
// object carrying a non-empty string "action" field. Returns the action
// name and the full payload when it is.
func ParsePayload(query string) (string, map[string]any, bool) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(trimmed, "{") {
		return "", nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return "", nil, false
	}
	action, ok := payload["action"].(string)
	if !ok || action == "" {
		return "", nil, false
	}
	return action, payload, true
}
