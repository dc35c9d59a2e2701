// Package convo carries per-conversation state through the routing
// pipeline. A Context is created or revived from the inbound request,
// mutated once per request (turn advance plus stage update) and
// serialized back to the caller on the outgoing stream.
package convo

import (
	"strings"

	"github.com/google/uuid"
)

// Message is one turn of the chat transcript as sent by the caller.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context tracks the identity and progress of a conversation.
type Context struct {
	ConversationID string           `json:"conversation_id"`
	UserID         string           `json:"user_id,omitempty"`
	Turn           int              `json:"turn"`
	Stage          string           `json:"stage,omitempty"`
	LastResults    []map[string]any `json:"last_results,omitempty"`
}

// New starts a fresh conversation with a generated ID.
func New(userID string) *Context {
	return &Context{
		ConversationID: uuid.NewString(),
		UserID:         userID,
	}
}

// ExtractFromMessages revives a Context from the caller-supplied context
// object, falling back to a fresh conversation when none was sent. The
// turn counter defaults to the number of prior user messages so revived
// and fresh conversations count turns the same way.
func ExtractFromMessages(raw map[string]any, msgs []Message) *Context {
	ctx := &Context{Turn: -1}
	if raw != nil {
		if v, ok := raw["conversation_id"].(string); ok {
			ctx.ConversationID = v
		}
		if v, ok := raw["user_id"].(string); ok {
			ctx.UserID = v
		}
		if v, ok := raw["turn"].(float64); ok {
			ctx.Turn = int(v)
		}
		if v, ok := raw["stage"].(string); ok {
			ctx.Stage = v
		}
		if results, ok := raw["last_results"].([]any); ok {
			for _, r := range results {
				if m, ok := r.(map[string]any); ok {
					ctx.LastResults = append(ctx.LastResults, m)
				}
			}
		}
	}
	if ctx.ConversationID == "" {
		ctx.ConversationID = uuid.NewString()
	}
	if ctx.Turn < 0 {
		ctx.Turn = 0
		for _, m := range msgs {
			if m.Role == "user" {
				ctx.Turn++
			}
		}
		if ctx.Turn > 0 {
			ctx.Turn--
		}
	}
	return ctx
}

// LastUserQuery returns the content of the most recent user message,
// which is the query the routing engine classifies.
func LastUserQuery(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return strings.TrimSpace(msgs[i].Content)
		}
	}
	return ""
}

// AdvanceTurn bumps the turn counter. Called exactly once per request.
func (c *Context) AdvanceTurn() {
	c.Turn++
}

// SetStage records which routing path handled the current turn.
func (c *Context) SetStage(stage string) {
	c.Stage = stage
}

// ToMap serializes the context for the outgoing stream events.
func (c *Context) ToMap() map[string]any {
	m := map[string]any{
		"conversation_id": c.ConversationID,
		"turn":            c.Turn,
	}
	if c.UserID != "" {
		m["user_id"] = c.UserID
	}
	if c.Stage != "" {
		m["stage"] = c.Stage
	}
	if len(c.LastResults) > 0 {
		m["last_results"] = c.LastResults
	}
	return m
}
