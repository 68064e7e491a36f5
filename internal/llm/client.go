// Package llm is the vendor-neutral LLM backend contract plus an
// OpenAI-compatible HTTP implementation. The pipeline depends only on
// the Client interface.
package llm

import (
	"context"
	"errors"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDef describes a tool offered to the model.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult carries one tool's output back to the model.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Response is the model's reply to a chat call.
type Response struct {
	Text         string     `json:"text"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	StopReason   string     `json:"stop_reason"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
}

// ErrAuth indicates the backend rejected our credentials. Never
// retried: repeating an unauthorized request cannot succeed.
var ErrAuth = errors.New("llm: authentication failed")

// Client is the chat contract the pipeline consumes.
type Client interface {
	// Chat sends the system prompt, history, and tool definitions and
	// returns the model's reply.
	Chat(ctx context.Context, system string, history []Message, tools []ToolDef) (*Response, error)

	// ContinueWithToolResults resumes a turn that stopped on tool
	// calls, supplying their results.
	ContinueWithToolResults(ctx context.Context, system string, history []Message, tools []ToolDef, results []ToolResult) (*Response, error)
}
