package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/neurorouter"
)

// ClientConfig holds HTTP backend parameters.
type ClientConfig struct {
	APIURL    string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// MaxRetries bounds retry on transient failures. Authentication
	// failures are never retried.
	MaxRetries int
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	cfg  ClientConfig
	http *http.Client
}

// NewHTTPClient creates a client with defaults filled in.
func NewHTTPClient(cfg ClientConfig) *HTTPClient {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// wire types for the OpenAI-compatible request/response shapes.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type wireResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat implements Client.
func (c *HTTPClient) Chat(ctx context.Context, system string, history []Message, tools []ToolDef) (*Response, error) {
	msgs := buildMessages(system, history)
	return c.complete(ctx, msgs, tools)
}

// ContinueWithToolResults implements Client. Tool results are appended
// as tool-role messages after the assistant turn that requested them.
func (c *HTTPClient) ContinueWithToolResults(ctx context.Context, system string, history []Message, tools []ToolDef, results []ToolResult) (*Response, error) {
	msgs := buildMessages(system, history)
	for _, r := range results {
		content := r.Content
		if r.IsError {
			content = "Error: " + content
		}
		msgs = append(msgs, wireMessage{
			Role:       "tool",
			ToolCallID: r.CallID,
			Content:    content,
		})
	}
	return c.complete(ctx, msgs, tools)
}

func buildMessages(system string, history []Message) []wireMessage {
	msgs := make([]wireMessage, 0, len(history)+1)
	if system != "" {
		msgs = append(msgs, wireMessage{Role: "system", Content: system})
	}
	for _, m := range history {
		msgs = append(msgs, wireMessage{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// complete performs the HTTP call with bounded retry and increasing
// backoff. HTTP 401/403 fails immediately with ErrAuth; HTTP 429
// surfaces as neurorouter.ErrRateLimited so callers can defer work.
func (c *HTTPClient) complete(ctx context.Context, msgs []wireMessage, tools []ToolDef) (*Response, error) {
	payload := map[string]any{
		"model":      c.cfg.Model,
		"messages":   msgs,
		"max_tokens": c.cfg.MaxTokens,
	}
	if len(tools) > 0 {
		payload["tools"] = buildTools(tools)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, ErrAuth) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("llm: request failed after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

func (c *HTTPClient) doOnce(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP 429", neurorouter.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil || len(wire.Choices) == 0 {
		return nil, fmt.Errorf("llm: empty response")
	}

	choice := wire.Choices[0]
	out := &Response{
		Text:         choice.Message.Content,
		StopReason:   choice.FinishReason,
		InputTokens:  wire.Usage.PromptTokens,
		OutputTokens: wire.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		call := ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Args); err != nil {
				return nil, fmt.Errorf("llm: parse tool arguments: %w", err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

func buildTools(tools []ToolDef) []wireTool {
	out := make([]wireTool, len(tools))
	for i, t := range tools {
		out[i].Type = "function"
		out[i].Function.Name = t.Name
		out[i].Function.Description = t.Description
		out[i].Function.Parameters = t.Schema
	}
	return out
}
