// Package llm defines the pluggable text-generation provider: a message
// list plus a system prompt in, a stream of text/reasoning/tool-call
// events out.
package llm

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// EventType classifies streamed provider events.
type EventType string

const (
	// EventText is a chunk of assistant output text.
	EventText EventType = "text"
	// EventReasoning is a chunk of the model's reasoning trace.
	EventReasoning EventType = "reasoning"
	// EventToolCall is a completed tool invocation request.
	EventToolCall EventType = "tool_call"
)

// Event is one streamed provider event.
type Event struct {
	Type      EventType              `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ToolName  string                 `json:"toolName,omitempty"`
	ToolInput map[string]interface{} `json:"toolInput,omitempty"`
}

// StreamFunc receives events as they arrive. Returning an error aborts
// the stream.
type StreamFunc func(Event) error

// Request is a streaming completion request.
type Request struct {
	Messages     []*Message `json:"messages"`
	SystemPrompt string     `json:"systemPrompt,omitempty"`
	Model        string     `json:"model,omitempty"`
	MaxTokens    int        `json:"maxTokens,omitempty"`
}

// Provider is the external text-generation collaborator.
type Provider interface {
	// Stream sends the request and forwards events to fn until the
	// response completes.
	Stream(ctx context.Context, req *Request, fn StreamFunc) error
}
