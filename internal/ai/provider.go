// Package ai provides the provider abstraction and the OpenAI-compatible
// streaming client pagemate uses to generate answers about page content.
package ai

import "context"

// Message roles in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Provider is the interface any completion backend must implement.
// This abstraction keeps the session logic independent of the wire
// protocol, so test doubles can stand in for the real endpoint.
type Provider interface {
	// CompleteStream sends messages and returns a channel that emits tokens
	// as they arrive. Configuration and request-phase failures (bad settings,
	// unreachable host, non-2xx status) are returned synchronously before any
	// channel is handed out; mid-stream failures arrive as a StreamDelta with
	// Err set. The channel is closed when the response is complete, and the
	// caller must drain it.
	CompleteStream(ctx context.Context, messages []Message) (<-chan StreamDelta, error)
}
