package llm

import "context"

// Client is the interface the turn executor talks to.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
