package provider

import "context"

// CompletionClient defines the interface for completion provider operations.
type CompletionClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// CreateChatCompletionStream sends a streaming chat completion request.
	// The callback is called for each chunk received, in order.
	CreateChatCompletionStream(ctx context.Context, req *ChatRequest, callback StreamCallback) (*Usage, error)
}

// Ensure Client implements CompletionClient.
var _ CompletionClient = (*Client)(nil)
