// Package llm provides the chat model used by the reasoning loop.
package llm

import "context"

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*MockClient)(nil)
)
