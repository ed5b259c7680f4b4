package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient answers without a network call. It speaks the reasoning
// protocol when the system prompt asks for it: the first turn calls
// intelligent_flight_search for flight questions and answers directly
// otherwise; after an observation it returns the observation as the final
// answer.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.generateMockResponse(req)

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: &Usage{
			PromptTokens:     m.estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      m.estimateTokens(req) + len(content)/4,
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var system, last string
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			system = msg.Content
		}
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = req.Messages[i].Content
			break
		}
	}

	switch {
	case strings.Contains(last, "JSON array"):
		return mockSuggestions
	case !strings.Contains(system, "Action Input:"):
		if last == "" {
			return "[MOCK] This is a mock response from the LLM client."
		}
		return fmt.Sprintf("[MOCK] Received your message: %q.", truncate(last, 100))
	}

	if idx := strings.LastIndex(last, "Observation:"); idx >= 0 {
		obs := strings.TrimSpace(last[idx+len("Observation:"):])
		return "Thought: I now have the information the user asked for.\nFinal Answer: " + obs
	}
	query := questionOf(last)
	if strings.Contains(strings.ToLower(query), "flight") {
		return fmt.Sprintf("Thought: The user wants flights, I will search for them.\nAction: intelligent_flight_search\nAction Input: {\"query\": %q}", query)
	}
	return "Thought: I can answer directly.\nFinal Answer: Here are two ideas for your trip:\n" +
		"* Lisbon for sunny viewpoints, tram rides and seafood\n" +
		"* Kyoto for temples, gardens and traditional tea houses"
}

// questionOf extracts the user question from a loop prompt.
func questionOf(prompt string) string {
	const marker = "Question:"
	if idx := strings.LastIndex(prompt, marker); idx >= 0 {
		q := prompt[idx+len(marker):]
		if nl := strings.Index(q, "\n"); nl >= 0 {
			q = q[:nl]
		}
		return strings.TrimSpace(q)
	}
	return strings.TrimSpace(prompt)
}

const mockSuggestions = `[
  {"destination": "Lisbon", "description": "Sunny hills, tram rides and seafood.", "best_time_to_visit": "April to October",
   "estimated_budget": "$1,500", "activities": ["Ride tram 28", "Visit Belem Tower"], "duration": 5},
  {"destination": "Kyoto", "description": "Temples, gardens and traditional tea houses.", "best_time_to_visit": "March to May",
   "estimated_budget": "$2,000", "activities": ["Fushimi Inari hike", "Tea ceremony"], "duration": 5}
]`

func (m *MockClient) estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
