package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/navigator/internal/config"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "secret", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content())
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "gpt"})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.False(t, se.Temporary())
	assert.Contains(t, se.Error(), "bad")
}

// scripted returns canned replies and records each request.
type scripted struct {
	replies  []string
	errs     []error
	requests []*ChatCompletionRequest
}

func (s *scripted) CreateChatCompletion(_ context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	text := ""
	if i < len(s.replies) {
		text = s.replies[i]
	}
	return &ChatCompletionResponse{Choices: []Choice{{Message: &ChatMessage{Role: "assistant", Content: text}}}}, nil
}

func testPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Millisecond, RetryTemperature: 0.3}
}

func TestModelDefaults(t *testing.T) {
	s := &scripted{replies: []string{"ok"}}
	m := NewModel(s, Options{Model: "gpt"}, zerolog.Nop())

	out, err := m.Complete(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	req := s.requests[0]
	assert.Equal(t, 0.7, *req.Temperature)
	assert.Equal(t, 2000, *req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
}

func TestModelRetriesEmptyCompletion(t *testing.T) {
	s := &scripted{replies: []string{"  ", "answer"}}
	m := NewModel(s, Options{Retry: testPolicy()}, zerolog.Nop())

	out, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)

	require.Len(t, s.requests, 2)
	retry := s.requests[1]
	assert.Equal(t, 0.3, *retry.Temperature)
	assert.Equal(t, Reinforcement, retry.Messages[len(retry.Messages)-1].Content)
}

func TestModelRetriesTemporaryErrors(t *testing.T) {
	s := &scripted{
		errs:    []error{&StatusError{StatusCode: 503, Message: "busy"}, errors.New("connection reset")},
		replies: []string{"", "", "third time"},
	}
	m := NewModel(s, Options{Retry: testPolicy()}, zerolog.Nop())

	out, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "q"}})
	require.NoError(t, err)
	assert.Equal(t, "third time", out)
	assert.Len(t, s.requests, 3)
}

func TestModelStopsOnPermanentError(t *testing.T) {
	s := &scripted{errs: []error{&StatusError{StatusCode: 401, Message: "nope"}}}
	m := NewModel(s, Options{Retry: testPolicy()}, zerolog.Nop())

	_, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "q"}})
	require.Error(t, err)
	assert.Len(t, s.requests, 1)
}

func TestModelExhaustsAttempts(t *testing.T) {
	s := &scripted{}
	m := NewModel(s, Options{Retry: testPolicy()}, zerolog.Nop())

	_, err := m.Generate(context.Background(), []ChatMessage{{Role: "user", Content: "q"}})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Len(t, s.requests, 3)
}

func TestModelHonorsCancellation(t *testing.T) {
	s := &scripted{errs: []error{errors.New("flaky")}}
	m := NewModel(s, Options{Retry: RetryPolicy{Attempts: 3, Backoff: time.Hour}}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Generate(ctx, []ChatMessage{{Role: "user", Content: "q"}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	react := ChatMessage{Role: "system", Content: "Thought: ...\nAction: ...\nAction Input: ..."}

	reply := func(msgs ...ChatMessage) string {
		resp, err := m.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Messages: msgs})
		require.NoError(t, err)
		return resp.Content()
	}

	out := reply(react, ChatMessage{Role: "user", Content: "Question: cheap flights from Mumbai to Delhi"})
	assert.Contains(t, out, "Action: intelligent_flight_search")
	var input map[string]string
	require.NoError(t, json.Unmarshal([]byte(out[len("Thought: The user wants flights, I will search for them.\nAction: intelligent_flight_search\nAction Input: "):]), &input))
	assert.Equal(t, "cheap flights from Mumbai to Delhi", input["query"])

	out = reply(react, ChatMessage{Role: "user", Content: "Observation: Found 3 flights"})
	assert.Contains(t, out, "Final Answer: Found 3 flights")

	out = reply(react, ChatMessage{Role: "user", Content: "Question: somewhere warm"})
	assert.Contains(t, out, "Final Answer:")
	assert.Contains(t, out, "* Lisbon for")

	out = reply(ChatMessage{Role: "user", Content: "Return a JSON array of suggestions"})
	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &raw))
	assert.Len(t, raw, 2)

	assert.Contains(t, reply(ChatMessage{Role: "user", Content: "plan Rome"}), "[MOCK]")
}

func TestNewFromConfig(t *testing.T) {
	assert.Nil(t, NewFromConfig(config.LLMConfig{}, zerolog.Nop()))

	m := NewFromConfig(config.LLMConfig{Mode: "mock"}, zerolog.Nop())
	require.NotNil(t, m)
	_, ok := m.client.(*MockClient)
	assert.True(t, ok)
	assert.Equal(t, DefaultRetryPolicy, m.opts.Retry)

	m = NewFromConfig(config.LLMConfig{BaseURL: "http://localhost:4000", Retry: config.RetryConfig{Attempts: 2}}, zerolog.Nop())
	require.NotNil(t, m)
	_, ok = m.client.(*Client)
	assert.True(t, ok)
	assert.Equal(t, 2, m.opts.Retry.Attempts)
}
