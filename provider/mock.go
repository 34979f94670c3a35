package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockExchange scripts the outcome of one provider call.
type MockExchange struct {
	Response *ChatResponse
	Chunks   []StreamChunk
	Usage    *Usage
	Err      error
}

// MockClient is a scripted CompletionClient for tests. Each call consumes
// the next exchange; the last exchange repeats once the script runs out.
type MockClient struct {
	mu        sync.Mutex
	Exchanges []MockExchange
	Calls     int
}

// Ensure MockClient implements CompletionClient.
var _ CompletionClient = (*MockClient)(nil)

// NewMockClient creates a mock that replays the given exchanges.
func NewMockClient(exchanges ...MockExchange) *MockClient {
	return &MockClient{Exchanges: exchanges}
}

// TextExchange scripts a plain non-streaming text reply.
func TextExchange(content string) MockExchange {
	return MockExchange{
		Response: &ChatResponse{
			ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
			Object:  "chat.completion",
			Created: time.Now().Unix(),
			Model:   "mock",
			Choices: []Choice{
				{
					Index:        0,
					Message:      &ChatMessage{Role: "assistant", Content: content},
					FinishReason: "stop",
				},
			},
			Usage: &Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
		},
		Chunks: []StreamChunk{
			{
				Model:   "mock",
				Choices: []Choice{{Index: 0, Delta: &ChatMessage{Role: "assistant", Content: content}}},
			},
			{
				Model:   "mock",
				Choices: []Choice{{Index: 0, Delta: &ChatMessage{}, FinishReason: "stop"}},
			},
		},
		Usage: &Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}
}

// ErrorExchange scripts a provider failure.
func ErrorExchange(msg string) MockExchange {
	return MockExchange{Err: fmt.Errorf("%s", msg)}
}

func (m *MockClient) next() MockExchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if len(m.Exchanges) == 0 {
		return TextExchange("ok")
	}
	idx := m.Calls - 1
	if idx >= len(m.Exchanges) {
		idx = len(m.Exchanges) - 1
	}
	return m.Exchanges[idx]
}

// CallCount returns how many times the mock has been invoked.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// CreateChatCompletion replays the next scripted response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ex := m.next()
	if ex.Err != nil {
		return nil, ex.Err
	}
	if ex.Response != nil {
		return ex.Response, nil
	}
	return nil, fmt.Errorf("mock exchange has no response")
}

// CreateChatCompletionStream replays the next scripted chunk sequence.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatRequest, callback StreamCallback) (*Usage, error) {
	ex := m.next()
	if ex.Err != nil {
		return nil, ex.Err
	}
	for i := range ex.Chunks {
		select {
		case <-ctx.Done():
			return ex.Usage, ctx.Err()
		default:
		}
		if err := callback(&ex.Chunks[i]); err != nil {
			return ex.Usage, err
		}
	}
	return ex.Usage, nil
}
