package ai

import (
	"context"
	"sync"
)

// MockResponse is a canned response for MockCompleter.
type MockResponse struct {
	Content string
	Err     error
}

// MockCompleter returns canned responses in FIFO order and records every request.
// Once the queue is drained it reports the provider as unavailable.
type MockCompleter struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     []CompletionRequest
}

// NewMockCompleter creates a MockCompleter with the given canned responses.
func NewMockCompleter(responses ...MockResponse) *MockCompleter {
	return &MockCompleter{responses: responses}
}

// Complete pops the next canned response.
func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	if len(m.responses) == 0 {
		return CompletionResponse{}, &ProviderUnavailableError{}
	}

	next := m.responses[0]
	m.responses = m.responses[1:]
	if next.Err != nil {
		return CompletionResponse{}, next.Err
	}
	return CompletionResponse{Content: next.Content, Model: "mock"}, nil
}

// ModelID returns "mock".
func (m *MockCompleter) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response.
func (m *MockCompleter) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// Calls returns a copy of the recorded requests.
func (m *MockCompleter) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.calls...)
}

// CallCount returns the number of Complete calls made.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
