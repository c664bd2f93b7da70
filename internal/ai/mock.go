package ai

import (
	"context"
	"sync"
)

// MockProvider is a test provider that records calls and returns configurable responses
type MockProvider struct {
	name      string
	responses []MockResponse
	calls     []MockCall
	mu        sync.Mutex
	respIndex int
}

// MockResponse represents a pre-configured response for the mock provider
type MockResponse struct {
	Content string
	Error   error
}

// MockCall records information about a call to Generate
type MockCall struct {
	Request *GenerateRequest
}

// NewMockProvider creates a new mock provider for testing
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return m.name
}

// Generate records the call and returns the next configured response
func (m *MockProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Request: req})

	if m.respIndex < len(m.responses) {
		resp := m.responses[m.respIndex]
		m.respIndex++

		if resp.Error != nil {
			return nil, resp.Error
		}
		return &GenerateResponse{Content: resp.Content}, nil
	}

	// Default response when no responses configured
	return &GenerateResponse{Content: "Mock response"}, nil
}

// AddResponse adds a response to the queue
func (m *MockProvider) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Content: content})
}

// AddErrorResponse adds an error response to the queue
func (m *MockProvider) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Error: err})
}

// CallCount returns the number of times Generate was called
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call, or nil if no calls have been made
func (m *MockProvider) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return &m.calls[len(m.calls)-1]
}

// Reset clears all recorded calls and responses
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = nil
	m.respIndex = 0
}
