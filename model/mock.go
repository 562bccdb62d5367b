package model

import (
	"context"
	"fmt"
	"sync"
)

// MockModel replays scripted responses in order and records every request it
// receives. When the script runs out it keeps returning the last response,
// which makes open-ended loops easy to test.
type MockModel struct {
	mu        sync.Mutex
	responses []Response
	requests  []Request
	err       error
	calls     int
}

var _ Model = (*MockModel)(nil)

// NewMockModel creates a mock that replays the given responses.
func NewMockModel(responses ...Response) *MockModel {
	return &MockModel{responses: responses}
}

// NewFailingMockModel creates a mock whose Generate always fails with err.
func NewFailingMockModel(err error) *MockModel {
	return &MockModel{err: err}
}

// Generate implements Model.
func (m *MockModel) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("mock model has no scripted responses")
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	resp := m.responses[idx]
	return &resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info {
	return Info{Name: "mock", Provider: "mock", SupportsTools: true}
}

// Calls returns how many times Generate was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns a copy of all recorded requests.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or nil when none were made.
func (m *MockModel) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	req := m.requests[len(m.requests)-1]
	return &req
}
