// Package model defines the minimal language-model contract the orchestration
// engine and extraction tools depend on, plus a deterministic MockModel for
// tests and local development. Provider adapters live in sub-packages
// (anthropic, openai) and are selected by configuration, never by type
// inspection at call sites.
package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request captures one normalized completion request. The engine only needs
// plain text generation: prompts ask for strict JSON where structure matters
// and callers parse defensively.
type Request struct {
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int64   `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completed model output.
type Response struct {
	Text  string      `json:"text"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// Model is the minimal interface required to drive planning, extraction and
// answer generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are registered against prompt substrings; the first registered
// substring contained in the request prompt wins. Unmatched prompts produce a
// deterministic echo response.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	matchers  []mockMatcher
	failWith  error
	callCount int
}

type mockMatcher struct {
	substr   string
	response string
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{info: Info{Name: "mock", Provider: "mock"}}
}

// AddResponse registers a canned completion returned for any prompt
// containing substr. Registration order decides precedence.
func (m *MockModel) AddResponse(substr, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchers = append(m.matchers, mockMatcher{substr: substr, response: response})
}

// FailWith makes every subsequent Generate call return err. Pass nil to
// restore normal operation.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// CallCount returns the number of Generate invocations observed.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, matcher := range m.matchers {
		if strings.Contains(req.Prompt, matcher.substr) {
			return &Response{Text: matcher.response}, nil
		}
	}
	return &Response{Text: fmt.Sprintf("Mock response to: %s", req.Prompt)}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
