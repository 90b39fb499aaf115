package mock

import (
	"context"
	"fmt"

	"github.com/poiesic/lokalrag/ai"
)

// MockGenerator is a test double for ai.AnswerGenerator.
// It allows custom behavior injection via function fields.
type MockGenerator struct {
	// GenerateAnswerFunc is called by GenerateAnswer if set.
	// If nil, uses default deterministic behavior.
	GenerateAnswerFunc func(ctx context.Context, query string, docs []ai.ContextDocument, history []ai.Message) (string, error)

	callCount int

	// LastHistory records the history passed to the most recent call,
	// for test assertions on multi-turn threading.
	LastHistory []ai.Message
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns a canned answer describing the call, or delegates to
// the injected function.
func (m *MockGenerator) GenerateAnswer(ctx context.Context, query string, docs []ai.ContextDocument, history []ai.Message) (string, error) {
	m.callCount++
	m.LastHistory = history

	if m.GenerateAnswerFunc != nil {
		return m.GenerateAnswerFunc(ctx, query, docs, history)
	}

	return fmt.Sprintf("answer to %q based on %d context documents", query, len(docs)), nil
}

// Provider returns the mock provider identifier.
func (m *MockGenerator) Provider() string {
	return "mock"
}

// CallCount returns the number of times GenerateAnswer was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.GenerateAnswerFunc = nil
	m.LastHistory = nil
}
