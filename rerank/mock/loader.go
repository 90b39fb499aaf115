// Package mock provides mock cross-encoder implementations for testing.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/lokalrag/rerank"
)

// MockLoader implements rerank.ModelLoader with configurable behavior.
type MockLoader struct {
	mu sync.Mutex

	// LoadFunc allows overriding the load behavior. When nil, a
	// MockEncoder with default scoring is returned.
	LoadFunc func(ctx context.Context, model, device string) (rerank.CrossEncoder, error)

	loadCount   int
	lastModel   string
	lastDevice  string
	lastEncoder *MockEncoder
}

// NewMockLoader creates a mock loader with default behavior.
func NewMockLoader() *MockLoader {
	return &MockLoader{}
}

func (l *MockLoader) Load(ctx context.Context, model, device string) (rerank.CrossEncoder, error) {
	l.mu.Lock()
	l.loadCount++
	l.lastModel = model
	l.lastDevice = device
	l.mu.Unlock()

	if l.LoadFunc != nil {
		return l.LoadFunc(ctx, model, device)
	}

	encoder := NewMockEncoder()
	l.mu.Lock()
	l.lastEncoder = encoder
	l.mu.Unlock()
	return encoder, nil
}

// LoadCount returns how many times Load was called.
func (l *MockLoader) LoadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadCount
}

// LastDevice returns the device passed to the most recent Load call.
func (l *MockLoader) LastDevice() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastDevice
}

// LastEncoder returns the encoder created by the most recent default Load.
func (l *MockLoader) LastEncoder() *MockEncoder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastEncoder
}

// MockEncoder implements rerank.CrossEncoder with configurable behavior.
// The default scoring counts query tokens present in the document text,
// which is deterministic and order-sensitive enough for ranking tests.
type MockEncoder struct {
	mu sync.Mutex

	// PredictFunc allows overriding the scoring behavior.
	PredictFunc func(ctx context.Context, pairs []rerank.Pair, batchSize int) ([]float64, error)

	predictCount int
	released     bool
}

// NewMockEncoder creates a mock encoder with default scoring.
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{}
}

func (e *MockEncoder) Predict(ctx context.Context, pairs []rerank.Pair, batchSize int) ([]float64, error) {
	e.mu.Lock()
	e.predictCount++
	e.mu.Unlock()

	if e.PredictFunc != nil {
		return e.PredictFunc(ctx, pairs, batchSize)
	}

	scores := make([]float64, len(pairs))
	for i, pair := range pairs {
		scores[i] = tokenOverlap(pair.Query, pair.Text)
	}
	return scores, nil
}

func (e *MockEncoder) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
}

// PredictCount returns how many times Predict was called.
func (e *MockEncoder) PredictCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.predictCount
}

// Released reports whether Release was called.
func (e *MockEncoder) Released() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

func tokenOverlap(query, text string) float64 {
	textWords := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		textWords[w] = true
	}

	overlap := 0.0
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if textWords[w] {
			overlap++
		}
	}
	return overlap
}
