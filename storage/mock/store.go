// Package mock provides a mock document store for testing.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/storage"
)

// MockDocumentStore implements storage.DocumentStore with configurable
// behavior. By default documents live in an in-memory map and search
// returns them all with decreasing scores, which is enough for pipeline
// and chat tests that do not care about retrieval quality.
type MockDocumentStore struct {
	mu   sync.Mutex
	docs map[core.ID]*core.Document

	// SearchSimilarDocumentsFunc allows overriding search behavior.
	SearchSimilarDocumentsFunc func(ctx context.Context, query string, k int, mode core.SearchMode) ([]storage.Hit, error)

	searchCount int
	lastQuery   string
	lastK       int
	lastMode    core.SearchMode
}

var _ storage.DocumentStore = (*MockDocumentStore)(nil)

// NewMockDocumentStore creates an empty mock store.
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{docs: make(map[core.ID]*core.Document)}
}

func (m *MockDocumentStore) SearchSimilarDocuments(ctx context.Context, query string, k int, mode core.SearchMode) ([]storage.Hit, error) {
	m.mu.Lock()
	m.searchCount++
	m.lastQuery = query
	m.lastK = k
	m.lastMode = mode
	m.mu.Unlock()

	if m.SearchSimilarDocumentsFunc != nil {
		return m.SearchSimilarDocumentsFunc(ctx, query, k, mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := make([]storage.Hit, 0, len(m.docs))
	score := 1.0
	for _, doc := range m.docs {
		hits = append(hits, storage.Hit{Document: doc, Score: score})
		score *= 0.9
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MockDocumentStore) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if doc.Id == 0 {
		doc.Id = core.IDFromContent(doc.Content)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.Id] = doc
	return doc, nil
}

func (m *MockDocumentStore) AddNote(ctx context.Context, content, path string) (*core.Document, error) {
	return m.AddDocument(ctx, &core.Document{
		Title:   content,
		Content: content,
		Type:    core.DocTypeNote,
		Source:  path,
	})
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) ListDocuments(ctx context.Context, filter storage.Filter) ([]*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var docs []*core.Document
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *MockDocumentStore) DeleteDocument(ctx context.Context, id core.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *MockDocumentStore) GetDocumentCount(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

func (m *MockDocumentStore) Close() error {
	return nil
}

// SearchCount returns how many times SearchSimilarDocuments was called.
func (m *MockDocumentStore) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCount
}

// LastQuery returns the query passed to the most recent search.
func (m *MockDocumentStore) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// LastK returns the limit passed to the most recent search.
func (m *MockDocumentStore) LastK() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastK
}

// LastMode returns the mode passed to the most recent search.
func (m *MockDocumentStore) LastMode() core.SearchMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMode
}
