package badger

import (
	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/storage"
)

// NewMemoryStore creates an in-memory document store, primarily for tests.
// Closing the store closes its backend.
func NewMemoryStore(embedder ai.Embedder, opts ...Option) (storage.DocumentStore, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	store, err := NewDocumentRepository(backend, embedder, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return store, nil
}
