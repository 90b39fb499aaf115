package storage

import (
	"context"

	"github.com/poiesic/lokalrag/core"
)

// Hit is a single Stage-1 retrieval hit: a document, its retrieval score and
// an optional context snippet around the best match.
type Hit struct {
	Document *core.Document
	Score    float64
	Snippet  string
}

// Filter selects documents for direct metadata lookups.
// Zero-valued fields are ignored.
type Filter struct {
	Type     core.DocType
	Tags     []string // Match documents carrying at least one of these tags
	Language string
	Limit    int
}

// DocumentStore provides storage and retrieval operations for knowledge-base
// documents. Implementations must be thread-safe and support concurrent access.
type DocumentStore interface {
	// SearchSimilarDocuments retrieves up to k documents matching the query
	// under the given search mode, ordered by score (highest first).
	SearchSimilarDocuments(ctx context.Context, query string, k int, mode core.SearchMode) ([]Hit, error)

	// AddDocument stores a document. For documents with ID=0, a content-based
	// ID is generated. Sets CreatedAt if not already set and populates the
	// embedding vector when an embedder is configured.
	// Returns the document with ID, timestamp and vector populated.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// AddNote stores a user note. The note title is derived from the first
	// line of content and the path is recorded as the note's source.
	AddNote(ctx context.Context, content, path string) (*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// ListDocuments retrieves documents matching the filter, most recent first.
	ListDocuments(ctx context.Context, filter Filter) ([]*core.Document, error)

	// DeleteDocument removes a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.ID) error

	// GetDocumentCount returns the number of stored documents.
	GetDocumentCount(ctx context.Context) (int, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
