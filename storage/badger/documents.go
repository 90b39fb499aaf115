package badger

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/storage"
)

// Hybrid scoring weights. The dense leg carries more signal when an
// embedder is available; the lexical leg keeps exact-token recall.
const (
	hybridVectorWeight  = 0.6
	hybridKeywordWeight = 0.4
	verbatimBoost       = 0.3
	snippetWidth        = 160
)

// ErrBackendRequired is returned when a backend is not provided.
var ErrBackendRequired = errors.New("badger backend required")

// DocumentRepository implements storage.DocumentStore for BadgerDB.
// Dense retrieval uses the configured embedder; lexical retrieval uses
// token-overlap scoring with stop-word filtering.
type DocumentRepository struct {
	backend  *Backend
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ storage.DocumentStore = (*DocumentRepository)(nil)

// Option configures a DocumentRepository.
type Option func(*DocumentRepository) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *DocumentRepository) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewDocumentRepository creates a document store on top of an open backend.
// The embedder may be nil; vector search mode then returns an error and
// hybrid mode degrades to keyword matching.
//
// Returns storage.DocumentStore interface to enforce abstraction.
func NewDocumentRepository(backend *Backend, embedder ai.Embedder, opts ...Option) (storage.DocumentStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	r := &DocumentRepository{
		backend:  backend,
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// NewDocumentStore opens a BadgerDB database at the given path and returns a
// document store that owns the backend.
func NewDocumentStore(filePath string, embedder ai.Embedder, opts ...Option) (storage.DocumentStore, error) {
	backend, err := OpenBackend(filePath, false)
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

// Close closes the underlying backend.
func (r *DocumentRepository) Close() error {
	return r.backend.Close()
}

// AddDocument stores a document, assigning a content-based ID and embedding
// vector as needed. The passed-in document is updated in place and returned.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if doc.Id == 0 {
		doc.Id = core.IDFromContent(doc.Content)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if r.embedder != nil && len(doc.Vector) == 0 {
		vector, err := r.embedder.EmbedText(ctx, doc.Content)
		if err != nil {
			// Store without a vector rather than losing the document;
			// lexical retrieval still covers it.
			r.logger.Warn("failed to embed document, storing without vector", "id", doc.Id, "err", err)
		} else {
			doc.Vector = vector
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.Id)
		if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
			return err
		}

		for _, tag := range doc.Tags {
			tagKey := makeDocumentTagKey(tag, doc.Id)
			if err := tx.Set(tagKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// AddNote stores a user note. The title is derived from the first line of
// content and the path is recorded as the note's source.
func (r *DocumentRepository) AddNote(ctx context.Context, content, path string) (*core.Document, error) {
	title := strings.TrimSpace(content)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}

	note := &core.Document{
		Title:   title,
		Content: content,
		Type:    core.DocTypeNote,
		Source:  path,
	}
	return r.AddDocument(ctx, note)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var doc *core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		doc, err = r.readDocument(tx, makeDocumentKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// ListDocuments retrieves documents matching the filter, most recent first.
// When tags are given, the tag index narrows the scan to matching documents.
func (r *DocumentRepository) ListDocuments(ctx context.Context, filter storage.Filter) ([]*core.Document, error) {
	var docs []*core.Document

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if len(filter.Tags) > 0 {
			ids, err := r.collectTaggedIDs(tx, filter.Tags)
			if err != nil {
				return err
			}
			for id := range ids {
				doc, err := r.readDocument(tx, makeDocumentKey(id))
				if err != nil {
					return err
				}
				if doc != nil {
					docs = append(docs, doc)
				}
			}
			return nil
		}

		return r.scanDocuments(tx, func(doc *core.Document) {
			docs = append(docs, doc)
		})
	}, false)
	if err != nil {
		return nil, err
	}

	filtered := docs[:0]
	for _, doc := range docs {
		if filter.Type != 0 && doc.Type != filter.Type {
			continue
		}
		if filter.Language != "" && doc.Language != filter.Language {
			continue
		}
		filtered = append(filtered, doc)
	}

	slices.SortFunc(filtered, func(a, b *core.Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}
	return filtered, nil
}

// DeleteDocument removes a document and its tag index entries.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(key); err != nil {
			return err
		}
		for _, tag := range doc.Tags {
			if err := tx.Delete(makeDocumentTagKey(tag, id)); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, true)
}

// GetDocumentCount returns the number of stored documents.
func (r *DocumentRepository) GetDocumentCount(ctx context.Context) (int, error) {
	count := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SearchSimilarDocuments retrieves up to k documents matching the query.
// Hybrid mode blends dense cosine similarity with lexical token overlap;
// documents containing every query token get a verbatim-match boost.
func (r *DocumentRepository) SearchSimilarDocuments(ctx context.Context, query string, k int, mode core.SearchMode) ([]storage.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, storage.ErrInvalidQuery
	}
	if k <= 0 {
		k = 10
	}
	if mode == "" {
		mode = core.SearchModeHybrid
	}

	var queryVec []float32
	if mode == core.SearchModeVector || mode == core.SearchModeHybrid {
		if r.embedder == nil {
			if mode == core.SearchModeVector {
				return nil, storage.ErrEmbedderRequired
			}
			r.logger.Warn("no embedder configured, hybrid search degrades to keyword matching")
		} else {
			vector, err := r.embedder.EmbedText(ctx, query)
			if err != nil {
				if mode == core.SearchModeVector {
					return nil, err
				}
				r.logger.Warn("query embedding failed, hybrid search degrades to keyword matching", "err", err)
			} else {
				queryVec = vector
			}
		}
	}

	queryWords := tokenizeAndFilter(query)

	var hits []storage.Hit
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return r.scanDocuments(tx, func(doc *core.Document) {
			docWords := wordSet(doc.Title + " " + doc.Content)
			lexical := keywordScore(docWords, queryWords)

			var dense float64
			if len(queryVec) > 0 && len(doc.Vector) > 0 {
				dense = cosineSimilarity(queryVec, doc.Vector)
			}

			var score float64
			switch mode {
			case core.SearchModeFulltext:
				score = lexical
			case core.SearchModeVector:
				score = dense
			default:
				if len(queryVec) == 0 {
					score = lexical
				} else {
					score = hybridVectorWeight*dense + hybridKeywordWeight*lexical
				}
			}

			if mode != core.SearchModeVector && containsAllQueryWords(docWords, queryWords) {
				score += verbatimBoost
			}

			if score <= 0 {
				return
			}

			hits = append(hits, storage.Hit{
				Document: doc,
				Score:    score,
				Snippet:  makeSnippet(doc.Content, queryWords, snippetWidth),
			})
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by score descending, stable so equal scores keep scan order
	slices.SortStableFunc(hits, func(a, b storage.Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// readDocument reads and unmarshals a document, returning nil when the key
// does not exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// scanDocuments iterates all stored documents, invoking fn for each.
func (r *DocumentRepository) scanDocuments(tx *badger.Txn, fn func(doc *core.Document)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(documentPrefix + ":")
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		var doc *core.Document
		err := iter.Item().Value(func(val []byte) error {
			var err error
			doc, err = storage.UnmarshalDocument(val)
			return err
		})
		if err != nil {
			return err
		}
		if doc != nil {
			fn(doc)
		}
	}
	return nil
}

// collectTaggedIDs gathers the union of document IDs carrying any of the tags.
func (r *DocumentRepository) collectTaggedIDs(tx *badger.Txn, tags []string) (map[core.ID]bool, error) {
	ids := make(map[core.ID]bool)

	for _, tag := range tags {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialDocumentTagKey(tag)
		iter := tx.NewIterator(opts)

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				iter.Close()
				return nil, err
			}
			ids[id] = true
		}
		iter.Close()
	}

	return ids, nil
}

// cosineSimilarity calculates the cosine of the angle between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
