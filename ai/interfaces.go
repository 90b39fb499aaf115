package ai

import (
	"context"

	"github.com/poiesic/lokalrag/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Message is a single conversation-history entry passed to the language model.
type Message struct {
	Role    core.Role
	Content string
}

// ContextDocument is a retrieved document handed to the language model as
// grounding context for answer generation.
type ContextDocument struct {
	Id      core.ID
	Title   string
	Content string
	Source  string
	Tags    []string
	Type    core.DocType
}

// AnswerGenerator produces answers grounded in retrieved context documents.
// Implementations must be thread-safe for concurrent use.
type AnswerGenerator interface {
	// GenerateAnswer answers the query using the given context documents and
	// prior conversation history. History may be nil for single-turn use.
	// Returns an error if the language model call fails; callers are expected
	// to contain the failure rather than propagate it to users.
	GenerateAnswer(ctx context.Context, query string, docs []ContextDocument, history []Message) (string, error)

	// Provider returns a short identifier of the backing provider for
	// response metadata (e.g. "ollama", "openai").
	Provider() string
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and AnswerGenerator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the answer generation service.
	// The returned AnswerGenerator is safe for concurrent use.
	Generator() AnswerGenerator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
