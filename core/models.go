package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DocType classifies a stored document.
type DocType int

const (
	// DocTypeDocument represents an ingested document (PDF, web page, etc).
	DocTypeDocument DocType = iota + 1
	// DocTypeNote represents a user-created note.
	DocTypeNote
)

// String returns the wire/display name of the document type.
func (t DocType) String() string {
	switch t {
	case DocTypeNote:
		return "note"
	default:
		return "document"
	}
}

// ParseDocType maps a wire/display name back to a DocType.
// Unknown names map to DocTypeDocument.
func ParseDocType(s string) DocType {
	if s == "note" {
		return DocTypeNote
	}
	return DocTypeDocument
}

// SearchMode selects the Stage-1 retrieval strategy.
type SearchMode string

const (
	// SearchModeHybrid combines lexical and dense retrieval signals.
	SearchModeHybrid SearchMode = "hybrid"
	// SearchModeVector uses dense embedding similarity only.
	SearchModeVector SearchMode = "vector"
	// SearchModeFulltext uses lexical keyword matching only.
	SearchModeFulltext SearchMode = "fulltext"
)

// Document represents an entry in the knowledge base.
// Immutable once stored; the Vector is populated at ingestion time.
type Document struct {
	Id        ID
	Title     string
	Content   string
	Type      DocType
	Tags      []string
	Language  string
	CreatedAt time.Time
	Source    string
	Vector    []float32 // Embedding vector for dense retrieval
}

// Candidate is a Stage-1 retrieval result: a document plus its retrieval score.
// Candidates are immutable once produced by the storage service.
type Candidate struct {
	Document    *Document
	Stage1Score float64
	Snippet     string // Optional context snippet around the best match
}

// RankedResult is a final pipeline result derived from a Candidate.
// Never mutated after construction.
type RankedResult struct {
	Candidate   *Candidate
	Score       float64 // Stage-2 score when reranked, Stage-1 score otherwise
	Reranked    bool
	Stage1Score float64
	Stage2Score float64 // Valid only when Reranked is true
}

// SearchInfo describes how a search was executed.
type SearchInfo struct {
	Query            string
	Mode             SearchMode
	Stage1Candidates int
	Stage2Reranked   int
	TotalReturned    int
	RerankEnabled    bool
	SearchTimeMs     float64
	Stage1TimeMs     float64
	Stage2TimeMs     float64
	Error            string // Set when Stage-1 retrieval failed
}

// SearchResponse is the result of a two-stage pipeline search.
// Results are ordered by descending score.
type SearchResponse struct {
	Results []*RankedResult
	Info    SearchInfo
}

// Role identifies the author of a conversation turn.
type Role int

const (
	// RoleUser represents the human side of the conversation.
	RoleUser Role = iota + 1
	// RoleAssistant represents the model side of the conversation.
	RoleAssistant
)

// String returns the wire name of the role.
func (r Role) String() string {
	if r == RoleAssistant {
		return "assistant"
	}
	return "user"
}

// ConversationTurn is a single entry in a session history.
// Turns are always created in user/assistant pairs sharing a timestamp.
type ConversationTurn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}
