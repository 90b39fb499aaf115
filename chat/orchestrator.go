// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/search"
)

// Default orchestrator limits.
const (
	DefaultContextInitialLimit = 25
	DefaultContextTopK         = 5
	DefaultLLMTimeout          = 60 * time.Second
)

// Request carries the parameters of a single chat call.
type Request struct {
	Query string

	// SessionID selects the conversation for ChatWithHistory.
	// Empty means a fresh session.
	SessionID string

	// FilterTags restricts retrieved context to matching documents.
	FilterTags []string

	// EnableRerank requests Stage-2 re-ranking of the retrieved context.
	EnableRerank bool

	// IncludeSources adds source citations to the result.
	IncludeSources bool
}

// NewChatRequest returns a Request with re-ranking and source citations
// enabled.
func NewChatRequest(query string) Request {
	return Request{
		Query:          query,
		EnableRerank:   true,
		IncludeSources: true,
	}
}

// Source is a citation for one context document used in an answer.
type Source struct {
	Id             core.ID      `json:"id"`
	Title          string       `json:"title"`
	Type           core.DocType `json:"type"`
	RelevanceScore float64      `json:"relevance_score"`
	Reranked       bool         `json:"reranked"`
	Excerpt        string       `json:"excerpt"`
}

// Metadata describes how a chat result was produced.
type Metadata struct {
	ContextItemsUsed       int     `json:"context_items_used"`
	ContextReranked        bool    `json:"context_reranked"`
	TotalContextChars      int     `json:"total_context_chars"`
	LLMProvider            string  `json:"llm_provider,omitempty"`
	ResponseTimeMs         float64 `json:"response_time_ms"`
	ContextRetrievalTimeMs float64 `json:"context_retrieval_time_ms"`
	LLMTimeMs              float64 `json:"llm_time_ms"`
	TurnNumber             int     `json:"turn_number,omitempty"`
	Error                  string  `json:"error,omitempty"`
}

// Result is the outcome of a chat call. Failures inside retrieval or
// generation surface as an apologetic Response with Metadata.Error set;
// a Result is always returned.
type Result struct {
	Response  string                  `json:"response"`
	Sources   []Source                `json:"sources"`
	Metadata  Metadata                `json:"metadata"`
	SessionID string                  `json:"session_id,omitempty"`
	History   []core.ConversationTurn `json:"conversation_history,omitempty"`
}

// Chat orchestrates retrieval-grounded answer generation with optional
// multi-turn session history.
type Chat struct {
	pipeline  *search.Pipeline
	generator ai.AnswerGenerator
	registry  *Registry
	logger    *slog.Logger

	contextInitialLimit int
	contextTopK         int
	llmTimeout          time.Duration
}

// Option configures a Chat.
type Option func(*Chat) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chat) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithContextLimits sets the Stage-1 candidate count and the number of
// context documents handed to the language model.
func WithContextLimits(initialLimit, topK int) Option {
	return func(c *Chat) error {
		if initialLimit <= 0 || topK <= 0 {
			return fmt.Errorf("context limits must be positive, got %d/%d", initialLimit, topK)
		}
		c.contextInitialLimit = initialLimit
		c.contextTopK = topK
		return nil
	}
}

// WithLLMTimeout bounds the answer generation call.
// Default is DefaultLLMTimeout.
func WithLLMTimeout(timeout time.Duration) Option {
	return func(c *Chat) error {
		if timeout <= 0 {
			return fmt.Errorf("llm timeout must be positive, got %s", timeout)
		}
		c.llmTimeout = timeout
		return nil
	}
}

// NewChat creates a chat orchestrator. A nil registry gets a fresh one
// with default history limits.
func NewChat(pipeline *search.Pipeline, generator ai.AnswerGenerator, registry *Registry, opts ...Option) (*Chat, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if registry == nil {
		registry = NewRegistry(DefaultMaxHistoryTurns)
	}

	c := &Chat{
		pipeline:            pipeline,
		generator:           generator,
		registry:            registry,
		logger:              slog.Default(),
		contextInitialLimit: DefaultContextInitialLimit,
		contextTopK:         DefaultContextTopK,
		llmTimeout:          DefaultLLMTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry returns the session registry.
func (c *Chat) Registry() *Registry {
	return c.registry
}

// ChatWithContext answers a query using retrieved context and the provided
// conversation history. Retrieval and generation failures produce degraded
// results instead of errors.
func (c *Chat) ChatWithContext(ctx context.Context, req Request, history []ai.Message) *Result {
	start := time.Now()

	c.logger.Debug("chat query", "query", req.Query, "rerank", req.EnableRerank)

	contextStart := time.Now()
	searchReq := search.Request{
		Query:         req.Query,
		Mode:          core.SearchModeHybrid,
		InitialLimit:  c.contextInitialLimit,
		RerankTopN:    c.contextTopK,
		EnableRerank:  req.EnableRerank,
		FilterTags:    req.FilterTags,
		IncludeScores: true,
	}
	searchResp := c.pipeline.Search(ctx, searchReq)
	if searchResp.Info.Error != "" {
		c.logger.Error("context retrieval failed", "err", searchResp.Info.Error)
		return &Result{
			Response: fmt.Sprintf("Sorry, I encountered an error retrieving context: %s", searchResp.Info.Error),
			Sources:  []Source{},
			Metadata: Metadata{Error: searchResp.Info.Error},
		}
	}
	contextTime := time.Since(contextStart)

	docs := make([]ai.ContextDocument, len(searchResp.Results))
	totalChars := 0
	for i, result := range searchResp.Results {
		doc := result.Candidate.Document
		docs[i] = ai.ContextDocument{
			Id:      doc.Id,
			Title:   doc.Title,
			Content: doc.Content,
			Source:  doc.Source,
			Tags:    doc.Tags,
			Type:    doc.Type,
		}
		totalChars += len(doc.Content)
	}

	c.logger.Debug("context retrieved",
		"documents", len(docs),
		"elapsed_ms", contextTime.Milliseconds())

	llmStart := time.Now()
	llmCtx, cancel := context.WithTimeout(ctx, c.llmTimeout)
	defer cancel()

	answer, err := c.generator.GenerateAnswer(llmCtx, req.Query, docs, history)
	if err != nil {
		c.logger.Error("answer generation failed", "err", err)
		return &Result{
			Response: fmt.Sprintf("Sorry, I encountered an error generating a response: %s", err),
			Sources:  []Source{},
			Metadata: Metadata{
				ContextItemsUsed: len(docs),
				ContextReranked:  req.EnableRerank,
				Error:            err.Error(),
			},
		}
	}
	llmTime := time.Since(llmStart)

	sources := []Source{}
	if req.IncludeSources {
		for _, result := range searchResp.Results {
			doc := result.Candidate.Document
			sources = append(sources, Source{
				Id:             doc.Id,
				Title:          doc.Title,
				Type:           doc.Type,
				RelevanceScore: result.Score,
				Reranked:       result.Reranked,
				Excerpt:        excerpt(doc.Content, 200),
			})
		}
	}

	totalTime := time.Since(start)
	c.logger.Info("chat completed",
		"context_items", len(docs),
		"elapsed_ms", totalTime.Milliseconds())

	return &Result{
		Response: answer,
		Sources:  sources,
		Metadata: Metadata{
			ContextItemsUsed:       len(docs),
			ContextReranked:        req.EnableRerank,
			TotalContextChars:      totalChars,
			LLMProvider:            c.generator.Provider(),
			ResponseTimeMs:         float64(totalTime.Microseconds()) / 1000,
			ContextRetrievalTimeMs: float64(contextTime.Microseconds()) / 1000,
			LLMTimeMs:              float64(llmTime.Microseconds()) / 1000,
		},
	}
}

// ChatWithHistory resolves the request's session, answers with that
// session's history as conversational context, and records the turn on
// success. The result carries the session id, a history snapshot and the
// turn number.
func (c *Chat) ChatWithHistory(ctx context.Context, req Request) *Result {
	session := c.registry.GetOrCreate(req.SessionID)

	result := c.ChatWithContext(ctx, req, session.HistoryForLLM())

	// Degraded answers are not recorded; the next attempt starts from the
	// same history.
	if result.Metadata.Error == "" {
		session.AddTurn(req.Query, result.Response)
	}

	result.SessionID = session.ID()
	result.History = session.History()
	result.Metadata.TurnNumber = session.Info().TurnCount
	return result
}

// excerpt returns the first maxRunes runes of s.
func excerpt(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}
