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

package search

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/rerank"
	"github.com/poiesic/lokalrag/storage"
)

// Default retrieval limits.
const (
	DefaultInitialLimit = 25
	DefaultTopN         = 5
)

// Reranker re-scores Stage-1 candidates. *rerank.ReRanker satisfies it.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*rerank.Document, topN int) ([]*rerank.Document, error)
}

// Request carries the parameters of a single pipeline search.
type Request struct {
	Query string

	// Mode selects the Stage-1 retrieval strategy. Default is hybrid.
	Mode core.SearchMode

	// InitialLimit is the Stage-1 candidate count when re-ranking runs.
	InitialLimit int

	// RerankTopN is the number of results returned to the caller.
	RerankTopN int

	// EnableRerank requests Stage-2 re-ranking when a reranker is present.
	EnableRerank bool

	// FilterTags keeps only candidates carrying at least one of these tags.
	FilterTags []string

	// FilterType is accepted for interface compatibility but not applied.
	FilterType core.DocType

	// IncludeScores adds per-stage scores and timings to the response.
	IncludeScores bool
}

// NewRequest returns a Request with default limits, hybrid mode and
// re-ranking enabled.
func NewRequest(query string) Request {
	return Request{
		Query:        query,
		Mode:         core.SearchModeHybrid,
		InitialLimit: DefaultInitialLimit,
		RerankTopN:   DefaultTopN,
		EnableRerank: true,
	}
}

// PipelineInfo describes the pipeline's configuration and reranker state.
type PipelineInfo struct {
	RerankerEnabled bool         `json:"reranker_enabled"`
	Reranker        *rerank.Info `json:"reranker,omitempty"`
}

// Pipeline executes two-stage searches: broad Stage-1 retrieval against
// the document store followed by optional cross-encoder re-ranking.
type Pipeline struct {
	store    storage.DocumentStore
	reranker Reranker
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a search pipeline. The reranker may be nil, in
// which case only Stage-1 runs.
func NewPipeline(store storage.DocumentStore, reranker Reranker, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		store:    store,
		reranker: reranker,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	p.logger.Info("search pipeline initialized", "reranker", reranker != nil)
	return p, nil
}

// Search executes a two-stage search. Retrieval failures never propagate:
// the response carries the error in Info.Error with empty results.
func (p *Pipeline) Search(ctx context.Context, req Request) *core.SearchResponse {
	return p.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor executes a search with observation hooks.
// A nil monitor is replaced with a no-op implementation.
func (p *Pipeline) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) *core.SearchResponse {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	totalStart := time.Now()

	if req.Mode == "" {
		req.Mode = core.SearchModeHybrid
	}
	if req.InitialLimit <= 0 {
		req.InitialLimit = DefaultInitialLimit
	}
	if req.RerankTopN <= 0 {
		req.RerankTopN = DefaultTopN
	}

	monitor.Start(req.Query)

	shouldRerank := req.EnableRerank && p.reranker != nil

	// Stage-1 runs on the expanded query for recall; Stage-2 reads the
	// original query, since the cross-encoder expects natural language.
	expandedQuery := ExpandQuery(req.Query)
	if expandedQuery != req.Query {
		p.logger.Debug("query expanded", "query", req.Query, "expanded", expandedQuery)
		monitor.QueryExpanded(req.Query, expandedQuery)
	}

	// Retrieve a broad candidate set only when Stage-2 will narrow it.
	stage1Limit := req.RerankTopN
	if shouldRerank {
		stage1Limit = req.InitialLimit
	}

	stage1Start := time.Now()
	candidates, err := p.executeStage1(ctx, expandedQuery, req.Mode, stage1Limit, req.FilterTags)
	if err != nil {
		p.logger.Error("stage-1 search failed", "err", err)
		return errorResponse(err)
	}
	stage1Time := time.Since(stage1Start)
	monitor.AfterStage1(candidates)

	p.logger.Debug("stage-1 retrieval completed",
		"candidates", len(candidates),
		"elapsed_ms", stage1Time.Milliseconds())

	var stage2Time time.Duration
	var results []*core.RankedResult

	if shouldRerank && len(candidates) > 0 {
		stage2Start := time.Now()

		docs := make([]*rerank.Document, len(candidates))
		for i, c := range candidates {
			text := c.Document.Content
			if text == "" {
				text = c.Document.Title
			}
			docs[i] = &rerank.Document{Candidate: c, Text: text}
		}

		reranked, err := p.reranker.Rerank(ctx, req.Query, docs, req.RerankTopN)
		if err != nil {
			p.logger.Error("stage-2 reranking failed, falling back to stage-1 order", "err", err)
			results = rankStage1(candidates, req.RerankTopN)
			shouldRerank = false
		} else {
			stage2Time = time.Since(stage2Start)
			monitor.AfterStage2(reranked)
			results = rankReranked(reranked)
			p.logger.Debug("stage-2 reranking completed",
				"results", len(results),
				"elapsed_ms", stage2Time.Milliseconds())
		}
	} else {
		results = rankStage1(candidates, req.RerankTopN)
	}

	// Final order is strictly descending by score; ties keep their
	// relative Stage-1 order.
	slices.SortStableFunc(results, func(a, b *core.RankedResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	stage2Count := 0
	if shouldRerank {
		stage2Count = len(candidates)
	}

	response := &core.SearchResponse{
		Results: results,
		Info: core.SearchInfo{
			Query:            req.Query,
			Mode:             req.Mode,
			Stage1Candidates: len(candidates),
			Stage2Reranked:   stage2Count,
			TotalReturned:    len(results),
			RerankEnabled:    shouldRerank,
			SearchTimeMs:     float64(time.Since(totalStart).Microseconds()) / 1000,
		},
	}
	if req.IncludeScores {
		response.Info.Stage1TimeMs = float64(stage1Time.Microseconds()) / 1000
		response.Info.Stage2TimeMs = float64(stage2Time.Microseconds()) / 1000
	}

	p.logger.Info("search completed",
		"results", len(results),
		"elapsed_ms", response.Info.SearchTimeMs)

	monitor.Finish(response)
	return response
}

// GetPipelineInfo returns the pipeline configuration and, when the
// reranker exposes state, its info snapshot.
func (p *Pipeline) GetPipelineInfo() PipelineInfo {
	info := PipelineInfo{RerankerEnabled: p.reranker != nil}
	if provider, ok := p.reranker.(interface{ GetInfo() rerank.Info }); ok {
		rinfo := provider.GetInfo()
		info.Reranker = &rinfo
	}
	return info
}

// executeStage1 runs broad retrieval and applies the tag post-filter.
// Filtering happens after the capped retrieval, so the final count can
// come up short of the requested limit.
func (p *Pipeline) executeStage1(ctx context.Context, query string, mode core.SearchMode, limit int, filterTags []string) ([]*core.Candidate, error) {
	hits, err := p.store.SearchSimilarDocuments(ctx, query, limit, mode)
	if err != nil {
		return nil, err
	}

	candidates := make([]*core.Candidate, 0, len(hits))
	for _, hit := range hits {
		if len(filterTags) > 0 && !hasAnyTag(hit.Document.Tags, filterTags) {
			continue
		}
		candidates = append(candidates, &core.Candidate{
			Document:    hit.Document,
			Stage1Score: hit.Score,
			Snippet:     hit.Snippet,
		})
	}
	return candidates, nil
}

func hasAnyTag(docTags, wanted []string) bool {
	for _, tag := range wanted {
		if slices.Contains(docTags, tag) {
			return true
		}
	}
	return false
}

// rankStage1 converts Stage-1 candidates into final results without
// re-ranking, truncated to topN.
func rankStage1(candidates []*core.Candidate, topN int) []*core.RankedResult {
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	results := make([]*core.RankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = &core.RankedResult{
			Candidate:   c,
			Score:       c.Stage1Score,
			Stage1Score: c.Stage1Score,
		}
	}
	return results
}

// rankReranked converts reranker output into final results. Documents the
// reranker returned unscored keep their Stage-1 score.
func rankReranked(docs []*rerank.Document) []*core.RankedResult {
	results := make([]*core.RankedResult, len(docs))
	for i, doc := range docs {
		result := &core.RankedResult{
			Candidate:   doc.Candidate,
			Score:       doc.Candidate.Stage1Score,
			Stage1Score: doc.Candidate.Stage1Score,
		}
		if doc.Reranked {
			result.Score = doc.RerankScore
			result.Reranked = true
			result.Stage2Score = doc.RerankScore
		}
		results[i] = result
	}
	return results
}

func errorResponse(err error) *core.SearchResponse {
	return &core.SearchResponse{
		Results: []*core.RankedResult{},
		Info: core.SearchInfo{
			Error: err.Error(),
		},
	}
}
