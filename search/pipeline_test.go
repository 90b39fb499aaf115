package search_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/rerank"
	rerankmock "github.com/poiesic/lokalrag/rerank/mock"
	"github.com/poiesic/lokalrag/search"
	"github.com/poiesic/lokalrag/storage"
	storagemock "github.com/poiesic/lokalrag/storage/mock"
)

func fixedHits(contents ...string) []storage.Hit {
	hits := make([]storage.Hit, len(contents))
	for i, content := range contents {
		hits[i] = storage.Hit{
			Document: &core.Document{
				Id:      core.ID(i + 1),
				Title:   fmt.Sprintf("doc %d", i+1),
				Content: content,
				Type:    core.DocTypeDocument,
			},
			Score: 1.0 - float64(i)*0.05,
		}
	}
	return hits
}

func fixedStore(hits []storage.Hit) *storagemock.MockDocumentStore {
	store := storagemock.NewMockDocumentStore()
	store.SearchSimilarDocumentsFunc = func(ctx context.Context, query string, k int, mode core.SearchMode) ([]storage.Hit, error) {
		if len(hits) > k {
			return hits[:k], nil
		}
		return hits, nil
	}
	return store
}

func newWorkingReranker(t *testing.T) *rerank.ReRanker {
	t.Helper()
	r, err := rerank.New(rerank.DefaultConfig(), rerankmock.NewMockLoader())
	require.NoError(t, err)
	return r
}

type stubReranker struct {
	err       error
	lastQuery string
}

func (s *stubReranker) Rerank(ctx context.Context, query string, docs []*rerank.Document, topN int) ([]*rerank.Document, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	for _, doc := range docs {
		doc.RerankScore = float64(len(doc.Text))
		doc.Reranked = true
	}
	if len(docs) > topN {
		docs = docs[:topN]
	}
	return docs, nil
}

func TestNewPipelineRequiresStore(t *testing.T) {
	_, err := search.NewPipeline(nil, nil)
	assert.ErrorIs(t, err, search.ErrStoreRequired)
}

func TestSearchWithoutRerank(t *testing.T) {
	store := fixedStore(fixedHits("alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"))
	pipeline, err := search.NewPipeline(store, newWorkingReranker(t))
	require.NoError(t, err)

	req := search.NewRequest("query")
	req.EnableRerank = false
	resp := pipeline.Search(context.Background(), req)

	assert.LessOrEqual(t, len(resp.Results), req.RerankTopN)
	for _, result := range resp.Results {
		assert.False(t, result.Reranked)
	}
	assert.False(t, resp.Info.RerankEnabled)
	assert.Zero(t, resp.Info.Stage2Reranked)

	// Without Stage-2 narrowing there is no reason to over-fetch.
	assert.Equal(t, req.RerankTopN, store.LastK())
}

func TestSearchWithRerank(t *testing.T) {
	store := fixedStore(fixedHits(
		"gradient descent optimization", "cats and mats", "adaptive optimizers",
		"unrelated text", "more gradient techniques", "filler one", "filler two",
	))
	pipeline, err := search.NewPipeline(store, newWorkingReranker(t))
	require.NoError(t, err)

	req := search.NewRequest("gradient optimization techniques")
	resp := pipeline.Search(context.Background(), req)

	assert.LessOrEqual(t, len(resp.Results), req.RerankTopN)
	assert.NotEmpty(t, resp.Results)
	for _, result := range resp.Results {
		assert.True(t, result.Reranked)
	}
	assert.True(t, resp.Info.RerankEnabled)
	assert.Equal(t, resp.Info.Stage1Candidates, resp.Info.Stage2Reranked)
	assert.Equal(t, req.InitialLimit, store.LastK())
}

func TestSearchResultsSortedDescending(t *testing.T) {
	store := fixedStore(fixedHits("short", "a much longer document text", "medium length"))
	pipeline, err := search.NewPipeline(store, &stubReranker{})
	require.NoError(t, err)

	resp := pipeline.Search(context.Background(), search.NewRequest("query"))
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestSearchStage1FailureContained(t *testing.T) {
	store := storagemock.NewMockDocumentStore()
	store.SearchSimilarDocumentsFunc = func(ctx context.Context, query string, k int, mode core.SearchMode) ([]storage.Hit, error) {
		return nil, errors.New("index corrupted")
	}
	pipeline, err := search.NewPipeline(store, nil)
	require.NoError(t, err)

	resp := pipeline.Search(context.Background(), search.NewRequest("query"))
	assert.Empty(t, resp.Results)
	assert.Contains(t, resp.Info.Error, "index corrupted")
}

func TestSearchRerankFailureFallsBack(t *testing.T) {
	store := fixedStore(fixedHits("one", "two", "three", "four", "five", "six", "seven"))
	reranker := &stubReranker{err: errors.New("model load failed")}
	pipeline, err := search.NewPipeline(store, reranker)
	require.NoError(t, err)

	req := search.NewRequest("query")
	resp := pipeline.Search(context.Background(), req)

	require.Len(t, resp.Results, req.RerankTopN)
	for _, result := range resp.Results {
		assert.False(t, result.Reranked)
	}
	assert.False(t, resp.Info.RerankEnabled)
	assert.Equal(t, "one", resp.Results[0].Candidate.Document.Content)
}

func TestSearchTagFilter(t *testing.T) {
	hits := fixedHits("tagged doc", "untagged doc")
	hits[0].Document.Tags = []string{"work", "project"}
	store := fixedStore(hits)
	pipeline, err := search.NewPipeline(store, nil)
	require.NoError(t, err)

	req := search.NewRequest("query")
	req.FilterTags = []string{"work"}
	resp := pipeline.Search(context.Background(), req)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "tagged doc", resp.Results[0].Candidate.Document.Content)
}

func TestSearchQueriesPerStage(t *testing.T) {
	store := fixedStore(fixedHits("документ за 8 октября"))
	reranker := &stubReranker{}
	pipeline, err := search.NewPipeline(store, reranker)
	require.NoError(t, err)

	query := "документы за октябрь"
	pipeline.Search(context.Background(), search.NewRequest(query))

	// Stage-1 sees the expanded query, Stage-2 the original.
	assert.Contains(t, store.LastQuery(), "октября")
	assert.Equal(t, query, reranker.lastQuery)
}

func TestSearchTenDocumentCorpus(t *testing.T) {
	contents := make([]string, 10)
	for i := range contents {
		contents[i] = fmt.Sprintf("заметка %d от 8 октября 2025 про проект", i+1)
	}
	store := fixedStore(fixedHits(contents...))
	pipeline, err := search.NewPipeline(store, newWorkingReranker(t))
	require.NoError(t, err)

	query := "документы за октябрь"
	expanded := search.ExpandQuery(query)
	assert.Contains(t, expanded, "октября")
	assert.Contains(t, expanded, "1 октября")

	req := search.NewRequest(query)
	req.InitialLimit = 25
	req.RerankTopN = 5
	resp := pipeline.Search(context.Background(), req)

	assert.LessOrEqual(t, len(resp.Results), 5)
	assert.NotEmpty(t, resp.Results)
	for _, result := range resp.Results {
		assert.True(t, result.Reranked)
	}
}

func TestSearchIncludeScores(t *testing.T) {
	store := fixedStore(fixedHits("alpha", "beta"))
	pipeline, err := search.NewPipeline(store, &stubReranker{})
	require.NoError(t, err)

	req := search.NewRequest("query")
	req.IncludeScores = true
	resp := pipeline.Search(context.Background(), req)

	require.NotEmpty(t, resp.Results)
	assert.GreaterOrEqual(t, resp.Info.Stage1TimeMs, 0.0)
	assert.NotZero(t, resp.Results[0].Stage1Score)
	assert.NotZero(t, resp.Results[0].Stage2Score)
}

func TestGetPipelineInfo(t *testing.T) {
	store := storagemock.NewMockDocumentStore()

	t.Run("without reranker", func(t *testing.T) {
		pipeline, err := search.NewPipeline(store, nil)
		require.NoError(t, err)
		info := pipeline.GetPipelineInfo()
		assert.False(t, info.RerankerEnabled)
		assert.Nil(t, info.Reranker)
	})

	t.Run("with reranker", func(t *testing.T) {
		pipeline, err := search.NewPipeline(store, newWorkingReranker(t))
		require.NoError(t, err)
		info := pipeline.GetPipelineInfo()
		assert.True(t, info.RerankerEnabled)
		require.NotNil(t, info.Reranker)
		assert.False(t, info.Reranker.Loaded)
	})
}

type recordingMonitor struct {
	events []string
}

func (m *recordingMonitor) Start(query string)                   { m.events = append(m.events, "start") }
func (m *recordingMonitor) QueryExpanded(_, _ string)            { m.events = append(m.events, "expanded") }
func (m *recordingMonitor) AfterStage1(_ []*core.Candidate)      { m.events = append(m.events, "stage1") }
func (m *recordingMonitor) AfterStage2(_ []*rerank.Document)     { m.events = append(m.events, "stage2") }
func (m *recordingMonitor) Finish(_ *core.SearchResponse)        { m.events = append(m.events, "finish") }

func TestSearchWithMonitor(t *testing.T) {
	store := fixedStore(fixedHits("документ за 8 октября"))
	pipeline, err := search.NewPipeline(store, &stubReranker{})
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	pipeline.SearchWithMonitor(context.Background(), search.NewRequest("документы за октябрь"), monitor)

	assert.Equal(t, "start expanded stage1 stage2 finish", strings.Join(monitor.events, " "))
}
