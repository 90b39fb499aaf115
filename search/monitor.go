package search

import (
	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/rerank"
)

// SearchMonitor provides hooks to observe the pipeline stages.
// Implementations must be cheap; hooks run inline on the search path.
type SearchMonitor interface {
	Start(query string)
	QueryExpanded(original, expanded string)
	AfterStage1(candidates []*core.Candidate)
	AfterStage2(reranked []*rerank.Document)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
// used when no monitor is provided.
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                       {}
func (n *noopMonitor) QueryExpanded(_, _ string)            {}
func (n *noopMonitor) AfterStage1(_ []*core.Candidate)      {}
func (n *noopMonitor) AfterStage2(_ []*rerank.Document)     {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)        {}
