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

package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/lokalrag/core"
)

// Document is a transient per-call scoring record. Text is the content
// the cross-encoder reads; RerankScore and Reranked are populated in
// place during a successful scoring pass.
type Document struct {
	Candidate   *core.Candidate
	Text        string
	RerankScore float64
	Reranked    bool
}

// Metrics is a snapshot of accumulated re-ranking statistics.
type Metrics struct {
	TotalReranks int     `json:"total_reranks"`
	TotalTimeMs  float64 `json:"total_time_ms"`
	AvgTimeMs    float64 `json:"avg_time_ms"`
}

// Info describes the re-ranker's configuration and runtime state.
type Info struct {
	Model        string  `json:"model"`
	Device       string  `json:"device"`
	Loaded       bool    `json:"loaded"`
	CacheEnabled bool    `json:"cache_enabled"`
	BatchSize    int     `json:"batch_size"`
	Threshold    float64 `json:"threshold"`
	Metrics      Metrics `json:"metrics"`
	MemoryMB     string  `json:"memory_mb,omitempty"`
}

// LatencyReport holds the results of a synthetic latency benchmark.
type LatencyReport struct {
	NumDocs         int     `json:"num_docs"`
	Device          string  `json:"device"`
	ModelLoadTimeMs float64 `json:"model_load_time_ms"`
	RerankTimeMs    float64 `json:"rerank_time_ms"`
	MsPerDoc        float64 `json:"ms_per_doc"`
}

// ReRanker re-scores retrieved documents with a cross-encoder. The model
// is loaded lazily on the first Rerank call and the resolved device is
// cached for the life of the instance. A mutex serializes load-and-score
// so one instance can be shared across workers.
type ReRanker struct {
	config   Config
	loader   ModelLoader
	detector DeviceDetector
	logger   *slog.Logger

	mu      sync.Mutex
	encoder CrossEncoder
	loaded  bool
	device  string

	metricsMu    sync.Mutex
	totalReranks int
	totalTime    time.Duration
}

// Option configures a ReRanker.
type Option func(*ReRanker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *ReRanker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithDeviceDetector sets a custom device detector.
// Default is DefaultDetector.
func WithDeviceDetector(detector DeviceDetector) Option {
	return func(r *ReRanker) error {
		if detector == nil {
			return fmt.Errorf("device detector must not be nil")
		}
		r.detector = detector
		return nil
	}
}

// New creates a ReRanker. The model is not loaded here; the first Rerank
// call triggers the load so idle instances stay memory-free.
func New(config Config, loader ModelLoader, opts ...Option) (*ReRanker, error) {
	if loader == nil {
		return nil, ErrLoaderRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &ReRanker{
		config:   config,
		loader:   loader,
		detector: DefaultDetector{},
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.logger.Info("reranker initialized", "model", config.Model, "device", config.Device)
	return r, nil
}

// Rerank re-scores docs against query and returns at most topN of them,
// best first. Empty input returns empty output without loading the model.
// A load failure is returned as a *LoadError; a scoring failure after a
// successful load degrades to the original order truncated to topN.
func (r *ReRanker) Rerank(ctx context.Context, query string, docs []*Document, topN int) ([]*Document, error) {
	start := time.Now()

	if len(docs) == 0 {
		return nil, nil
	}
	if topN <= 0 {
		topN = r.config.DefaultTopN
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	pairs := make([]Pair, len(docs))
	for i, doc := range docs {
		pairs[i] = Pair{Query: query, Text: doc.Text}
	}

	r.logger.Debug("reranking documents", "count", len(docs), "top_n", topN)

	scores, err := r.encoder.Predict(ctx, pairs, r.config.BatchSize)
	if err != nil {
		r.logger.Error("reranking failed, returning documents unscored", "err", err)
		if len(docs) > topN {
			docs = docs[:topN]
		}
		return docs, nil
	}

	for i, doc := range docs {
		doc.RerankScore = scores[i]
		doc.Reranked = true
	}

	if r.config.Threshold > 0 {
		kept := docs[:0:0]
		for _, doc := range docs {
			if doc.RerankScore >= r.config.Threshold {
				kept = append(kept, doc)
			}
		}
		r.logger.Debug("threshold filter applied", "kept", len(kept), "threshold", r.config.Threshold)
		docs = kept
	}

	slices.SortStableFunc(docs, func(a, b *Document) int {
		if a.RerankScore > b.RerankScore {
			return -1
		}
		if a.RerankScore < b.RerankScore {
			return 1
		}
		return 0
	})

	elapsed := time.Since(start)
	r.metricsMu.Lock()
	r.totalReranks++
	r.totalTime += elapsed
	r.metricsMu.Unlock()

	r.logger.Debug("reranking completed", "elapsed_ms", elapsed.Milliseconds())

	if len(docs) > topN {
		docs = docs[:topN]
	}
	return docs, nil
}

// ensureLoaded loads the model if needed. Callers must hold r.mu.
func (r *ReRanker) ensureLoaded(ctx context.Context) error {
	if r.loaded {
		return nil
	}

	if r.device == "" {
		r.device = r.resolveDevice()
	}

	r.logger.Info("loading reranker model", "model", r.config.Model, "device", r.device)
	start := time.Now()

	encoder, err := r.loader.Load(ctx, r.config.Model, r.device)
	if err != nil {
		return &LoadError{Model: r.config.Model, Err: err}
	}

	r.encoder = encoder
	r.loaded = true
	r.logger.Info("reranker model loaded", "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// resolveDevice picks the inference device, honoring an explicit
// configuration and falling back to CPU when detection fails.
func (r *ReRanker) resolveDevice() string {
	if r.config.Device != DeviceAuto {
		r.logger.Info("using explicitly configured device", "device", r.config.Device)
		return r.config.Device
	}

	device, err := r.detector.Detect()
	if err != nil {
		r.logger.Warn("device detection failed, falling back to cpu", "err", err)
		return DeviceCPU
	}
	r.logger.Info("device detected", "device", device)
	return device
}

// Unload releases the model. The next Rerank call reloads it; the
// resolved device stays cached.
func (r *ReRanker) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded {
		return
	}
	r.encoder.Release()
	r.encoder = nil
	r.loaded = false
	r.logger.Info("reranker model unloaded")
}

// GetInfo returns the configuration, runtime state and metrics snapshot.
func (r *ReRanker) GetInfo() Info {
	r.mu.Lock()
	device := r.device
	loaded := r.loaded
	r.mu.Unlock()

	if device == "" {
		device = r.config.Device
	}

	r.metricsMu.Lock()
	metrics := Metrics{
		TotalReranks: r.totalReranks,
		TotalTimeMs:  float64(r.totalTime.Microseconds()) / 1000,
	}
	if r.totalReranks > 0 {
		metrics.AvgTimeMs = metrics.TotalTimeMs / float64(r.totalReranks)
	}
	r.metricsMu.Unlock()

	info := Info{
		Model:        r.config.Model,
		Device:       device,
		Loaded:       loaded,
		CacheEnabled: r.config.CacheModel,
		BatchSize:    r.config.BatchSize,
		Threshold:    r.config.Threshold,
		Metrics:      metrics,
	}
	if loaded {
		// Approximate for jina-reranker-v2; the sidecar does not expose
		// per-model memory stats.
		info.MemoryMB = "~600"
	}
	return info
}

// TestLatency benchmarks re-ranking over numDocs synthetic documents.
// It forces a model load and reports load, total and per-document times.
// Load times below the noise threshold are reported as zero.
func (r *ReRanker) TestLatency(ctx context.Context, numDocs int) (LatencyReport, error) {
	if numDocs <= 0 {
		numDocs = 25
	}
	r.logger.Info("testing reranking latency", "num_docs", numDocs)

	docs := make([]*Document, numDocs)
	for i := range docs {
		docs[i] = &Document{
			Text: fmt.Sprintf("This is document number %d about various topics.", i),
		}
	}

	loadStart := time.Now()
	r.mu.Lock()
	err := r.ensureLoaded(ctx)
	device := r.device
	r.mu.Unlock()
	if err != nil {
		return LatencyReport{}, err
	}
	loadTime := time.Since(loadStart)

	rerankStart := time.Now()
	if _, err := r.Rerank(ctx, "test query about topics", docs, 5); err != nil {
		return LatencyReport{}, err
	}
	rerankTime := time.Since(rerankStart)

	report := LatencyReport{
		NumDocs:      numDocs,
		Device:       device,
		RerankTimeMs: float64(rerankTime.Microseconds()) / 1000,
		MsPerDoc:     float64(rerankTime.Microseconds()) / 1000 / float64(numDocs),
	}
	if loadTime > 10*time.Millisecond {
		report.ModelLoadTimeMs = float64(loadTime.Microseconds()) / 1000
	}

	r.logger.Info("latency test completed",
		"num_docs", report.NumDocs,
		"device", report.Device,
		"rerank_time_ms", report.RerankTimeMs)
	return report, nil
}
