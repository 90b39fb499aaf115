// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lokalrag assembles the knowledge-base components: the badger
// document store, the AI provider, the cross-encoder reranker and the
// session registry, and hands out wired pipelines and chat orchestrators.
package lokalrag

import (
	"log/slog"

	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/ai/openai"
	"github.com/poiesic/lokalrag/chat"
	"github.com/poiesic/lokalrag/config"
	"github.com/poiesic/lokalrag/rerank"
	"github.com/poiesic/lokalrag/search"
	"github.com/poiesic/lokalrag/storage"
	"github.com/poiesic/lokalrag/storage/badger"
)

// DefaultScoringSidecarURL is where the cross-encoder scoring sidecar
// listens locally.
const DefaultScoringSidecarURL = "http://localhost:8765"

// KnowledgeBase bundles the storage, AI and reranking services of one
// local knowledge base.
type KnowledgeBase struct {
	store    storage.DocumentStore
	provider ai.AIProvider
	reranker *rerank.ReRanker
	registry *chat.Registry
	settings config.Settings
	logger   *slog.Logger
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*knowledgeBaseOptions)

type knowledgeBaseOptions struct {
	aiConfig     *ai.Config
	settings     *config.Settings
	rerankLoader rerank.ModelLoader
	logger       *slog.Logger
}

// WithAIConfig sets the AI provider configuration.
func WithAIConfig(cfg *ai.Config) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithSettings sets the application settings.
// Default is config.DefaultSettings().
func WithSettings(settings config.Settings) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		o.settings = &settings
	}
}

// WithRerankLoader sets the cross-encoder model loader.
// Default is an HTTP loader talking to DefaultScoringSidecarURL.
func WithRerankLoader(loader rerank.ModelLoader) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		if loader != nil {
			o.rerankLoader = loader
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) KnowledgeBaseOption {
	return func(o *knowledgeBaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens the knowledge base at filePath and wires its services.
func Open(filePath string, opts ...KnowledgeBaseOption) (*KnowledgeBase, error) {
	options := &knowledgeBaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	settings := config.DefaultSettings()
	if options.settings != nil {
		settings = *options.settings
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		return nil, err
	}

	store, err := badger.NewDocumentStore(filePath, provider.Embedder(),
		badger.WithLogger(options.logger))
	if err != nil {
		provider.Close()
		return nil, err
	}

	var reranker *rerank.ReRanker
	if settings.Rerank.Enabled {
		loader := options.rerankLoader
		if loader == nil {
			loader = rerank.NewHTTPLoader(DefaultScoringSidecarURL,
				rerank.WithHTTPLoaderLogger(options.logger))
		}
		reranker, err = rerank.New(settings.Rerank, loader, rerank.WithLogger(options.logger))
		if err != nil {
			store.Close()
			provider.Close()
			return nil, err
		}
	}

	return &KnowledgeBase{
		store:    store,
		provider: provider,
		reranker: reranker,
		registry: chat.NewRegistry(chat.DefaultMaxHistoryTurns, chat.WithRegistryLogger(options.logger)),
		settings: settings,
		logger:   options.logger,
	}, nil
}

// Close releases the knowledge base's resources.
func (kb *KnowledgeBase) Close() error {
	if kb.reranker != nil {
		kb.reranker.Unload()
	}

	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing AI provider", "err", err)
	}

	if err := kb.store.Close(); err != nil {
		kb.logger.Error("error closing document store", "err", err)
		return err
	}
	return nil
}

// DocumentStore returns the document store.
func (kb *KnowledgeBase) DocumentStore() storage.DocumentStore {
	return kb.store
}

// Provider returns the AI provider.
func (kb *KnowledgeBase) Provider() ai.AIProvider {
	return kb.provider
}

// ReRanker returns the reranker, or nil when re-ranking is disabled.
func (kb *KnowledgeBase) ReRanker() *rerank.ReRanker {
	return kb.reranker
}

// SessionRegistry returns the conversation session registry.
func (kb *KnowledgeBase) SessionRegistry() *chat.Registry {
	return kb.registry
}

// Settings returns the settings the knowledge base was opened with.
func (kb *KnowledgeBase) Settings() config.Settings {
	return kb.settings
}

// NewSearchPipeline creates a search pipeline over this knowledge base.
func (kb *KnowledgeBase) NewSearchPipeline(opts ...search.Option) (*search.Pipeline, error) {
	if kb.reranker == nil {
		return search.NewPipeline(kb.store, nil, opts...)
	}
	return search.NewPipeline(kb.store, kb.reranker, opts...)
}

// NewChat creates a chat orchestrator over this knowledge base.
func (kb *KnowledgeBase) NewChat(opts ...chat.Option) (*chat.Chat, error) {
	pipeline, err := kb.NewSearchPipeline()
	if err != nil {
		return nil, err
	}

	limits := []chat.Option{
		chat.WithContextLimits(kb.settings.Rerank.DefaultTopK, kb.settings.Rerank.DefaultTopN),
	}
	return chat.NewChat(pipeline, kb.provider.Generator(), kb.registry, append(limits, opts...)...)
}
