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


package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/lokalrag"
	"github.com/poiesic/lokalrag/ai"
	"github.com/poiesic/lokalrag/chat"
	"github.com/poiesic/lokalrag/config"
	"github.com/poiesic/lokalrag/core"
	"github.com/poiesic/lokalrag/search"
	"github.com/poiesic/lokalrag/worker"
)

func main() {
	dbFlag := &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
	}
	settingsFlag := &cli.StringFlag{
		Name:  "settings",
		Usage: "Path to settings file (defaults to ~/.lokal-rag/settings.json)",
	}
	noRerankFlag := &cli.BoolFlag{
		Name:  "no-rerank",
		Usage: "Disable cross-encoder re-ranking",
	}
	tagsFlag := &cli.StringSliceFlag{
		Name:  "tag",
		Usage: "Only use documents carrying this tag (repeatable)",
	}
	aiHostFlag := &cli.StringFlag{
		Name:  "ai-host",
		Usage: "OpenAI-compatible API host for embeddings and chat",
		Value: "http://localhost:11434/v1",
	}
	embeddingModelFlag := &cli.StringFlag{
		Name:  "embedding-model",
		Usage: "Embedding model identifier",
	}
	chatModelFlag := &cli.StringFlag{
		Name:  "chat-model",
		Usage: "Answer-generation model identifier",
	}

	app := &cli.App{
		Name:  "lokalrag",
		Usage: "Local knowledge-base assistant with two-stage retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the knowledge base",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag,
					settingsFlag,
					noRerankFlag,
					tagsFlag,
					aiHostFlag,
					embeddingModelFlag,
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Retrieval mode: hybrid, vector or fulltext",
						Value: "hybrid",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Stage-1 candidate count",
						Value: search.DefaultInitialLimit,
					},
					&cli.IntFlag{
						Name:  "top-n",
						Usage: "Number of results to return",
						Value: search.DefaultTopN,
					},
					&cli.BoolFlag{
						Name:  "scores",
						Usage: "Show per-stage scores and timings",
					},
					&cli.StringFlag{
						Name:  "lang",
						Usage: "Expected query language (ru or en); mismatches print a warning",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Ask a single question grounded in the knowledge base",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags:     []cli.Flag{dbFlag, settingsFlag, noRerankFlag, tagsFlag, aiHostFlag, embeddingModelFlag, chatModelFlag},
			},
			{
				Name:   "chat",
				Usage:  "Interactive multi-turn conversation",
				Action: chatCommand,
				Flags:  []cli.Flag{dbFlag, settingsFlag, noRerankFlag, tagsFlag, aiHostFlag, embeddingModelFlag, chatModelFlag},
			},
			{
				Name:      "note",
				Usage:     "Add a note to the knowledge base",
				ArgsUsage: "<content>",
				Action:    noteCommand,
				Flags: []cli.Flag{
					dbFlag,
					settingsFlag,
					aiHostFlag,
					embeddingModelFlag,
					&cli.StringFlag{
						Name:  "source",
						Usage: "Source path recorded on the note",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show knowledge base statistics",
				Action: statsCommand,
				Flags:  []cli.Flag{dbFlag, settingsFlag},
			},
			{
				Name:   "rerank-bench",
				Usage:  "Benchmark re-ranking latency with synthetic documents",
				Action: rerankBenchCommand,
				Flags: []cli.Flag{
					dbFlag,
					settingsFlag,
					&cli.IntFlag{
						Name:  "docs",
						Usage: "Number of synthetic documents to score",
						Value: 25,
					},
				},
			},
			{
				Name:  "config",
				Usage: "Show or update persisted settings",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective settings",
						Action: configShowCommand,
						Flags:  []cli.Flag{settingsFlag},
					},
					{
						Name:   "set-rerank",
						Usage:  "Update and persist the re-ranking settings",
						Action: configSetRerankCommand,
						Flags: []cli.Flag{
							settingsFlag,
							&cli.BoolFlag{Name: "enabled", Usage: "Enable re-ranking", Value: true},
							&cli.StringFlag{Name: "device", Usage: "Inference device (auto, cpu, mps, cuda)"},
							&cli.Float64Flag{Name: "threshold", Usage: "Minimum score to keep a result"},
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func settingsPath(c *cli.Context) (string, error) {
	if path := c.String("settings"); path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

func loadSettings(c *cli.Context) (config.Settings, error) {
	path, err := settingsPath(c)
	if err != nil {
		return config.Settings{}, err
	}

	settings := config.Load(path)
	if c.Bool("no-rerank") {
		settings.Rerank = settings.Rerank.WithEnabled(false)
	}
	return settings, nil
}

func openKnowledgeBase(c *cli.Context) (*lokalrag.KnowledgeBase, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, err
	}

	aiOpts := []ai.ConfigOption{}
	if host := c.String("ai-host"); host != "" {
		aiOpts = append(aiOpts, ai.WithHost(host))
	}
	if model := c.String("embedding-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithEmbeddingModel(model))
	}
	if model := c.String("chat-model"); model != "" {
		aiOpts = append(aiOpts, ai.WithChatModel(model))
	}

	kb, err := lokalrag.Open(c.String("db"),
		lokalrag.WithSettings(settings),
		lokalrag.WithAIConfig(ai.NewConfig(aiOpts...)))
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return kb, nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	if expected := c.String("lang"); expected != "" {
		if mismatch := search.ValidateLanguage(query, expected); mismatch != nil {
			fmt.Fprintf(os.Stderr, "Warning: query looks like %s, expected %s. %s\n",
				mismatch.DetectedLanguage, mismatch.ExpectedLanguage, mismatch.Suggestion)
		}
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	pipeline, err := kb.NewSearchPipeline()
	if err != nil {
		return err
	}

	req := search.NewRequest(query)
	req.Mode = core.SearchMode(c.String("mode"))
	req.InitialLimit = c.Int("limit")
	req.RerankTopN = c.Int("top-n")
	req.EnableRerank = !c.Bool("no-rerank")
	req.FilterTags = c.StringSlice("tag")
	req.IncludeScores = c.Bool("scores")

	resp := pipeline.Search(context.Background(), req)
	if resp.Info.Error != "" {
		return fmt.Errorf("search failed: %s", resp.Info.Error)
	}

	for i, result := range resp.Results {
		doc := result.Candidate.Document
		fmt.Printf("%2d. [%.3f] %s (%s)\n", i+1, result.Score, doc.Title, doc.Type)
		if result.Candidate.Snippet != "" {
			fmt.Printf("    %s\n", result.Candidate.Snippet)
		}
		if c.Bool("scores") {
			fmt.Printf("    stage1=%.3f stage2=%.3f reranked=%t\n",
				result.Stage1Score, result.Stage2Score, result.Reranked)
		}
	}

	fmt.Printf("\n%d results in %.1fms (stage1: %d candidates, reranked: %t)\n",
		resp.Info.TotalReturned, resp.Info.SearchTimeMs,
		resp.Info.Stage1Candidates, resp.Info.RerankEnabled)
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	chatter, err := kb.NewChat()
	if err != nil {
		return err
	}

	req := chat.NewChatRequest(question)
	req.EnableRerank = !c.Bool("no-rerank")
	req.FilterTags = c.StringSlice("tag")

	result := chatter.ChatWithContext(context.Background(), req, nil)
	printChatResult(result)
	return nil
}

func printChatResult(result *chat.Result) {
	fmt.Printf("%s\n", result.Response)

	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, source := range result.Sources {
			fmt.Printf("  [%.3f] %s (%s)\n", source.RelevanceScore, source.Title, source.Type)
		}
	}

	if result.Metadata.Error != "" {
		fmt.Printf("\nWarning: %s\n", result.Metadata.Error)
	}
	fmt.Printf("\n%d context items, %.1fms total (retrieval %.1fms, LLM %.1fms)\n",
		result.Metadata.ContextItemsUsed, result.Metadata.ResponseTimeMs,
		result.Metadata.ContextRetrievalTimeMs, result.Metadata.LLMTimeMs)
}

func chatCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	chatter, err := kb.NewChat()
	if err != nil {
		return err
	}

	dispatcher, err := worker.NewDispatcher(worker.WithPoolSize(1))
	if err != nil {
		return err
	}
	defer dispatcher.Release()

	fmt.Println("Interactive chat. Empty line to exit.")

	sessionID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			break
		}

		req := chat.NewChatRequest(query)
		req.SessionID = sessionID
		req.EnableRerank = !c.Bool("no-rerank")
		req.FilterTags = c.StringSlice("tag")

		// Each turn runs on a background worker; the result arrives as a
		// ChatTurnEvent on the dispatcher's queue.
		err := dispatcher.Submit(func(emit func(worker.Event)) {
			emit(worker.StateChangeEvent{State: worker.StateSearching})
			result := chatter.ChatWithHistory(context.Background(), req)
			emit(worker.ChatTurnEvent{
				SessionID: result.SessionID,
				Query:     query,
				Response:  result.Response,
			})
			emit(worker.StateChangeEvent{State: worker.StateIdle})
		})
		if err != nil {
			return err
		}

		for event := range dispatcher.Events() {
			turn, ok := event.(worker.ChatTurnEvent)
			if !ok {
				continue
			}
			sessionID = turn.SessionID
			fmt.Printf("\n%s\n\n", turn.Response)
			break
		}
	}
	return scanner.Err()
}

func noteCommand(c *cli.Context) error {
	content := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if content == "" {
		return fmt.Errorf("note content is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	note, err := kb.DocumentStore().AddNote(context.Background(), content, c.String("source"))
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	fmt.Printf("Note %d added: %s\n", note.Id, note.Title)
	return nil
}

func statsCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	count, err := kb.DocumentStore().GetDocumentCount(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Documents: %d\n", count)

	if reranker := kb.ReRanker(); reranker != nil {
		info := reranker.GetInfo()
		fmt.Printf("Reranker:  %s on %s (loaded: %t)\n", info.Model, info.Device, info.Loaded)
		fmt.Printf("Reranks:   %d (avg %.1fms)\n", info.Metrics.TotalReranks, info.Metrics.AvgTimeMs)
	} else {
		fmt.Println("Reranker:  disabled")
	}
	return nil
}

func rerankBenchCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return err
	}
	defer kb.Close()

	reranker := kb.ReRanker()
	if reranker == nil {
		return fmt.Errorf("re-ranking is disabled in settings")
	}

	report, err := reranker.TestLatency(context.Background(), c.Int("docs"))
	if err != nil {
		return fmt.Errorf("latency test failed: %w", err)
	}

	fmt.Printf("Device:      %s\n", report.Device)
	fmt.Printf("Model load:  %.1fms\n", report.ModelLoadTimeMs)
	fmt.Printf("Rerank %d docs: %.1fms (%.2fms/doc)\n",
		report.NumDocs, report.RerankTimeMs, report.MsPerDoc)
	return nil
}

func configShowCommand(c *cli.Context) error {
	path, err := settingsPath(c)
	if err != nil {
		return err
	}

	settings := config.Load(path)
	fmt.Printf("Settings file:  %s\n", path)
	fmt.Printf("Rerank enabled: %t\n", settings.Rerank.Enabled)
	fmt.Printf("Rerank model:   %s\n", settings.Rerank.Model)
	fmt.Printf("Rerank device:  %s\n", settings.Rerank.Device)
	fmt.Printf("Top-k/top-n:    %d/%d\n", settings.Rerank.DefaultTopK, settings.Rerank.DefaultTopN)
	fmt.Printf("Threshold:      %g\n", settings.Rerank.Threshold)
	fmt.Printf("Log level:      %s (%s)\n", settings.Server.LogLevel, settings.Server.LogFormat)
	return nil
}

func configSetRerankCommand(c *cli.Context) error {
	path, err := settingsPath(c)
	if err != nil {
		return err
	}

	settings := config.Load(path)
	settings.Rerank = settings.Rerank.WithEnabled(c.Bool("enabled"))
	if c.IsSet("device") {
		settings.Rerank = settings.Rerank.WithDevice(c.String("device"))
	}
	if c.IsSet("threshold") {
		settings.Rerank = settings.Rerank.WithThreshold(c.Float64("threshold"))
	}

	if err := settings.Rerank.Validate(); err != nil {
		return fmt.Errorf("invalid rerank settings: %w", err)
	}
	if err := config.Save(path, settings); err != nil {
		return err
	}

	fmt.Printf("Saved rerank settings to %s\n", path)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
