// Package main provides the fueldocs CLI: corpus discovery, incremental
// ingestion and question answering over the fuel-system knowledge base.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pumpside/fueldocs/internal/config"
	"github.com/pumpside/fueldocs/internal/embedding"
	"github.com/pumpside/fueldocs/internal/generate"
	"github.com/pumpside/fueldocs/internal/overrides"
	"github.com/pumpside/fueldocs/internal/query"
	"github.com/pumpside/fueldocs/internal/router"
	"github.com/pumpside/fueldocs/internal/textsplit"
	"github.com/pumpside/fueldocs/internal/vector"
)

var rootCmd = &cobra.Command{
	Use:           "fueldocs",
	Short:         "Fuel-system documentation ingestion and Q&A",
	Long:          "CLI for maintaining the fuel-system product knowledge base: sitemap discovery, incremental indexing into Qdrant, and retrieval-augmented question answering.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func main() {
	// Load .env if present (local development); ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openVectorStore connects to Qdrant, falling back to an ephemeral
// in-memory store when the server is unreachable. The caller decides
// what the degraded mode means for it.
func openVectorStore(ctx context.Context, cfg *config.Config, embedder vector.Embedder, logger *slog.Logger) vector.Store {
	splitter := textsplit.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	store, err := vector.NewQdrantStore(ctx, cfg.QdrantHost, cfg.QdrantPort, embedder, splitter)
	if err != nil {
		logger.Warn("qdrant unavailable, running with ephemeral in-memory store", "error", err)
		return vector.NewMemoryStore(embedder, splitter)
	}
	return store
}

// buildEngine assembles the query pipeline from configuration.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*query.Engine, vector.Store, error) {
	tbl, err := overrides.Load(cfg.OverridesFilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("load overrides: %w", err)
	}

	rt := router.New(cfg.CheapModelID, cfg.ExpensiveModelID)

	var embedder vector.Embedder
	var gen query.Generator
	if !cfg.RetrievalOnly() {
		client, err := embedding.NewClient(cfg.GeneratorCredential)
		if err != nil {
			return nil, nil, err
		}
		embedder = embedding.NewEmbedder(client, cfg.EmbeddingModelID, 0)
		gen = generate.NewOpenAIFromClient(client.Client())
	}

	// Offline mode never retrieves, so there is nothing to dial Qdrant
	// for; an empty in-memory store satisfies the pipeline's interface.
	var store vector.Store
	if cfg.OfflineOnly {
		store = vector.NewMemoryStore(embedder, textsplit.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap))
	} else {
		store = openVectorStore(ctx, cfg, embedder, logger)
	}
	engine := query.NewEngine(tbl, rt, store, gen, cfg.TopK, cfg.OfflineOnly, logger)
	return engine, store, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
