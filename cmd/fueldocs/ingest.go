package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pumpside/fueldocs/internal/config"
	"github.com/pumpside/fueldocs/internal/docindex"
	"github.com/pumpside/fueldocs/internal/embedding"
	"github.com/pumpside/fueldocs/internal/fetch"
	"github.com/pumpside/fueldocs/internal/ingest"
	"github.com/pumpside/fueldocs/internal/sitemap"
	"github.com/pumpside/fueldocs/internal/state"
)

var discoverRoot string

var discoverCmd = &cobra.Command{
	Use:   "discover-sitemap",
	Short: "Expand the site's sitemap tree and print the URL manifest",
	Long:  "Recursively expands the root sitemap index and prints one `url<TAB>lastmod` line per discovered URL, in sitemap order.",
	RunE:  runDiscover,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest-incremental",
	Short: "Diff the sitemap against state and reindex what changed",
	Long: `Walks the sitemap, diffs it against the persisted ingestion state and
refreshes only new or changed URLs. Removed URLs are deleted from the
vector store and document index. The state file advances only for URLs
whose upsert completed, so an interrupted run is always safe to resume.

Exit codes: 0 full success, 1 some URLs skipped (state advanced for the
rest), 2 hard failure or ephemeral vector-store fallback.`,
	RunE: runIngest,
}

func init() {
	discoverCmd.Flags().StringVar(&discoverRoot, "root", "", "root sitemap URL (overrides CORPUS_ROOT_SITEMAP_URL)")
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	root := discoverRoot
	if root == "" {
		root = cfg.RootSitemapURL
	}
	if root == "" {
		return fmt.Errorf("no root sitemap URL: pass --root or set CORPUS_ROOT_SITEMAP_URL")
	}

	logger := newLogger()
	entries, err := sitemap.NewWalker(logger).Walk(cmd.Context(), root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.URL, e.Lastmod)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.RootSitemapURL == "" {
		return fmt.Errorf("CORPUS_ROOT_SITEMAP_URL is required for ingestion")
	}
	if cfg.RetrievalOnly() {
		return fmt.Errorf("GENERATOR_CREDENTIAL is required for ingestion (embeddings)")
	}

	logger := newLogger()

	// Finish the current URL, persist, then exit on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	start := time.Now()

	entries, err := sitemap.NewWalker(logger).Walk(ctx, cfg.RootSitemapURL)
	if err != nil {
		return err
	}
	logger.Info("sitemap walked", "urls", len(entries))

	client, err := embedding.NewClient(cfg.GeneratorCredential)
	if err != nil {
		return err
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModelID, 0)

	store := openVectorStore(ctx, cfg, embedder, logger)
	defer store.Close()

	docs, err := docindex.Open(cfg.DocumentIndexDir)
	if err != nil {
		return fmt.Errorf("open document index: %w", err)
	}
	defer docs.Close()

	coordinator := ingest.NewCoordinator(
		fetch.NewFetcher(logger),
		store,
		docs,
		state.NewStore(cfg.StateFilePath, logger),
		ingest.DefaultPacing,
		logger,
	)

	result, runErr := coordinator.Run(ctx, entries)
	if result == nil {
		return runErr
	}

	fmt.Printf("updated=%d skipped=%d deleted=%d (%s)\n",
		result.Updated, len(result.Skipped), result.Deleted, time.Since(start).Round(time.Second))
	if len(result.Skipped) > 0 {
		fmt.Println("skipped urls (retry next run):")
		for _, url := range result.Skipped {
			fmt.Printf("  - %s\n", url)
		}
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "ingestion error: %v\n", runErr)
	}

	switch {
	case result.Ephemeral || (runErr != nil && result.Updated == 0):
		os.Exit(2)
	case len(result.Skipped) > 0 || runErr != nil:
		os.Exit(1)
	}
	return nil
}
