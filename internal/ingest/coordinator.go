// Package ingest drives incremental corpus ingestion: it diffs the
// sitemap manifest against persisted state and reconciles the vector
// store and document index so that a partial failure never corrupts
// the index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/pumpside/fueldocs/internal/docindex"
	"github.com/pumpside/fueldocs/internal/fetch"
	"github.com/pumpside/fueldocs/internal/sitemap"
	"github.com/pumpside/fueldocs/internal/vector"
)

// DefaultPacing is the polite delay between URL refreshes.
const DefaultPacing = 100 * time.Millisecond

// Fetcher is the page-fetching capability. A *fetch.Error return means
// the URL is skipped for this run, never deleted.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// DocIndex is the document/metadata store capability (C5).
type DocIndex interface {
	Upsert(ctx context.Context, doc docindex.Document) error
	Delete(ctx context.Context, docID string) error
	Persist(ctx context.Context) error
}

// StateStore is the persisted manifest capability (C3).
type StateStore interface {
	Load() map[string]string
	Save(manifest map[string]string) error
}

// Result summarizes one ingestion run.
type Result struct {
	Updated   int
	Deleted   int
	Skipped   []string
	Ephemeral bool
}

// Coordinator reconciles manifest, state, vector store and doc index.
type Coordinator struct {
	fetcher Fetcher
	store   vector.Store
	docs    DocIndex
	state   StateStore
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewCoordinator wires the capability bundle. A zero pacing uses
// DefaultPacing.
func NewCoordinator(fetcher Fetcher, store vector.Store, docs DocIndex, st StateStore, pacing time.Duration, logger *slog.Logger) *Coordinator {
	if pacing <= 0 {
		pacing = DefaultPacing
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher: fetcher,
		store:   store,
		docs:    docs,
		state:   st,
		limiter: rate.NewLimiter(rate.Every(pacing), 1),
		logger:  logger,
	}
}

// Run executes one incremental ingestion against the given manifest.
//
// Deletions are applied first; a failure there aborts before any
// refresh so reruns re-apply them idempotently. Refreshes then run in
// manifest order, and whatever has been refreshed when an error or a
// cancellation arrives is still committed: the doc index is persisted
// and the state file advances only for completed URLs, so state never
// runs ahead of the index. In ephemeral vector-store mode the state
// file is not touched at all.
func (c *Coordinator) Run(ctx context.Context, manifest []sitemap.Entry) (*Result, error) {
	sPrev := c.state.Load()

	// Dedupe the manifest keeping the first occurrence's lastmod, so a
	// URL listed twice is diffed and fetched at most once.
	now := make(map[string]string, len(manifest))
	deduped := make([]sitemap.Entry, 0, len(manifest))
	for _, e := range manifest {
		if _, ok := now[e.URL]; ok {
			continue
		}
		now[e.URL] = e.Lastmod
		deduped = append(deduped, e)
	}

	var toDelete []string
	for url := range sPrev {
		if _, ok := now[url]; !ok {
			toDelete = append(toDelete, url)
		}
	}
	sort.Strings(toDelete)

	if len(toDelete) > 0 {
		if err := c.store.DeleteBySource(ctx, toDelete); err != nil {
			return nil, fmt.Errorf("delete removed urls: %w", err)
		}
		for _, url := range toDelete {
			if err := c.docs.Delete(ctx, url); err != nil {
				return nil, fmt.Errorf("delete document %s: %w", url, err)
			}
		}
		c.logger.Info("deleted removed urls", "count", len(toDelete))
	}

	result := &Result{
		Deleted:   len(toDelete),
		Ephemeral: c.store.Ephemeral(),
	}

	refreshed := make(map[string]string)
	runErr := c.refreshAll(ctx, deduped, sPrev, refreshed, result)

	if err := c.docs.Persist(ctx); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("persist document index: %w", err)
		} else {
			c.logger.Error("persist document index failed", "error", err)
		}
	}

	if result.Ephemeral {
		// The index just written will not survive shutdown; advancing
		// the state file would violate state ⊆ index. Leave state
		// untouched so the next run starts fresh.
		c.logger.Warn("vector store is ephemeral, state file not updated")
		return result, runErr
	}

	sNext := make(map[string]string, len(sPrev)+len(refreshed))
	for url, lastmod := range sPrev {
		sNext[url] = lastmod
	}
	for _, url := range toDelete {
		delete(sNext, url)
	}
	for url, lastmod := range refreshed {
		sNext[url] = lastmod
	}

	if err := c.state.Save(sNext); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("save state: %w", err)
		} else {
			c.logger.Error("save state failed", "error", err)
		}
	}

	return result, runErr
}

// refreshAll fetches and reindexes every new or changed URL in
// manifest order. Fetch failures are recorded as skipped and the run
// continues; any other error stops the run so the caller can commit
// what has accumulated. Cancellation finishes the current URL, then
// stops cleanly without error.
func (c *Coordinator) refreshAll(ctx context.Context, manifest []sitemap.Entry, sPrev, refreshed map[string]string, result *Result) error {
	for _, e := range manifest {
		if prev, ok := sPrev[e.URL]; ok && prev == e.Lastmod {
			continue
		}

		if ctx.Err() != nil {
			c.logger.Info("cancellation requested, stopping after completed urls")
			return nil
		}
		// The limiter starts full, so the first URL proceeds at once
		// and every later one is paced.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil // cancelled during pacing
		}

		text, err := c.fetcher.Fetch(ctx, e.URL)
		if err != nil {
			var fetchErr *fetch.Error
			if errors.As(err, &fetchErr) {
				c.logger.Warn("fetch failed, url skipped", "url", e.URL, "error", fetchErr.Err)
				result.Skipped = append(result.Skipped, e.URL)
				continue
			}
			result.Skipped = append(result.Skipped, e.URL)
			return fmt.Errorf("fetch %s: %w", e.URL, err)
		}

		// Within one URL the order is delete, upsert, state-update.
		// The adapter clears existing chunks before inserting, and the
		// refreshed map is appended only after both stores accepted
		// the document.
		if err := c.store.Upsert(ctx, []vector.Document{{
			DocID:     e.URL,
			Text:      text,
			SourceURL: e.URL,
		}}); err != nil {
			result.Skipped = append(result.Skipped, e.URL)
			return fmt.Errorf("upsert %s: %w", e.URL, err)
		}

		if err := c.docs.Upsert(ctx, docindex.Document{
			DocID:     e.URL,
			Text:      text,
			SourceURL: e.URL,
			Lastmod:   e.Lastmod,
			IndexedAt: time.Now().UTC(),
		}); err != nil {
			result.Skipped = append(result.Skipped, e.URL)
			return fmt.Errorf("index document %s: %w", e.URL, err)
		}

		refreshed[e.URL] = e.Lastmod
		result.Updated++
		c.logger.Info("refreshed url", "url", e.URL, "lastmod", e.Lastmod)
	}
	return nil
}
