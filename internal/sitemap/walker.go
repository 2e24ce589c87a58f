// Package sitemap discovers a site's URL manifest from its sitemap tree.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrUnreachable means the root sitemap could not be fetched after retries.
	ErrUnreachable = errors.New("sitemap unreachable")
	// ErrMalformed means the root sitemap XML could not be parsed.
	ErrMalformed = errors.New("sitemap malformed")
)

// Entry is one (url, lastmod) pair from a urlset. Lastmod is the raw
// string from the sitemap, empty if the element is absent. It is used
// only as an opaque change-detection token, never parsed as a time.
type Entry struct {
	URL     string
	Lastmod string
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []locRef `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name  `xml:"urlset"`
	URLs    []urlNode `xml:"url"`
}

type locRef struct {
	Loc string `xml:"loc"`
}

type urlNode struct {
	Loc     string `xml:"loc"`
	Lastmod string `xml:"lastmod"`
}

// Walker expands a sitemap index into a flat URL manifest.
type Walker struct {
	client      *http.Client
	retryWindow time.Duration
	logger      *slog.Logger
}

// NewWalker creates a walker with a 30 second per-request budget.
func NewWalker(logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Walker{
		client:      &http.Client{Timeout: 30 * time.Second},
		retryWindow: 15 * time.Second,
		logger:      logger,
	}
}

// Walk fetches rootURL and recursively expands nested sitemap indexes,
// returning entries in document order with duplicate URLs removed
// (first occurrence wins). A child sitemap that fails after retries is
// logged and skipped; failure to fetch or parse the root is fatal.
func (w *Walker) Walk(ctx context.Context, rootURL string) ([]Entry, error) {
	body, err := w.fetchWithRetry(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, rootURL, err)
	}

	visited := map[string]struct{}{rootURL: {}}
	entries, err := w.expand(ctx, rootURL, body, visited)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(entries))
	deduped := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.URL]; ok {
			continue
		}
		seen[e.URL] = struct{}{}
		deduped = append(deduped, e)
	}
	return deduped, nil
}

// expand parses one sitemap document as either an index or a urlset.
// visited holds every sitemap URL already expanded; a reference back to
// one of them is a cycle and is skipped, keeping the walk finite.
func (w *Walker) expand(ctx context.Context, srcURL string, body []byte, visited map[string]struct{}) ([]Entry, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil {
		var entries []Entry
		for _, ref := range index.Sitemaps {
			if _, ok := visited[ref.Loc]; ok {
				w.logger.Warn("skipping already-visited sitemap", "url", ref.Loc)
				continue
			}
			visited[ref.Loc] = struct{}{}
			child, err := w.fetchWithRetry(ctx, ref.Loc)
			if err != nil {
				w.logger.Warn("skipping unreachable child sitemap", "url", ref.Loc, "error", err)
				continue
			}
			childEntries, err := w.expand(ctx, ref.Loc, child, visited)
			if err != nil {
				w.logger.Warn("skipping malformed child sitemap", "url", ref.Loc, "error", err)
				continue
			}
			entries = append(entries, childEntries...)
		}
		return entries, nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, srcURL, err)
	}

	entries := make([]Entry, 0, len(set.URLs))
	for _, u := range set.URLs {
		if u.Loc == "" {
			continue
		}
		entries = append(entries, Entry{URL: u.Loc, Lastmod: u.Lastmod})
	}
	return entries, nil
}

// fetchWithRetry GETs a sitemap URL with exponential backoff.
func (w *Walker) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			// Client errors will not heal on retry.
			return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1500 * time.Millisecond
	b.MaxElapsedTime = w.retryWindow

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
