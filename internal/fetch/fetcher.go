// Package fetch retrieves pages over HTTP and reduces them to plain text.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 2

	// DefaultInitialBackoff is the delay before the first retry.
	DefaultInitialBackoff = 1500 * time.Millisecond

	requestTimeout = 30 * time.Second
)

// Error is returned when every attempt for a URL has failed. The
// coordinator switches on this type to treat the URL as skipped rather
// than deleted, so a transient outage never drops documents.
type Error struct {
	URL string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher downloads a URL and extracts its visible text.
type Fetcher struct {
	client  *http.Client
	headers map[string]string
	retries int
	initial time.Duration
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHeaders sets extra request headers sent with every fetch.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) { f.headers = headers }
}

// WithRetries overrides the retry budget.
func WithRetries(retries int, initial time.Duration) Option {
	return func(f *Fetcher) {
		f.retries = retries
		f.initial = initial
	}
}

// NewFetcher creates a fetcher with the default retry budget.
func NewFetcher(logger *slog.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client:  &http.Client{Timeout: requestTimeout},
		retries: DefaultRetries,
		initial: DefaultInitialBackoff,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch GETs url and returns its plain text. Any status >= 400 or
// transport failure counts as a failed attempt; after the retry budget
// is exhausted a *Error is returned carrying the last attempt's error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var text string

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		for k, v := range f.headers {
			req.Header.Set(k, v)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return err
		}
		text = extractText(doc)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.initial
	b.MaxElapsedTime = time.Duration(f.retries+1) * requestTimeout

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.retries)), ctx))
	if err != nil {
		f.logger.Warn("fetch exhausted retries", "url", url, "error", err)
		return "", &Error{URL: url, Err: err}
	}
	return text, nil
}

// extractText strips script, style and noscript content and collapses
// all whitespace runs to single spaces.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
