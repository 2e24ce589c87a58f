// Package query ties overrides, routing, signal extraction and
// retrieval into the answer pipeline.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pumpside/fueldocs/internal/overrides"
	"github.com/pumpside/fueldocs/internal/router"
	"github.com/pumpside/fueldocs/internal/signals"
	"github.com/pumpside/fueldocs/internal/vector"
)

// DefaultTopK is the retrieval depth when none is configured.
const DefaultTopK = 10

// OverrideSlug marks answers served from the overrides table.
const OverrideSlug = "override"

// systemHint frames the generator for the corpus domain.
const systemHint = "You are a technical support assistant for aftermarket EFI fuel " +
	"system products: pumps, injectors, regulators, tanks and plumbing. Answer " +
	"strictly from the context documents provided, cite concrete part numbers and " +
	"flow figures when the documents give them, and say so plainly when the " +
	"documents do not cover the question."

// offlineAnswer is returned when offline-only mode is active and no
// override matched. Placeholder wording, not a product contract.
const offlineAnswer = "No override matched; offline corrections mode is active."

// Answer is the pipeline output.
type Answer struct {
	Text      string
	Sources   []string
	ModelSlug string
}

// Generator is the text-completion capability.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, chunks []vector.RetrievedChunk) (string, error)
}

// Engine executes the query pipeline. A nil generator puts the engine
// in retrieval-only mode.
type Engine struct {
	overrides *overrides.Table
	router    *router.Router
	store     vector.Store
	generator Generator
	topK      int
	offline   bool
	logger    *slog.Logger
}

// NewEngine wires the pipeline. topK <= 0 uses DefaultTopK.
func NewEngine(tbl *overrides.Table, rt *router.Router, store vector.Store, gen Generator, topK int, offline bool, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		overrides: tbl,
		router:    rt,
		store:     store,
		generator: gen,
		topK:      topK,
		offline:   offline,
		logger:    logger,
	}
}

// Ask answers a question at the configured retrieval depth.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	return e.AskTopK(ctx, question, e.topK)
}

// AskTopK answers a question, retrieving up to k chunks (k <= 0 uses
// the configured depth). Overrides short-circuit everything: no
// embedding, no retrieval, no generator. Offline mode then returns its
// placeholder. Otherwise the question is routed, signal-biased,
// retrieved against and generated over; generator failures propagate.
func (e *Engine) AskTopK(ctx context.Context, question string, k int) (*Answer, error) {
	if hit := e.overrides.Lookup(question); hit != nil {
		return &Answer{
			Text:      hit.Answer,
			Sources:   append([]string(nil), hit.Sources...),
			ModelSlug: OverrideSlug,
		}, nil
	}

	if e.offline {
		return &Answer{Text: offlineAnswer, Sources: []string{}, ModelSlug: "offline"}, nil
	}

	model := e.router.Pick(question)

	// A blank question carries no retrieval signal; return the canned
	// answer without touching the store or the generator.
	if strings.TrimSpace(question) == "" {
		return e.noDocsAnswer(model), nil
	}

	// Retrieval-only mode: without a generator credential the query
	// cannot be embedded either, so skip straight to the canned reply.
	if e.generator == nil {
		return e.noDocsAnswer(model), nil
	}

	addendum := signals.Extract(question).Addendum()
	prompt := fmt.Sprintf("%s\n\nCustomer signals: %s\n\nQuestion: %s", systemHint, addendum, question)

	if k <= 0 {
		k = e.topK
	}
	chunks, err := e.store.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if len(chunks) == 0 {
		return e.noDocsAnswer(model), nil
	}

	sources := dedupeSources(chunks)

	text, err := e.generator.Generate(ctx, model, prompt, chunks)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	e.logger.Info("answered question", "model", model, "sources", len(sources), "chunks", len(chunks))
	return &Answer{Text: text, Sources: sources, ModelSlug: model}, nil
}

func (e *Engine) noDocsAnswer(model string) *Answer {
	return &Answer{
		Text:      fmt.Sprintf("No relevant documents retrieved. Configure %s for full responses.", model),
		Sources:   []string{},
		ModelSlug: model,
	}
}

// dedupeSources returns the chunk source URLs, deduplicated, in
// first-seen order.
func dedupeSources(chunks []vector.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	sources := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.SourceURL]; ok {
			continue
		}
		seen[c.SourceURL] = struct{}{}
		sources = append(sources, c.SourceURL)
	}
	return sources
}
