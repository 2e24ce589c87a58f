package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpside/fueldocs/internal/overrides"
	"github.com/pumpside/fueldocs/internal/router"
	"github.com/pumpside/fueldocs/internal/vector"
)

// cannedStore returns fixed chunks, or an error, and records Query calls.
type cannedStore struct {
	chunks   []vector.RetrievedChunk
	queryErr error
	queries  int
	lastK    int
}

func (s *cannedStore) Upsert(context.Context, []vector.Document) error { return nil }
func (s *cannedStore) DeleteBySource(context.Context, []string) error  { return nil }
func (s *cannedStore) Count(context.Context) (uint64, error)           { return 0, nil }
func (s *cannedStore) Ephemeral() bool                                 { return false }
func (s *cannedStore) Close() error                                    { return nil }

func (s *cannedStore) Query(_ context.Context, _ string, k int) ([]vector.RetrievedChunk, error) {
	s.queries++
	s.lastK = k
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.chunks, nil
}

// forbiddenStore fails the test if the pipeline touches retrieval.
type forbiddenStore struct {
	cannedStore
	t *testing.T
}

func (s *forbiddenStore) Query(context.Context, string, int) ([]vector.RetrievedChunk, error) {
	s.t.Fatal("Query must not be called on this path")
	return nil, nil
}

// stubGenerator echoes the model it was handed, or fails.
type stubGenerator struct {
	reply      string
	err        error
	lastModel  string
	lastPrompt string
}

func (g *stubGenerator) Generate(_ context.Context, model, prompt string, _ []vector.RetrievedChunk) (string, error) {
	g.lastModel = model
	g.lastPrompt = prompt
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func loadOverrides(t *testing.T, yaml string) *overrides.Table {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	tbl, err := overrides.Load(path)
	require.NoError(t, err)
	return tbl
}

func emptyOverrides(t *testing.T) *overrides.Table {
	t.Helper()
	tbl, err := overrides.Load("")
	require.NoError(t, err)
	return tbl
}

func testRouter() *router.Router {
	return router.New("cheap-model", "expensive-model")
}

func TestAsk_OverrideShortCircuitsRetrieval(t *testing.T) {
	tbl := loadOverrides(t, `
- patterns:
    - "life.*universe.*everything"
  answer: "42"
  sources:
    - "https://x/y"
`)
	store := &forbiddenStore{t: t}
	gen := &stubGenerator{reply: "must not be used"}

	engine := NewEngine(tbl, testRouter(), store, gen, 0, false, nil)
	answer, err := engine.Ask(context.Background(), "What is the meaning of life, the universe and everything?")
	require.NoError(t, err)

	assert.Equal(t, "42", answer.Text)
	assert.Equal(t, []string{"https://x/y"}, answer.Sources)
	assert.Equal(t, OverrideSlug, answer.ModelSlug)
	assert.Empty(t, gen.lastModel, "generator must not be invoked on the override path")
}

func TestAsk_OfflineModePlaceholder(t *testing.T) {
	store := &forbiddenStore{t: t}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, &stubGenerator{}, 0, true, nil)

	answer, err := engine.Ask(context.Background(), "which pump for a stock 5.0?")
	require.NoError(t, err)

	assert.Equal(t, "No override matched; offline corrections mode is active.", answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, "offline", answer.ModelSlug)
}

func TestAsk_OfflineModeStillHonorsOverrides(t *testing.T) {
	tbl := loadOverrides(t, `
- patterns:
    - "^warranty"
  answer: "Covered for one year from purchase."
  sources: []
`)
	engine := NewEngine(tbl, testRouter(), &forbiddenStore{t: t}, nil, 0, true, nil)

	answer, err := engine.Ask(context.Background(), "Warranty length on the 340 pump?")
	require.NoError(t, err)
	assert.Equal(t, OverrideSlug, answer.ModelSlug)
	assert.Equal(t, "Covered for one year from purchase.", answer.Text)
}

func TestAsk_BlankQuestionSkipsRetrieval(t *testing.T) {
	store := &forbiddenStore{t: t}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, &stubGenerator{}, 0, false, nil)

	answer, err := engine.Ask(context.Background(), "   ")
	require.NoError(t, err)

	assert.Equal(t, "cheap-model", answer.ModelSlug)
	assert.Contains(t, answer.Text, "No relevant documents retrieved")
	assert.Empty(t, answer.Sources)
}

func TestAsk_RetrievalOnlyModeSkipsStore(t *testing.T) {
	store := &forbiddenStore{t: t}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, nil, 0, false, nil)

	answer, err := engine.Ask(context.Background(), "which regulator for a returnless setup?")
	require.NoError(t, err)

	assert.Equal(t, "expensive-model", answer.ModelSlug)
	assert.Contains(t, answer.Text, "Configure expensive-model")
	assert.Empty(t, answer.Sources)
}

func TestAsk_EmptyIndexReturnsCannedAnswer(t *testing.T) {
	store := &cannedStore{}
	gen := &stubGenerator{reply: "must not be used"}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, gen, 0, false, nil)

	answer, err := engine.Ask(context.Background(), "what pressure should I run?")
	require.NoError(t, err)

	assert.Equal(t, 1, store.queries)
	assert.Contains(t, answer.Text, "No relevant documents retrieved")
	assert.Empty(t, gen.lastModel, "generator must not run without context chunks")
}

func TestAsk_GeneratesOverRetrievedChunks(t *testing.T) {
	store := &cannedStore{chunks: []vector.RetrievedChunk{
		{Text: "pump A flows 340lph", Score: 0.91, SourceURL: "https://d/pump-a"},
		{Text: "pump A fitment", Score: 0.88, SourceURL: "https://d/pump-a"},
		{Text: "regulator B specs", Score: 0.70, SourceURL: "https://d/reg-b"},
	}}
	gen := &stubGenerator{reply: "Use pump A."}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, gen, 5, false, nil)

	answer, err := engine.Ask(context.Background(), "which pump for 400 hp?")
	require.NoError(t, err)

	assert.Equal(t, "Use pump A.", answer.Text)
	assert.Equal(t, []string{"https://d/pump-a", "https://d/reg-b"}, answer.Sources,
		"sources deduplicated in first-seen order")
	assert.Equal(t, "cheap-model", answer.ModelSlug)
	assert.Equal(t, "cheap-model", gen.lastModel)
	assert.Equal(t, 5, store.lastK)

	assert.Contains(t, gen.lastPrompt, "Customer signals:")
	assert.Contains(t, gen.lastPrompt, "~400 hp")
	assert.Contains(t, gen.lastPrompt, "Question: which pump for 400 hp?")
}

func TestAskTopK_OverridesConfiguredDepth(t *testing.T) {
	store := &cannedStore{chunks: []vector.RetrievedChunk{
		{Text: "doc", Score: 0.5, SourceURL: "https://d/doc"},
	}}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, &stubGenerator{reply: "ok"}, 10, false, nil)

	_, err := engine.AskTopK(context.Background(), "line size for the frame rail kit?", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, store.lastK)
}

func TestAsk_RouterEscalationReachesGenerator(t *testing.T) {
	store := &cannedStore{chunks: []vector.RetrievedChunk{
		{Text: "doc", Score: 0.5, SourceURL: "https://d/doc"},
	}}
	gen := &stubGenerator{reply: "ok"}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, gen, 0, false, nil)

	answer, err := engine.Ask(context.Background(), "injector sizing for a turbo build?")
	require.NoError(t, err)

	assert.Equal(t, "expensive-model", answer.ModelSlug)
	assert.Equal(t, "expensive-model", gen.lastModel)
}

func TestAsk_RetrievalErrorPropagates(t *testing.T) {
	store := &cannedStore{queryErr: fmt.Errorf("qdrant down")}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, &stubGenerator{}, 0, false, nil)

	_, err := engine.Ask(context.Background(), "what fittings ship with the kit?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieve")
}

func TestAsk_GeneratorErrorPropagates(t *testing.T) {
	store := &cannedStore{chunks: []vector.RetrievedChunk{
		{Text: "doc", Score: 0.5, SourceURL: "https://d/doc"},
	}}
	gen := &stubGenerator{err: fmt.Errorf("rate limited")}
	engine := NewEngine(emptyOverrides(t), testRouter(), store, gen, 0, false, nil)

	_, err := engine.Ask(context.Background(), "what fittings ship with the kit?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate")
}
