package vector

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps keyword families to orthogonal axes so cosine
// ranking in tests is exact.
type axisEmbedder struct{}

func (axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		switch {
		case strings.Contains(text, "pump"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(text, "regulator"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

// passthroughSplitter keeps each document as a single chunk.
type passthroughSplitter struct{}

func (passthroughSplitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	return []string{text}
}

func newTestStore() *MemoryStore {
	return NewMemoryStore(axisEmbedder{}, passthroughSplitter{})
}

func TestMemoryStore_UpsertAndQuery(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Document{
		{DocID: "https://d/pump", Text: "pump flows 340lph", SourceURL: "https://d/pump"},
		{DocID: "https://d/reg", Text: "regulator holds 58psi", SourceURL: "https://d/reg"},
	}))

	chunks, err := store.Query(ctx, "which pump?", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "pump flows 340lph", chunks[0].Text)
	assert.Equal(t, "https://d/pump", chunks[0].SourceURL)
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-9)
	assert.Greater(t, chunks[0].Score, chunks[1].Score)
}

func TestMemoryStore_QueryHonorsK(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Document{
		{DocID: "https://d/a", Text: "pump one", SourceURL: "https://d/a"},
		{DocID: "https://d/b", Text: "pump two", SourceURL: "https://d/b"},
		{DocID: "https://d/c", Text: "pump three", SourceURL: "https://d/c"},
	}))

	chunks, err := store.Query(ctx, "pump", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestMemoryStore_UpsertReplacesSameSource(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	doc := Document{DocID: "https://d/pump", Text: "pump v1", SourceURL: "https://d/pump"}
	require.NoError(t, store.Upsert(ctx, []Document{doc}))

	doc.Text = "pump v2"
	require.NoError(t, store.Upsert(ctx, []Document{doc}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	chunks, err := store.Query(ctx, "pump", 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "pump v2", chunks[0].Text)
}

func TestMemoryStore_DeleteBySource(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Document{
		{DocID: "https://d/pump", Text: "pump doc", SourceURL: "https://d/pump"},
		{DocID: "https://d/reg", Text: "regulator doc", SourceURL: "https://d/reg"},
	}))

	require.NoError(t, store.DeleteBySource(ctx, []string{"https://d/pump"}))

	assert.Equal(t, []string{"https://d/reg"}, store.SourceURLs())
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// Deleting an absent URL is harmless.
	require.NoError(t, store.DeleteBySource(ctx, []string{"https://d/pump"}))
}

func TestMemoryStore_EmptyDocumentSkipped(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Document{
		{DocID: "https://d/empty", Text: "", SourceURL: "https://d/empty"},
	}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)
}

func TestMemoryStore_Ephemeral(t *testing.T) {
	assert.True(t, newTestStore().Ephemeral())
}
