package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumpside/fueldocs/internal/config"
)

func TestBuildEngine_OfflineSkipsVectorStoreDial(t *testing.T) {
	// Non-routable host: any dial attempt would burn the whole
	// health-check retry window before falling back.
	cfg := &config.Config{
		QdrantHost:   "192.0.2.1",
		QdrantPort:   6334,
		OfflineOnly:  true,
		TopK:         10,
		ChunkSize:    1500,
		ChunkOverlap: 150,
	}

	start := time.Now()
	engine, store, err := buildEngine(context.Background(), cfg, newLogger())
	require.NoError(t, err)
	defer store.Close()

	assert.Less(t, time.Since(start), 5*time.Second, "offline mode must not dial the vector store")
	assert.True(t, store.Ephemeral())

	answer, err := engine.Ask(context.Background(), "which pump for 400 hp?")
	require.NoError(t, err)
	assert.Equal(t, "offline", answer.ModelSlug)
}
