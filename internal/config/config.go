// Package config resolves process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration for ingestion and query.
// Values are resolved once at startup; components receive what they
// need through constructors, never by reading the environment directly.
type Config struct {
	// Ingestion source
	RootSitemapURL string `env:"CORPUS_ROOT_SITEMAP_URL"`

	// Model identifiers (opaque to this process)
	EmbeddingModelID    string `env:"EMBEDDING_MODEL_ID" envDefault:"text-embedding-3-small"`
	CheapModelID        string `env:"GENERATOR_CHEAP_MODEL_ID" envDefault:"gpt-4o-mini"`
	ExpensiveModelID    string `env:"GENERATOR_EXPENSIVE_MODEL_ID" envDefault:"gpt-4o"`
	GeneratorCredential string `env:"GENERATOR_CREDENTIAL"`

	// Persistent core state
	QdrantHost       string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort       int    `env:"QDRANT_PORT" envDefault:"6334"`
	DocumentIndexDir string `env:"DOCUMENT_INDEX_DIR" envDefault:"./data/docindex"`
	StateFilePath    string `env:"STATE_FILE_PATH" envDefault:"./data/ingest_state.json"`

	// Query behavior
	OverridesFilePath string `env:"OVERRIDES_FILE_PATH"`
	OfflineOnly       bool   `env:"OFFLINE_ONLY" envDefault:"false"`
	TopK              int    `env:"QUERY_TOP_K" envDefault:"10"`

	// Chunking
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1500"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"150"`

	// HTTP surface
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)",
			cfg.ChunkOverlap, cfg.ChunkSize)
	}
	return cfg, nil
}

// RetrievalOnly reports whether the generator credential is absent,
// which forces query mode to skip generation entirely.
func (c *Config) RetrievalOnly() bool {
	return c.GeneratorCredential == ""
}
