// Package vector abstracts the embedding index keyed by source URL.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrUnreachable means the vector engine could not be reached.
	ErrUnreachable = errors.New("vector store unreachable")
	// ErrDimensionMismatch means a vector had the wrong size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Document is the unit of upsert. DocID equals the source URL so that
// re-ingestion can be expressed as delete-by-source followed by insert.
type Document struct {
	DocID     string
	Text      string
	SourceURL string
}

// RetrievedChunk is one nearest-neighbor hit. Scores are cosine
// similarities, higher is better.
type RetrievedChunk struct {
	Text      string
	Score     float64
	SourceURL string
}

// Embedder is the embedding capability the store needs. Satisfied by
// *embedding.Embedder and by test stubs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the capability set the pipeline requires from the engine.
// Upsert chunks documents internally per the configured splitter and
// replaces any existing chunks sharing the document's source URL.
type Store interface {
	Upsert(ctx context.Context, docs []Document) error
	DeleteBySource(ctx context.Context, urls []string) error
	Query(ctx context.Context, question string, k int) ([]RetrievedChunk, error)
	Count(ctx context.Context) (uint64, error)
	// Ephemeral reports whether data is lost on shutdown. The
	// coordinator must not advance the state file when true.
	Ephemeral() bool
	Close() error
}

// Splitter is the chunking capability, satisfied by *textsplit.Splitter.
type Splitter interface {
	Split(text string) []string
}
