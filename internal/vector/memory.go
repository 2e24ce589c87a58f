package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an ephemeral Store used when Qdrant is unreachable,
// and as the stub engine in tests. It satisfies the same interface but
// loses all data on shutdown; the coordinator detects this through
// Ephemeral and refuses to advance the state file.
type MemoryStore struct {
	embedder Embedder
	splitter Splitter

	mu     sync.RWMutex
	chunks []memChunk
}

type memChunk struct {
	text      string
	sourceURL string
	vector    []float32
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embedder Embedder, splitter Splitter) *MemoryStore {
	return &MemoryStore{embedder: embedder, splitter: splitter}
}

// Upsert chunks, embeds and stores documents, replacing any chunks
// that share a document's source URL.
func (s *MemoryStore) Upsert(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		pieces := s.splitter.Split(doc.Text)
		if len(pieces) == 0 {
			continue
		}
		vectors, err := s.embedder.Embed(ctx, pieces)
		if err != nil {
			return err
		}

		s.mu.Lock()
		s.removeLocked(doc.SourceURL)
		for i, piece := range pieces {
			s.chunks = append(s.chunks, memChunk{
				text:      piece,
				sourceURL: doc.SourceURL,
				vector:    vectors[i],
			})
		}
		s.mu.Unlock()
	}
	return nil
}

// DeleteBySource removes all chunks for the given URLs.
func (s *MemoryStore) DeleteBySource(_ context.Context, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, url := range urls {
		s.removeLocked(url)
	}
	return nil
}

func (s *MemoryStore) removeLocked(sourceURL string) {
	kept := s.chunks[:0]
	for _, c := range s.chunks {
		if c.sourceURL != sourceURL {
			kept = append(kept, c)
		}
	}
	s.chunks = kept
}

// Query embeds the question and scans for the top-k cosine matches.
func (s *MemoryStore) Query(ctx context.Context, question string, k int) ([]RetrievedChunk, error) {
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	query := vectors[0]

	s.mu.RLock()
	results := make([]RetrievedChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, RetrievedChunk{
			Text:      c.text,
			Score:     cosine(query, c.vector),
			SourceURL: c.sourceURL,
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.chunks)), nil
}

// SourceURLs returns the distinct source URLs present in the store.
// Test helper for verifying index contents.
func (s *MemoryStore) SourceURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	var urls []string
	for _, c := range s.chunks {
		if _, ok := seen[c.sourceURL]; !ok {
			seen[c.sourceURL] = struct{}{}
			urls = append(urls, c.sourceURL)
		}
	}
	sort.Strings(urls)
	return urls
}

// Ephemeral is always true for the in-memory store.
func (s *MemoryStore) Ephemeral() bool { return true }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return -1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
