package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/pumpside/fueldocs/internal/embedding"
)

// CollectionName is the single Qdrant collection for the corpus.
const CollectionName = "fuel_docs"

// deleteBatchSize bounds the number of URLs matched per delete call.
const deleteBatchSize = 100

// QdrantStore is the persistent Store implementation backed by Qdrant.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	splitter Splitter
}

// NewQdrantStore connects to Qdrant, verifies health with backoff and
// ensures the collection exists. Fails with ErrUnreachable if the
// server cannot be reached within the retry window; callers may then
// fall back to the ephemeral in-memory store.
func NewQdrantStore(ctx context.Context, host string, port int, embedder Embedder, splitter Splitter) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &QdrantStore{
		client:   client,
		embedder: embedder,
		splitter: splitter,
	}

	if err := s.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := s.ensureCollection(ctx); err != nil {
		client.Close()
		return nil, err
	}

	return s, nil
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 15 * time.Second

	operation := func() error {
		result, err := s.client.HealthCheck(ctx)
		if err != nil {
			return err
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// ensureCollection creates the collection and the payload index used
// by delete-by-source. Idempotent.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(embedding.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	// Without this index, delete-by-source degrades to a full scan.
	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "source_url",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create source_url index: %w", err)
	}

	return nil
}

// Upsert chunks each document, embeds the chunks and writes them as
// points. Existing chunks for the same source URL are removed first so
// a refresh fully replaces the document.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		pieces := s.splitter.Split(doc.Text)
		if len(pieces) == 0 {
			continue
		}

		vectors, err := s.embedder.Embed(ctx, pieces)
		if err != nil {
			return fmt.Errorf("embed %s: %w", doc.DocID, err)
		}

		// Replace-by-doc_id: Qdrant has no native replace, so clear
		// the URL's chunks before inserting the fresh ones.
		if err := s.DeleteBySource(ctx, []string{doc.SourceURL}); err != nil {
			return err
		}

		points := make([]*qdrant.PointStruct, len(pieces))
		for i, piece := range pieces {
			if len(vectors[i]) != embedding.Dimension {
				return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
					ErrDimensionMismatch, i, len(vectors[i]), embedding.Dimension)
			}
			points[i] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuid.New().String()),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"source_url":  doc.SourceURL,
					"chunk_index": i,
					"content":     piece,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert %s: %w", doc.DocID, err)
		}
	}
	return nil
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// DeleteBySource removes every chunk whose source_url is in urls,
// batching the filter at 100 URLs per call.
func (s *QdrantStore) DeleteBySource(ctx context.Context, urls []string) error {
	for i := 0; i < len(urls); i += deleteBatchSize {
		end := min(i+deleteBatchSize, len(urls))
		batch := urls[i:end]

		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: CollectionName,
			Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
				Must: []*qdrant.Condition{
					qdrant.NewMatchKeywords("source_url", batch...),
				},
			}),
		})
		if err != nil {
			return fmt.Errorf("delete by source (%d urls): %w", len(batch), err)
		}
	}
	return nil
}

// Query embeds the question and returns the top-k chunks in
// score-descending order.
func (s *QdrantStore) Query(ctx context.Context, question string, k int) ([]RetrievedChunk, error) {
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}

	chunks := make([]RetrievedChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		chunks = append(chunks, RetrievedChunk{
			Text:      payload["content"].GetStringValue(),
			Score:     float64(result.Score),
			SourceURL: payload["source_url"].GetStringValue(),
		})
	}
	return chunks, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	return collection.GetPointsCount(), nil
}

// Ephemeral is always false: Qdrant persists across restarts.
func (s *QdrantStore) Ephemeral() bool { return false }

// Close closes the client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
