package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const upsertBatchSize = 100

// Qdrant talks to a Qdrant index server over gRPC.
type Qdrant struct {
	host   string
	port   int
	metric Metric

	mu     sync.Mutex
	client *qdrant.Client
}

// NewQdrant builds an unconnected Qdrant store. Call Connect before use.
func NewQdrant(host string, port int, metric Metric) *Qdrant {
	if metric == "" {
		metric = MetricCosine
	}
	return &Qdrant{host: host, port: port, metric: metric}
}

// Connect dials the server and waits for it to report healthy. Safe to call
// more than once.
func (s *Qdrant) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return nil
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: s.host,
		Port: s.port,
	})
	if err != nil {
		return fmt.Errorf("create qdrant client: %w", err)
	}

	if err := healthCheckWithRetry(ctx, client); err != nil {
		client.Close()
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	s.client = client
	return nil
}

// healthCheckWithRetry polls the server health endpoint with exponential
// backoff. Initial interval 500ms, max interval 10s, max elapsed 30s.
func healthCheckWithRetry(ctx context.Context, client *qdrant.Client) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		result, err := client.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("health check: %w", err)
		}
		if result == nil || result.Title == "" {
			return fmt.Errorf("health check returned invalid response")
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (s *Qdrant) conn() (*qdrant.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

// Close releases the gRPC connection.
func (s *Qdrant) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// Inline reports false: vectors live in the index server, not on chunk rows.
func (s *Qdrant) Inline() bool { return false }

func (s *Qdrant) distance() qdrant.Distance {
	if s.metric == MetricDot {
		return qdrant.Distance_Dot
	}
	return qdrant.Distance_Cosine
}

// EnsureCollection creates the collection if it does not exist. Idempotent.
func (s *Qdrant) EnsureCollection(ctx context.Context, name string, dimension int) error {
	client, err := s.conn()
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: s.distance(),
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// ResetCollection deletes the collection outright. Recreation happens on the
// next EnsureCollection, so a dimension change takes effect cleanly.
func (s *Qdrant) ResetCollection(ctx context.Context, name string) (bool, error) {
	client, err := s.conn()
	if err != nil {
		return false, err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		return false, nil
	}
	if err := client.DeleteCollection(ctx, name); err != nil {
		return false, fmt.Errorf("delete collection %s: %w", name, err)
	}
	return true, nil
}

// InsertMany upserts the batch in groups of 100. InsertNew assigns fresh
// UUID point ids; AttachVectors addresses points by the chunk row ids, so a
// repeated ingest of the same rows updates the points in place.
func (s *Qdrant) InsertMany(ctx context.Context, name string, batch *InsertBatch) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return err
	}
	if len(batch.Texts) == 0 {
		return nil
	}

	for start := 0; start < len(batch.Texts); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(batch.Texts) {
			end = len(batch.Texts)
		}

		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			var id *qdrant.PointId
			if batch.Mode == AttachVectors {
				id = qdrant.NewIDNum(uint64(batch.ExternalIDs[i]))
			} else {
				id = qdrant.NewIDUUID(uuid.NewString())
			}

			payload := map[string]any{"text": batch.Texts[i]}
			if batch.Metadata != nil {
				for k, v := range batch.Metadata[i] {
					payload[k] = v
				}
			}

			points = append(points, &qdrant.PointStruct{
				Id:      id,
				Vectors: qdrant.NewVectors(batch.Vectors[i]...),
				Payload: qdrant.NewValueMap(payload),
			})
		}

		_, err := client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// Search queries the collection for the nearest points. A collection that
// was never created yields no matches.
func (s *Qdrant) Search(ctx context.Context, name string, vector []float32, limit int) ([]Match, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		return nil, nil
	}

	results, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", name, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, Match{
			Text:  result.Payload["text"].GetStringValue(),
			Score: result.Score,
		})
	}
	return matches, nil
}

// CollectionInfo reports the exact point count. A missing collection counts
// as empty.
func (s *Qdrant) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}

	exists, err := client.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		return &CollectionInfo{}, nil
	}

	count, err := client.Count(ctx, &qdrant.CountPoints{
		CollectionName: name,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("count collection %s: %w", name, err)
	}
	return &CollectionInfo{RecordCount: count}, nil
}
