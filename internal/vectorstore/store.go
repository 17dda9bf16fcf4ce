// Package vectorstore stores chunk embeddings in named collections and answers
// nearest-neighbour queries over them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/jobs"
)

// DefaultBatchSize is the number of records embedded and inserted per batch.
const DefaultBatchSize = 100

// EmbeddingFunction turns texts into vectors, one per text.
type EmbeddingFunction interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Backend persists collections, records and ingestion markers.
type Backend interface {
	EnsureCollection(ctx context.Context, name string, dimensions int) (*domain.Collection, error)
	Insert(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, collectionID string, embedding []float32, limit int) ([]domain.SearchResult, error)
	Count(ctx context.Context, collectionID string) (int, error)
	// Reset deletes every record and the marker of the collection.
	Reset(ctx context.Context, collectionID string) error
	GetMarker(ctx context.Context, collectionID string) (*domain.IngestionMarker, error)
	SaveMarker(ctx context.Context, marker *domain.IngestionMarker) error
}

// Collection is a handle on a stored collection bound to an embedding function.
type Collection struct {
	domain.Collection
	embed EmbeddingFunction
}

// Manager is the vector store adapter used by ingestion and retrieval.
type Manager struct {
	backend   Backend
	embed     EmbeddingFunction
	pool      *jobs.Pool
	batchSize int
}

// Option configures a Manager.
type Option func(*Manager)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.batchSize = n
		}
	}
}

// WithPool runs backend and embedding calls on the given pool.
func WithPool(p *jobs.Pool) Option {
	return func(m *Manager) {
		m.pool = p
	}
}

// NewManager creates a Manager over the given backend and embedding function.
func NewManager(backend Backend, embed EmbeddingFunction, opts ...Option) *Manager {
	m := &Manager{
		backend:   backend,
		embed:     embed,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.pool == nil {
		return fn(ctx)
	}
	return m.pool.Do(ctx, fn)
}

// GetOrCreateCollection returns the named collection, creating it when absent.
func (m *Manager) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "collection name is required")
	}

	var coll *domain.Collection
	err := m.run(ctx, func(ctx context.Context) error {
		var err error
		coll, err = m.backend.EnsureCollection(ctx, name, m.embed.Dimensions())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get collection %q: %w", name, err)
	}
	return &Collection{Collection: *coll, embed: m.embed}, nil
}

// AddDocuments embeds and stores texts in batches. Record ids are the texts'
// positions in the input. A failing batch stops the loop; earlier batches stay stored.
func (m *Manager) AddDocuments(ctx context.Context, c *Collection, texts []string) error {
	if c == nil {
		return domain.ErrCollectionNotFound
	}

	return m.run(ctx, func(ctx context.Context) error {
		for start := 0; start < len(texts); start += m.batchSize {
			end := min(start+m.batchSize, len(texts))
			batch := texts[start:end]

			embeddings, err := c.embed.Embed(ctx, batch)
			if err != nil {
				return fmt.Errorf("failed to embed batch at %d: %w", start, err)
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedding function returned %d vectors for %d texts", len(embeddings), len(batch))
			}

			records := make([]domain.VectorRecord, len(batch))
			for i, text := range batch {
				records[i] = domain.VectorRecord{
					ID:         strconv.Itoa(start + i),
					Collection: c.ID,
					Text:       text,
					Embedding:  embeddings[i],
				}
			}

			if err := m.backend.Insert(ctx, records); err != nil {
				return fmt.Errorf("failed to insert batch at %d: %w", start, err)
			}
		}
		return nil
	})
}

// Query embeds the query texts and returns up to nResults stored texts closest
// to the first of them, most similar first.
func (m *Manager) Query(ctx context.Context, c *Collection, queryTexts []string, nResults int) ([]string, error) {
	if c == nil {
		return nil, domain.ErrCollectionNotFound
	}
	if len(queryTexts) == 0 {
		return nil, errors.New("at least one query text is required")
	}
	if nResults <= 0 {
		return []string{}, nil
	}

	var results []domain.SearchResult
	err := m.run(ctx, func(ctx context.Context) error {
		embeddings, err := c.embed.Embed(ctx, queryTexts)
		if err != nil {
			return fmt.Errorf("failed to embed query: %w", err)
		}
		if len(embeddings) == 0 {
			return nil
		}
		results, err = m.backend.Search(ctx, c.ID, embeddings[0], nResults)
		return err
	})
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Record.Text)
	}
	return texts, nil
}

// Count returns the number of records in the collection.
func (m *Manager) Count(ctx context.Context, c *Collection) (int, error) {
	if c == nil {
		return 0, domain.ErrCollectionNotFound
	}
	var n int
	err := m.run(ctx, func(ctx context.Context) error {
		var err error
		n, err = m.backend.Count(ctx, c.ID)
		return err
	})
	return n, err
}

// Marker returns the ingestion marker of the collection, or nil when it was never populated.
func (m *Manager) Marker(ctx context.Context, c *Collection) (*domain.IngestionMarker, error) {
	if c == nil {
		return nil, domain.ErrCollectionNotFound
	}
	return m.backend.GetMarker(ctx, c.ID)
}

// CompleteIngestion records that the collection holds recordCount records for contentHash.
func (m *Manager) CompleteIngestion(ctx context.Context, c *Collection, contentHash string, recordCount int) error {
	if c == nil {
		return domain.ErrCollectionNotFound
	}
	return m.backend.SaveMarker(ctx, &domain.IngestionMarker{
		Collection:  c.ID,
		ContentHash: contentHash,
		RecordCount: recordCount,
		Completed:   true,
		CompletedAt: time.Now().UTC(),
	})
}

// Reset empties the collection and clears its marker.
func (m *Manager) Reset(ctx context.Context, c *Collection) error {
	if c == nil {
		return domain.ErrCollectionNotFound
	}
	return m.run(ctx, func(ctx context.Context) error {
		return m.backend.Reset(ctx, c.ID)
	})
}
