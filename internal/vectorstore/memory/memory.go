// Package memory is an in-process vector store backend using brute-force cosine distance.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/google/uuid"
)

var errDimensionMismatch = errors.New("vector dimension mismatch")

// Storage keeps collections, records and markers in memory.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]*domain.Collection // by name
	records     map[string][]domain.VectorRecord
	markers     map[string]domain.IngestionMarker
}

func NewStorage() *Storage {
	return &Storage{
		collections: make(map[string]*domain.Collection),
		records:     make(map[string][]domain.VectorRecord),
		markers:     make(map[string]domain.IngestionMarker),
	}
}

func (s *Storage) EnsureCollection(ctx context.Context, name string, dimensions int) (*domain.Collection, error) {
	if dimensions <= 0 {
		return nil, errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		cp := *c
		return &cp, nil
	}
	c := &domain.Collection{
		ID:         uuid.NewString(),
		Name:       name,
		Dimensions: dimensions,
		CreatedAt:  time.Now().UTC(),
	}
	s.collections[name] = c
	cp := *c
	return &cp, nil
}

func (s *Storage) dimensionsOf(collectionID string) int {
	for _, c := range s.collections {
		if c.ID == collectionID {
			return c.Dimensions
		}
	}
	return 0
}

func (s *Storage) Insert(ctx context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		dims := s.dimensionsOf(r.Collection)
		if dims == 0 {
			return domain.ErrCollectionNotFound
		}
		if len(r.Embedding) != dims {
			return errDimensionMismatch
		}
	}
	for _, r := range records {
		r.Embedding = append([]float32(nil), r.Embedding...)
		s.records[r.Collection] = append(s.records[r.Collection], r)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, collectionID string, embedding []float32, limit int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[collectionID]
	results := make([]domain.SearchResult, len(records))
	for i, r := range records {
		results[i] = domain.SearchResult{Record: r, Distance: cosineDistance(r.Embedding, embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context, collectionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[collectionID]), nil
}

func (s *Storage) Reset(ctx context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, collectionID)
	delete(s.markers, collectionID)
	return nil
}

func (s *Storage) GetMarker(ctx context.Context, collectionID string) (*domain.IngestionMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[collectionID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *Storage) SaveMarker(ctx context.Context, marker *domain.IngestionMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[marker.Collection] = *marker
	return nil
}

// cosineDistance is 1 - cos(a, b); zero vectors are maximally distant.
func cosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
