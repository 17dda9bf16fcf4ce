package memory

import (
	"context"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_EnsureCollectionIsIdempotent(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	first, err := s.EnsureCollection(ctx, "assignment", 3)
	require.NoError(t, err)
	second, err := s.EnsureCollection(ctx, "assignment", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "assignment", second.Name)
}

func TestStorage_SearchRanksByCosineDistance(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	c, err := s.EnsureCollection(ctx, "docs", 2)
	require.NoError(t, err)

	require.NoError(t, s.Insert(ctx, []domain.VectorRecord{
		{ID: "0", Collection: c.ID, Text: "east", Embedding: []float32{1, 0}},
		{ID: "1", Collection: c.ID, Text: "north", Embedding: []float32{0, 1}},
		{ID: "2", Collection: c.ID, Text: "north-east", Embedding: []float32{1, 1}},
	}))

	results, err := s.Search(ctx, c.ID, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "north", results[0].Record.Text)
	assert.Equal(t, "north-east", results[1].Record.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestStorage_InsertRejectsWrongDimensions(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	c, err := s.EnsureCollection(ctx, "docs", 3)
	require.NoError(t, err)

	err = s.Insert(ctx, []domain.VectorRecord{{ID: "0", Collection: c.ID, Text: "x", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, errDimensionMismatch)

	n, err := s.Count(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStorage_ResetClearsRecordsAndMarker(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()
	c, err := s.EnsureCollection(ctx, "docs", 1)
	require.NoError(t, err)

	require.NoError(t, s.Insert(ctx, []domain.VectorRecord{{ID: "0", Collection: c.ID, Text: "x", Embedding: []float32{1}}}))
	require.NoError(t, s.SaveMarker(ctx, &domain.IngestionMarker{Collection: c.ID, ContentHash: "h", RecordCount: 1, Completed: true}))

	marker, err := s.GetMarker(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, marker.Matches("h", 1))

	require.NoError(t, s.Reset(ctx, c.ID))

	n, err := s.Count(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	marker, err = s.GetMarker(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, marker)
}
