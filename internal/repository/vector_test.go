//go:build integration

package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRepository_EnsureCollection(t *testing.T) {
	ctx := context.Background()
	_, pool := testutil.StartPostgres(ctx, t)

	repo := NewVectorRepository(pool)

	first, err := repo.EnsureCollection(ctx, "assignment", 3)
	require.NoError(t, err)
	second, err := repo.EnsureCollection(ctx, "assignment", 3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Dimensions)

	_, err = repo.GetCollection(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestVectorRepository_InsertSearchCount(t *testing.T) {
	ctx := context.Background()
	_, pool := testutil.StartPostgres(ctx, t)

	repo := NewVectorRepository(pool)
	c, err := repo.EnsureCollection(ctx, "assignment", 3)
	require.NoError(t, err)

	records := []domain.VectorRecord{
		{ID: "0", Collection: c.ID, Text: "Paris is the capital of France.", Embedding: []float32{1, 0, 0.1}},
		{ID: "1", Collection: c.ID, Text: "Berlin is the capital of Germany.", Embedding: []float32{0, 1, 0.1}},
	}
	require.NoError(t, repo.Insert(ctx, records))

	n, err := repo.Count(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := repo.Search(ctx, c.ID, []float32{1, 0, 0.1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Paris is the capital of France.", results[0].Record.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)
}

func TestVectorRepository_InsertIsAtomicPerBatch(t *testing.T) {
	ctx := context.Background()
	_, pool := testutil.StartPostgres(ctx, t)

	repo := NewVectorRepository(pool)
	c, err := repo.EnsureCollection(ctx, "assignment", 1)
	require.NoError(t, err)

	batch := make([]domain.VectorRecord, 3)
	for i := range batch {
		batch[i] = domain.VectorRecord{ID: strconv.Itoa(i), Collection: c.ID, Text: "t", Embedding: []float32{1}}
	}
	batch[2].ID = "0" // duplicate primary key fails the batch

	require.Error(t, repo.Insert(ctx, batch))

	n, err := repo.Count(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestVectorRepository_MarkerAndReset(t *testing.T) {
	ctx := context.Background()
	_, pool := testutil.StartPostgres(ctx, t)

	repo := NewVectorRepository(pool)
	c, err := repo.EnsureCollection(ctx, "assignment", 1)
	require.NoError(t, err)

	marker, err := repo.GetMarker(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, marker)

	require.NoError(t, repo.Insert(ctx, []domain.VectorRecord{{ID: "0", Collection: c.ID, Text: "t", Embedding: []float32{1}}}))
	require.NoError(t, repo.SaveMarker(ctx, &domain.IngestionMarker{
		Collection:  c.ID,
		ContentHash: "abc",
		RecordCount: 1,
		Completed:   true,
		CompletedAt: time.Now().UTC().Truncate(time.Microsecond),
	}))

	marker, err = repo.GetMarker(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, marker.Matches("abc", 1))

	require.NoError(t, repo.Reset(ctx, c.ID))

	n, err := repo.Count(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	marker, err = repo.GetMarker(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, marker)
}
