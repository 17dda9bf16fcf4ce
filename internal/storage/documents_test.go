package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) PutObject(ctx context.Context, key, contentType string, data []byte) error {
	args := m.Called(ctx, key, contentType, data)
	return args.Error(0)
}

func TestDocuments_ReadSourceLocal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw.pdf"), []byte("%PDF"), 0o644))

	docs := NewDocuments(dir, "raw.pdf", "processed.txt", nil)

	data, err := docs.ReadSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
}

func TestDocuments_ReadSourceMissing(t *testing.T) {
	docs := NewDocuments(t.TempDir(), "raw.pdf", "processed.txt", nil)

	_, err := docs.ReadSource(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDocuments_ReadSourceFromObjectStore(t *testing.T) {
	objects := new(MockObjectStore)
	objects.On("GetObject", mock.Anything, "raw.pdf").Return([]byte("%PDF-remote"), nil)

	docs := NewDocuments(t.TempDir(), "raw.pdf", "processed.txt", objects)

	data, err := docs.ReadSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-remote"), data)
	objects.AssertExpectations(t)
}

func TestDocuments_ReadSourceMissingEverywhere(t *testing.T) {
	objects := new(MockObjectStore)
	objects.On("GetObject", mock.Anything, "raw.pdf").Return(nil, ErrObjectNotFound)

	docs := NewDocuments(t.TempDir(), "raw.pdf", "processed.txt", objects)

	_, err := docs.ReadSource(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDocuments_WriteProcessed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	objects := new(MockObjectStore)
	objects.On("PutObject", mock.Anything, "processed.txt", "text/plain; charset=utf-8", []byte("hello")).Return(nil)

	docs := NewDocuments(dir, "raw.pdf", "processed.txt", objects)

	exists, err := docs.ProcessedExists()
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, docs.WriteProcessed(context.Background(), "hello"))

	exists, err = docs.ProcessedExists()
	require.NoError(t, err)
	assert.True(t, exists)

	text, err := docs.ReadProcessed()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	objects.AssertExpectations(t)
}
