package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/storage"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
	"github.com/cloo-solutions/ragchat/internal/vectorstore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDocumentModel mocks the multimodal extraction model
type MockDocumentModel struct {
	mock.Mock
}

func (m *MockDocumentModel) ExtractDocument(ctx context.Context, document []byte, mimeType, instruction string) (string, error) {
	args := m.Called(ctx, document, mimeType, instruction)
	return args.String(0), args.Error(1)
}

// countingEmbedder embeds by keyword and counts calls.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *countingEmbedder) Dimensions() int { return 3 }

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := []float32{0, 0, 0.1}
		if strings.Contains(lower, "france") || strings.Contains(lower, "paris") {
			v[0] = 1
		}
		if strings.Contains(lower, "germany") || strings.Contains(lower, "berlin") {
			v[1] = 1
		}
		out[i] = v
	}
	return out, nil
}

func (e *countingEmbedder) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

const capitalsText = "Paris is the capital of France.\n\nBerlin is the capital of Germany."

type ingestionFixture struct {
	dir       string
	docs      *storage.Documents
	model     *MockDocumentModel
	embedder  *countingEmbedder
	store     *vectorstore.Manager
	init      *Initializer
	extractor *Extractor
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()
	dir := t.TempDir()
	pool := jobs.NewPool(2)

	f := &ingestionFixture{
		dir:      dir,
		docs:     storage.NewDocuments(dir, "raw.pdf", "processed.txt", nil),
		model:    new(MockDocumentModel),
		embedder: &countingEmbedder{},
	}
	f.store = vectorstore.NewManager(memory.NewStorage(), f.embedder, vectorstore.WithPool(pool))
	f.extractor = NewExtractor(f.model, f.docs, "Extract.", pool)
	cfg := ChunkConfig{ChunkSize: 40, Overlap: 0, Separators: []string{"\n\n"}}
	f.init = NewInitializer(f.extractor, f.docs, f.store, "assignment", cfg, pool)
	return f
}

func TestInitializer_ExtractsAndPopulates(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "raw.pdf"), []byte("%PDF"), 0o644))
	f.model.On("ExtractDocument", mock.Anything, []byte("%PDF"), SourceMIMEType, "Extract.").Return(capitalsText, nil).Once()

	result, err := f.init.Run(ctx, false)

	require.NoError(t, err)
	assert.True(t, result.Extracted)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.Records)

	processed, err := os.ReadFile(filepath.Join(f.dir, "processed.txt"))
	require.NoError(t, err)
	assert.Equal(t, capitalsText, string(processed))

	coll, err := f.store.GetOrCreateCollection(ctx, "assignment")
	require.NoError(t, err)
	retriever := NewRetriever(f.store, coll)

	texts, err := retriever.Retrieve(ctx, "capital of France", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is the capital of France."}, texts)

	texts, err = retriever.Retrieve(ctx, "capital of Germany", 0)
	require.NoError(t, err)
	require.Len(t, texts, 2)
	assert.Equal(t, "Berlin is the capital of Germany.", texts[0])

	f.model.AssertExpectations(t)
}

func TestInitializer_SecondRunIsNoOp(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "processed.txt"), []byte(capitalsText), 0o644))

	first, err := f.init.Run(ctx, false)
	require.NoError(t, err)
	assert.False(t, first.Extracted)
	calls := f.embedder.count()

	second, err := f.init.Run(ctx, false)
	require.NoError(t, err)

	assert.True(t, second.Skipped)
	assert.Equal(t, 2, second.Records)
	assert.Equal(t, calls, f.embedder.count())
	f.model.AssertNotCalled(t, "ExtractDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	coll, err := f.store.GetOrCreateCollection(ctx, "assignment")
	require.NoError(t, err)
	n, err := f.store.Count(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInitializer_RepopulatesPartialCollection(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "processed.txt"), []byte(capitalsText), 0o644))

	coll, err := f.store.GetOrCreateCollection(ctx, "assignment")
	require.NoError(t, err)
	// a crashed run left one batch and no marker
	require.NoError(t, f.store.AddDocuments(ctx, coll, []string{"Paris is the capital of France."}))

	result, err := f.init.Run(ctx, false)
	require.NoError(t, err)
	assert.False(t, result.Skipped)

	n, err := f.store.Count(ctx, coll)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	marker, err := f.store.Marker(ctx, coll)
	require.NoError(t, err)
	assert.True(t, marker.Completed)
	assert.Equal(t, 2, marker.RecordCount)
}

func TestInitializer_RepopulatesWhenTextChanges(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()
	path := filepath.Join(f.dir, "processed.txt")
	require.NoError(t, os.WriteFile(path, []byte(capitalsText), 0o644))

	_, err := f.init.Run(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(capitalsText+"\n\nRome is the capital of Italy."), 0o644))
	result, err := f.init.Run(ctx, false)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 3, result.Records)
}

func TestInitializer_ForceRepopulates(t *testing.T) {
	f := newIngestionFixture(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "processed.txt"), []byte(capitalsText), 0o644))

	_, err := f.init.Run(ctx, false)
	require.NoError(t, err)
	calls := f.embedder.count()

	result, err := f.init.Run(ctx, true)
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Greater(t, f.embedder.count(), calls)
}

func TestInitializer_MissingSource(t *testing.T) {
	f := newIngestionFixture(t)

	_, err := f.init.Run(context.Background(), false)

	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestExtractor_UpstreamFailure(t *testing.T) {
	f := newIngestionFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "raw.pdf"), []byte("%PDF"), 0o644))
	f.model.On("ExtractDocument", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota"))

	_, err := f.extractor.ProcessAndSave(context.Background())

	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(f.dir, "processed.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractor_EmptyDocument(t *testing.T) {
	f := newIngestionFixture(t)

	_, err := f.extractor.Extract(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}
