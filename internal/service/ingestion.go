package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/jobs"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
)

// VectorStore is the vector store adapter used by ingestion and retrieval.
type VectorStore interface {
	GetOrCreateCollection(ctx context.Context, name string) (*vectorstore.Collection, error)
	AddDocuments(ctx context.Context, c *vectorstore.Collection, texts []string) error
	Query(ctx context.Context, c *vectorstore.Collection, queryTexts []string, nResults int) ([]string, error)
	Count(ctx context.Context, c *vectorstore.Collection) (int, error)
	Marker(ctx context.Context, c *vectorstore.Collection) (*domain.IngestionMarker, error)
	CompleteIngestion(ctx context.Context, c *vectorstore.Collection, contentHash string, recordCount int) error
	Reset(ctx context.Context, c *vectorstore.Collection) error
}

// IngestionResult describes what an ingestion run did.
type IngestionResult struct {
	Collection string
	Extracted  bool
	Skipped    bool
	Records    int
}

// Initializer prepares the processed text and populates the vector collection.
type Initializer struct {
	extractor  *Extractor
	docs       DocumentStore
	store      VectorStore
	collection string
	chunkCfg   ChunkConfig
	pool       *jobs.Pool
}

func NewInitializer(extractor *Extractor, docs DocumentStore, store VectorStore, collection string, chunkCfg ChunkConfig, pool *jobs.Pool) *Initializer {
	return &Initializer{
		extractor:  extractor,
		docs:       docs,
		store:      store,
		collection: collection,
		chunkCfg:   chunkCfg,
		pool:       pool,
	}
}

// Run extracts the source document when no processed text exists, then
// populates the collection unless a completed marker already matches the
// current chunks and the stored record count. Any other state is treated as
// partial: the collection is reset and repopulated. With force set the
// collection is always repopulated.
func (i *Initializer) Run(ctx context.Context, force bool) (*IngestionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.run", telemetry.SpanAttributes{Collection: i.collection, Operation: "ingest"})
	result, err := i.run(ctx, force)
	span.Finish(err)
	return result, err
}

func (i *Initializer) run(ctx context.Context, force bool) (*IngestionResult, error) {
	result := &IngestionResult{Collection: i.collection}

	exists, err := i.docs.ProcessedExists()
	if err != nil {
		return nil, fmt.Errorf("failed to check processed text: %w", err)
	}

	var text string
	if exists {
		slog.Info("processed text found, skipping extraction")
		text, err = jobs.Run(ctx, i.pool, func(ctx context.Context) (string, error) {
			return i.docs.ReadProcessed()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read processed text: %w", err)
		}
	} else {
		slog.Info("processed text not found, starting extraction")
		text, err = i.extractor.ProcessAndSave(ctx)
		if err != nil {
			return nil, err
		}
		result.Extracted = true
	}

	chunks := ChunkTexts(SplitText(text, i.chunkCfg))
	hash := contentHash(chunks, i.chunkCfg)

	coll, err := i.store.GetOrCreateCollection(ctx, i.collection)
	if err != nil {
		return nil, err
	}

	if !force {
		marker, err := i.store.Marker(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("failed to read ingestion marker: %w", err)
		}
		count, err := i.store.Count(ctx, coll)
		if err != nil {
			return nil, fmt.Errorf("failed to count records: %w", err)
		}
		if marker.Matches(hash, len(chunks)) && count == len(chunks) {
			slog.Info("collection already populated", "collection", i.collection, "records", count)
			result.Skipped = true
			result.Records = count
			return result, nil
		}
		if count > 0 || marker != nil {
			slog.Warn("collection incomplete or stale, repopulating", "collection", i.collection, "records", count)
		}
	}

	if err := i.store.Reset(ctx, coll); err != nil {
		return nil, fmt.Errorf("failed to reset collection: %w", err)
	}

	slog.Info("populating collection", "collection", i.collection, "chunks", len(chunks))
	if err := i.store.AddDocuments(ctx, coll, chunks); err != nil {
		return nil, err
	}
	if err := i.store.CompleteIngestion(ctx, coll, hash, len(chunks)); err != nil {
		return nil, fmt.Errorf("failed to record ingestion: %w", err)
	}

	result.Records = len(chunks)
	return result, nil
}

// contentHash identifies a chunk sequence together with the settings that produced it.
func contentHash(chunks []string, cfg ChunkConfig) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(cfg.ChunkSize) + ":" + strconv.Itoa(cfg.Overlap) + "\n"))
	for _, c := range chunks {
		h.Write([]byte(strconv.Itoa(len(c))))
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))
}
