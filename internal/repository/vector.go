package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// VectorRepository stores collections, vector records and ingestion markers in
// Postgres with pgvector. It implements vectorstore.Backend.
type VectorRepository struct {
	db     dbtx
	runner *TxRunner
}

func NewVectorRepository(pool *pgxpool.Pool) *VectorRepository {
	return &VectorRepository{db: pool, runner: NewTxRunner(pool)}
}

func NewVectorRepositoryWithTx(tx pgx.Tx) *VectorRepository {
	return &VectorRepository{db: tx}
}

// atomically runs fn in a transaction unless the repository is already bound to one.
func (r *VectorRepository) atomically(ctx context.Context, fn func(repo *VectorRepository) error) error {
	if r.runner == nil {
		return fn(r)
	}
	return r.runner.WithTx(ctx, func(repos *TxRepositories) error {
		return fn(repos.Vectors())
	})
}

func (r *VectorRepository) EnsureCollection(ctx context.Context, name string, dimensions int) (*domain.Collection, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO collections (id, name, dimensions, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO NOTHING`,
		uuid.NewString(), name, dimensions, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return r.GetCollection(ctx, name)
}

func (r *VectorRepository) GetCollection(ctx context.Context, name string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx,
		`SELECT id, name, dimensions, created_at FROM collections WHERE name = $1`,
		name,
	).Scan(&c.ID, &c.Name, &c.Dimensions, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Insert stores one batch of records in a single transaction.
func (r *VectorRepository) Insert(ctx context.Context, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.atomically(ctx, func(repo *VectorRepository) error {
		now := time.Now().UTC()
		for _, rec := range records {
			_, err := repo.db.Exec(ctx,
				`INSERT INTO vector_records (collection_id, id, content, embedding, created_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				rec.Collection, rec.ID, rec.Text, pgvector.NewVector(rec.Embedding), now,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Search returns the records nearest to embedding by cosine distance.
func (r *VectorRepository) Search(ctx context.Context, collectionID string, embedding []float32, limit int) ([]domain.SearchResult, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, content, embedding <=> $2 AS distance
		 FROM vector_records
		 WHERE collection_id = $1
		 ORDER BY distance ASC, created_at ASC
		 LIMIT $3`,
		collectionID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		res := domain.SearchResult{Record: domain.VectorRecord{Collection: collectionID}}
		if err := rows.Scan(&res.Record.ID, &res.Record.Text, &res.Distance); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *VectorRepository) Count(ctx context.Context, collectionID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM vector_records WHERE collection_id = $1`,
		collectionID,
	).Scan(&n)
	return n, err
}

// Reset deletes every record and the marker of the collection in one transaction.
func (r *VectorRepository) Reset(ctx context.Context, collectionID string) error {
	return r.atomically(ctx, func(repo *VectorRepository) error {
		if _, err := repo.db.Exec(ctx, `DELETE FROM ingestion_markers WHERE collection_id = $1`, collectionID); err != nil {
			return err
		}
		_, err := repo.db.Exec(ctx, `DELETE FROM vector_records WHERE collection_id = $1`, collectionID)
		return err
	})
}

func (r *VectorRepository) GetMarker(ctx context.Context, collectionID string) (*domain.IngestionMarker, error) {
	var m domain.IngestionMarker
	var completedAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT collection_id, content_hash, record_count, completed, completed_at
		 FROM ingestion_markers WHERE collection_id = $1`,
		collectionID,
	).Scan(&m.Collection, &m.ContentHash, &m.RecordCount, &m.Completed, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if completedAt != nil {
		m.CompletedAt = *completedAt
	}
	return &m, nil
}

func (r *VectorRepository) SaveMarker(ctx context.Context, marker *domain.IngestionMarker) error {
	var completedAt *time.Time
	if !marker.CompletedAt.IsZero() {
		completedAt = &marker.CompletedAt
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingestion_markers (collection_id, content_hash, record_count, completed, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (collection_id) DO UPDATE
		 SET content_hash = EXCLUDED.content_hash,
		     record_count = EXCLUDED.record_count,
		     completed = EXCLUDED.completed,
		     completed_at = EXCLUDED.completed_at`,
		marker.Collection, marker.ContentHash, marker.RecordCount, marker.Completed, completedAt,
	)
	return err
}
