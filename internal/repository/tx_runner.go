package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTx runs fn with repositories bound to one transaction. The transaction
// is committed when fn returns nil and rolled back otherwise.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos *TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &TxRepositories{tx: tx}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

// TxRepositories hands out repositories that share a transaction.
type TxRepositories struct {
	tx pgx.Tx
}

func (r *TxRepositories) Vectors() *VectorRepository {
	return NewVectorRepositoryWithTx(r.tx)
}

func (r *TxRepositories) Conversations() *ConversationRepository {
	return NewConversationRepositoryWithTx(r.tx)
}
