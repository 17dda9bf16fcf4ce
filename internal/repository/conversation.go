package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConversationRepository persists per-thread message history.
type ConversationRepository struct {
	db     dbtx
	runner *TxRunner
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: pool, runner: NewTxRunner(pool)}
}

func NewConversationRepositoryWithTx(tx pgx.Tx) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

// Load returns the thread's history in insertion order. An unknown thread has an empty history.
func (r *ConversationRepository) Load(ctx context.Context, threadID string) (*domain.ConversationState, error) {
	rows, err := r.db.Query(ctx,
		`SELECT role, content, context, created_at
		 FROM conversation_messages
		 WHERE thread_id = $1
		 ORDER BY id ASC`,
		threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	state := &domain.ConversationState{ThreadID: threadID, Messages: []domain.Message{}}
	for rows.Next() {
		var m domain.Message
		var role, contextText string
		if err := rows.Scan(&role, &m.Content, &contextText, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		state.Messages = append(state.Messages, m)
		state.Context = contextText
	}
	return state, rows.Err()
}

// Append stores messages for the thread in one transaction, tagging each with
// the turn's context string.
func (r *ConversationRepository) Append(ctx context.Context, threadID, contextText string, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if err := domain.ValidateMessage(m); err != nil {
			return err
		}
	}

	insert := func(repo *ConversationRepository) error {
		for _, m := range messages {
			createdAt := m.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			_, err := repo.db.Exec(ctx,
				`INSERT INTO conversation_messages (thread_id, role, content, context, created_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				threadID, string(m.Role), m.Content, contextText, createdAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if r.runner == nil {
		return insert(r)
	}
	return r.runner.WithTx(ctx, func(repos *TxRepositories) error {
		return insert(repos.Conversations())
	})
}

// Delete removes the thread's history.
func (r *ConversationRepository) Delete(ctx context.Context, threadID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM conversation_messages WHERE thread_id = $1`, threadID)
	return err
}
