package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
)

// ChatModel produces one reply for an ordered message list.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.Message) (string, error)
}

// ContextRetriever finds the passages relevant to a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, queryText string, topK int) ([]string, error)
}

// PromptRenderer fills the answering template with retrieved context.
type PromptRenderer interface {
	RenderRAG(context string) string
}

// Checkpointer persists conversation history per thread.
type Checkpointer interface {
	Load(ctx context.Context, threadID string) (*domain.ConversationState, error)
	Append(ctx context.Context, threadID, contextText string, messages ...domain.Message) error
}

// Engine runs conversation turns: retrieve, prompt, answer, remember.
type Engine struct {
	retriever ContextRetriever
	model     ChatModel
	prompts   PromptRenderer
	history   Checkpointer
	topK      int
	locks     *threadLocks
}

func NewEngine(retriever ContextRetriever, model ChatModel, prompts PromptRenderer, history Checkpointer, topK int) *Engine {
	if history == nil {
		history = NewMemoryCheckpointer()
	}
	return &Engine{
		retriever: retriever,
		model:     model,
		prompts:   prompts,
		history:   history,
		topK:      topK,
		locks:     newThreadLocks(),
	}
}

// Chat runs a turn on the default thread.
func (e *Engine) Chat(ctx context.Context, userInput string) (string, error) {
	return e.Turn(ctx, domain.DefaultThreadID, userInput)
}

// Turn answers userInput in the context of the thread's history. Turns on the
// same thread run one at a time; a turn still waiting for its thread when ctx
// ends returns ctx.Err(). History is only extended when the model replies; a
// failed turn leaves the thread unchanged.
func (e *Engine) Turn(ctx context.Context, threadID, userInput string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", domain.ErrEmptyThreadID
	}
	if strings.TrimSpace(userInput) == "" {
		return "", domain.ErrEmptyUserInput
	}

	unlock, err := e.locks.lock(ctx, threadID)
	if err != nil {
		return "", err
	}
	defer unlock()

	ctx, span := telemetry.StartSpan(ctx, "engine.turn", telemetry.SpanAttributes{ThreadID: threadID, Operation: "chat"})
	reply, err := e.turn(ctx, threadID, userInput)
	span.Finish(err)
	return reply, err
}

func (e *Engine) turn(ctx context.Context, threadID, userInput string) (string, error) {
	docs, err := e.retriever.Retrieve(ctx, userInput, e.topK)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	contextText := strings.Join(docs, "\n")

	state, err := e.history.Load(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	userMsg := domain.NewMessage(domain.RoleUser, userInput)

	messages := make([]domain.Message, 0, len(state.Messages)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: e.prompts.RenderRAG(contextText)})
	messages = append(messages, state.Messages...)
	messages = append(messages, userMsg)

	reply, err := e.model.Chat(ctx, messages)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "chat model request failed", err)
	}

	if err := e.history.Append(ctx, threadID, contextText, userMsg, domain.NewMessage(domain.RoleAssistant, reply)); err != nil {
		return "", fmt.Errorf("failed to save history: %w", err)
	}

	slog.Debug("turn completed", "thread_id", threadID, "context_chunks", len(docs), "history", len(state.Messages)+2)
	return reply, nil
}

// History returns the thread's stored messages.
func (e *Engine) History(ctx context.Context, threadID string) (*domain.ConversationState, error) {
	return e.history.Load(ctx, threadID)
}

// MemoryCheckpointer keeps history in process memory.
type MemoryCheckpointer struct {
	mu      sync.RWMutex
	threads map[string]*domain.ConversationState
}

func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{threads: make(map[string]*domain.ConversationState)}
}

// Load returns a copy of the thread's state; unknown threads are empty.
func (m *MemoryCheckpointer) Load(ctx context.Context, threadID string) (*domain.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := &domain.ConversationState{ThreadID: threadID, Messages: []domain.Message{}}
	if s, ok := m.threads[threadID]; ok {
		state.Messages = append(state.Messages, s.Messages...)
		state.Context = s.Context
	}
	return state, nil
}

func (m *MemoryCheckpointer) Append(ctx context.Context, threadID, contextText string, messages ...domain.Message) error {
	for _, msg := range messages {
		if err := domain.ValidateMessage(msg); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.threads[threadID]
	if !ok {
		s = &domain.ConversationState{ThreadID: threadID}
		m.threads[threadID] = s
	}
	s.Messages = append(s.Messages, messages...)
	s.Context = contextText
	return nil
}

// threadLocks hands out one lock per thread id and forgets it once unused.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	held chan struct{}
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// lock waits for the thread's lock or for ctx to end.
func (t *threadLocks) lock(ctx context.Context, threadID string) (func(), error) {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &threadLock{held: make(chan struct{}, 1)}
		t.locks[threadID] = l
	}
	l.refs++
	t.mu.Unlock()

	select {
	case l.held <- struct{}{}:
		return func() {
			<-l.held
			t.release(threadID, l)
		}, nil
	case <-ctx.Done():
		t.release(threadID, l)
		return nil, ctx.Err()
	}
}

func (t *threadLocks) release(threadID string, l *threadLock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, threadID)
	}
}
