package service

import (
	"context"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/cloo-solutions/ragchat/internal/telemetry"
	"github.com/cloo-solutions/ragchat/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 2

// Retriever answers similarity queries against one collection.
type Retriever struct {
	store VectorStore
	coll  *vectorstore.Collection
}

func NewRetriever(store VectorStore, coll *vectorstore.Collection) *Retriever {
	return &Retriever{store: store, coll: coll}
}

// Retrieve returns up to topK chunk texts most similar to queryText, most
// similar first. A non-positive topK means DefaultTopK.
func (r *Retriever) Retrieve(ctx context.Context, queryText string, topK int) ([]string, error) {
	if r.coll == nil {
		return nil, domain.ErrCollectionNotFound
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	ctx, span := telemetry.StartSpan(ctx, "retrieval.query", telemetry.SpanAttributes{Collection: r.coll.Name, Operation: "retrieve"})
	texts, err := r.store.Query(ctx, r.coll, []string{queryText}, topK)
	span.Finish(err)
	if err != nil {
		return nil, err
	}
	return texts, nil
}
