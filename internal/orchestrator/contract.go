package orchestrator

import (
	"context"

	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/rank"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/query"
	"github.com/palate-labs/palate/internal/session"
)

// QueryBuilder turns the session state into a retrieval-ready query.
type QueryBuilder interface {
	Build(ctx context.Context, prefs slots.Slots, history []session.Turn) query.Enhanced
}

// Retriever gathers candidate documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, enhanced query.Enhanced) ([]document.Document, error)
}

// Reranker orders the candidates against the conversation context.
type Reranker interface {
	Rerank(ctx context.Context, docs []document.Document, history []session.Turn, enhanced query.Enhanced) rank.Result
}
