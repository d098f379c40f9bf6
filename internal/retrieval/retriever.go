// Package retrieval fans a query out across the menu shards and gathers
// the candidate documents.
package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/query"
)

// Shard is one slice of the corpus.
type Shard interface {
	Name() string
	Search(ctx context.Context, vector []float32, filter foodfilter.Expression, k int) ([]document.Document, error)
}

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever embeds the query once and searches every shard concurrently.
type Retriever struct {
	shards       []Shard
	embedder     Embedder
	topKPerShard int
	log          *zap.Logger
}

// New creates a Retriever.
func New(shards []Shard, embedder Embedder, topKPerShard int, log *zap.Logger) *Retriever {
	return &Retriever{shards: shards, embedder: embedder, topKPerShard: topKPerShard, log: log}
}

// Retrieve gathers candidates from all shards. A failing shard is logged
// and skipped; results keep shard order so output is deterministic for a
// given set of shard responses. An embedding failure aborts the search.
func (r *Retriever) Retrieve(ctx context.Context, enhanced query.Enhanced) ([]document.Document, error) {
	vector, err := r.embedder.Embed(ctx, enhanced.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	perShard := make([][]document.Document, len(r.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range r.shards {
		g.Go(func() error {
			docs, err := shard.Search(gctx, vector, enhanced.Filter, r.topKPerShard)
			if err != nil {
				metrics.ShardSearchErrorsTotal.WithLabelValues(shard.Name()).Inc()
				r.log.Warn("shard search failed, skipping shard",
					zap.String("shard", shard.Name()), zap.Error(err))
				return nil
			}
			perShard[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []document.Document
	for _, docs := range perShard {
		all = append(all, docs...)
	}
	r.log.Info("retrieval complete",
		zap.String("query", enhanced.Query),
		zap.Int("shards", len(r.shards)),
		zap.Int("documents", len(all)),
	)
	return all, nil
}
