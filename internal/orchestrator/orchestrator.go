// Package orchestrator runs the full turn pipeline: the dialogue agent
// first, then query building, sharded retrieval, reranking, and metadata
// enrichment when the turn triggers a search.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/agent"
	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/rank"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/session"
)

// ProgressFunc reports pipeline progress as a fraction plus a message.
type ProgressFunc func(fraction float64, message string)

// Response is one turn's complete outcome. Recommendations are only set
// on SEARCH turns.
type Response struct {
	agent.Turn
	Recommendations   []session.EnrichedDocument `json:"recommendations,omitempty"`
	RankingConditions []rank.Condition           `json:"ranking_conditions,omitempty"`
}

// DisplayEntry is one search-history line shaped for UI listings.
type DisplayEntry struct {
	Index        int    `json:"index"`
	Timestamp    string `json:"timestamp"`
	ReadableTime string `json:"readable_time"`
	Query        string `json:"query"`
	ResultsCount int    `json:"results_count"`
	Preview      string `json:"preview"`
}

// Session drives one conversation through the shared pipeline components.
type Session struct {
	agent     *agent.Agent
	builder   QueryBuilder
	retriever Retriever
	reranker  Reranker
	log       *zap.Logger
}

// NewSession wires a conversation to the shared pipeline.
func NewSession(ag *agent.Agent, builder QueryBuilder, retriever Retriever, reranker Reranker, log *zap.Logger) *Session {
	return &Session{
		agent:     ag,
		builder:   builder,
		retriever: retriever,
		reranker:  reranker,
		log:       log.With(zap.String("session_id", ag.Memory().ID())),
	}
}

// Memory exposes the underlying session state.
func (s *Session) Memory() *session.Memory { return s.agent.Memory() }

// Summary reports the conversation's shape for diagnostics.
func (s *Session) Summary() agent.Summary { return s.agent.Summary() }

// ProcessMessage handles one chat turn, running the search pipeline when
// the agent decides the turn is a SEARCH. progress may be nil.
func (s *Session) ProcessMessage(ctx context.Context, userMessage string, progress ProgressFunc) Response {
	if progress == nil {
		progress = func(float64, string) {}
	}

	turn := s.agent.HandleTurn(ctx, userMessage)
	resp := Response{Turn: turn}
	if turn.Action != convo.ActionSearch {
		return resp
	}

	mem := s.agent.Memory()
	metrics.SearchesTotal.Inc()

	progress(0.1, "Refining query to search across shards...")
	enhanced := s.builder.Build(ctx, mem.Snapshot(), mem.History())

	progress(0.4, "Searching across database shards...")
	docs, err := s.retriever.Retrieve(ctx, enhanced)
	if err != nil {
		// The conversation survives a dead search pipeline; the user can
		// retry on the next turn.
		s.log.Error("retrieval failed", zap.String("query", enhanced.Query), zap.Error(err))
		resp.Response = "I couldn't reach the menu database just now. Let's try that search again in a moment."
		resp.Action = convo.ActionContinue
		return resp
	}

	progress(0.7, "Evaluating and reranking recommendations...")
	ranked := s.reranker.Rerank(ctx, docs, mem.History(), enhanced)

	progress(0.9, "Finalizing recommendations...")
	resp.Recommendations = enrichTopDocs(ranked.TopDocuments, docs)
	resp.RankingConditions = ranked.RankingConditions

	mem.AddSearch(session.SearchRecord{
		Query:      enhanced.Query,
		Filter:     enhanced.Filter,
		Timestamp:  time.Now(),
		Conditions: ranked.RankingConditions,
		TopDocs:    resp.Recommendations,
	})
	mem.MarkRecommendationsShown()

	progress(1.0, "Complete!")
	s.log.Info("search pipeline complete",
		zap.String("query", enhanced.Query),
		zap.Int("candidates", len(docs)),
		zap.Int("recommendations", len(resp.Recommendations)),
	)
	return resp
}

// enrichTopDocs re-attaches the retrieved metadata to each ranked entry.
// A ranked doc-id that no longer resolves keeps empty metadata rather
// than dropping the entry.
func enrichTopDocs(ranked []rank.RankedDocument, docs []document.Document) []session.EnrichedDocument {
	lookup := document.Lookup(docs)
	enriched := make([]session.EnrichedDocument, 0, len(ranked))
	for _, rd := range ranked {
		e := session.EnrichedDocument{RankedDocument: rd}
		if original, ok := lookup[rd.DocID]; ok {
			e.Meta = original.Meta
		}
		enriched = append(enriched, e)
	}
	return enriched
}

// SearchHistory returns the archived searches, oldest first.
func (s *Session) SearchHistory() []session.SearchRecord {
	return s.agent.Memory().Searches()
}

// SearchByIndex returns one archived search.
func (s *Session) SearchByIndex(i int) (session.SearchRecord, bool) {
	return s.agent.Memory().SearchByIndex(i)
}

// FormatHistoryForDisplay shapes the search archive for UI listings.
func (s *Session) FormatHistoryForDisplay() []DisplayEntry {
	searches := s.agent.Memory().Searches()
	entries := make([]DisplayEntry, 0, len(searches))
	for i, rec := range searches {
		entries = append(entries, DisplayEntry{
			Index:        i,
			Timestamp:    rec.Timestamp.Format(time.RFC3339),
			ReadableTime: rec.Timestamp.Format("2006-01-02 15:04:05"),
			Query:        rec.Query,
			ResultsCount: len(rec.TopDocs),
			Preview:      previewLine(len(rec.TopDocs), rec.Query),
		})
	}
	return entries
}

func previewLine(count int, query string) string {
	return fmt.Sprintf("Found %d recommendations for '%s'", count, query)
}
