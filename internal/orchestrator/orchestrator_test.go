package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/agent"
	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/domain/rank"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/extract"
	"github.com/palate-labs/palate/internal/query"
	"github.com/palate-labs/palate/internal/respond"
	"github.com/palate-labs/palate/internal/session"
)

type stubExtractor struct{ result extract.Result }

func (s *stubExtractor) Extract(context.Context, string, map[string]any) extract.Result {
	return s.result
}

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string) (convo.Intent, float64) {
	return convo.IntentRecommend, 0.9
}

type stubResponder struct{ reply respond.Reply }

func (s *stubResponder) Generate(context.Context, string, string, slots.Slots, []string) respond.Reply {
	return s.reply
}

type stubBuilder struct{ enhanced query.Enhanced }

func (s *stubBuilder) Build(context.Context, slots.Slots, []session.Turn) query.Enhanced {
	return s.enhanced
}

type stubRetriever struct {
	docs []document.Document
	err  error
}

func (s *stubRetriever) Retrieve(context.Context, query.Enhanced) ([]document.Document, error) {
	return s.docs, s.err
}

type stubReranker struct{ result rank.Result }

func (s *stubReranker) Rerank(context.Context, []document.Document, []session.Turn, query.Enhanced) rank.Result {
	return s.result
}

func strp(v string) *string { return &v }
func intp(v int) *int       { return &v }

// readySession builds a session whose first confirmed turn triggers SEARCH.
func readySession(t *testing.T, retriever Retriever, reranker Reranker, builder QueryBuilder) *Session {
	t.Helper()
	mem := session.NewMemory("s1", 50, zap.NewNop())
	ag := agent.New(mem,
		&stubExtractor{result: extract.Result{
			Intent: convo.SlotIntentUpdate,
			Delta:  slots.Delta{Dietary: strp("veg"), Price: intp(300)},
		}},
		stubClassifier{},
		&stubResponder{reply: respond.Reply{ResponseText: "Shall I search?"}},
		zap.NewNop(),
	)
	return NewSession(ag, builder, retriever, reranker, zap.NewNop())
}

func searchReady(t *testing.T, s *Session) {
	t.Helper()
	// First turn fills the slots, second is a bare confirmation.
	s.ProcessMessage(context.Background(), "veg under 300", nil)
}

func TestProcessMessageNoSearchSkipsPipeline(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("must not be called")}
	s := readySession(t, retriever, &stubReranker{}, &stubBuilder{})

	resp := s.ProcessMessage(context.Background(), "veg under 300", nil)

	assert.NotEqual(t, convo.ActionSearch, resp.Action)
	assert.Empty(t, resp.Recommendations)
	assert.Empty(t, s.SearchHistory())
}

func TestProcessMessageSearchRunsPipeline(t *testing.T) {
	docs := []document.Document{
		{ID: "d1", Content: "paneer tikka", Meta: document.Metadata{Food: "paneer tikka", FoodRating: 4.4, Price: 280}},
		{ID: "d2", Content: "veg biryani", Meta: document.Metadata{Food: "veg biryani", FoodRating: 4.1, Price: 250}},
	}
	builder := &stubBuilder{enhanced: query.Enhanced{
		Query:  "indian food",
		Filter: foodfilter.Eq("dietary", "veg"),
	}}
	reranker := &stubReranker{result: rank.Result{
		TopDocuments: []rank.RankedDocument{
			{Rank: 1, DocID: "d2", FoodName: "veg biryani", Reasoning: "best fit"},
			{Rank: 2, DocID: "missing", FoodName: "ghost dish"},
		},
		RankingConditions: []rank.Condition{{Priority: rank.TierHigh, Description: "budget fit"}},
	}}
	s := readySession(t, &stubRetriever{docs: docs}, reranker, builder)
	searchReady(t, s)

	var fractions []float64
	resp := s.ProcessMessage(context.Background(), "yes", func(f float64, _ string) {
		fractions = append(fractions, f)
	})

	assert.Equal(t, convo.ActionSearch, resp.Action)
	require.Len(t, resp.Recommendations, 2)
	assert.Equal(t, "veg biryani", resp.Recommendations[0].Meta.Food)
	// Unresolvable doc-ids keep empty metadata instead of being dropped.
	assert.Equal(t, document.Metadata{}, resp.Recommendations[1].Meta)
	assert.Equal(t, []float64{0.1, 0.4, 0.7, 0.9, 1.0}, fractions)

	history := s.SearchHistory()
	require.Len(t, history, 1)
	assert.Equal(t, "indian food", history[0].Query)
	assert.Len(t, history[0].TopDocs, 2)
	assert.True(t, s.Memory().RecommendationsShown())
}

func TestProcessMessageRetrievalFailureKeepsConversation(t *testing.T) {
	s := readySession(t, &stubRetriever{err: errors.New("all shards down")}, &stubReranker{}, &stubBuilder{})
	searchReady(t, s)

	resp := s.ProcessMessage(context.Background(), "yes", nil)

	assert.Equal(t, convo.ActionContinue, resp.Action)
	assert.Contains(t, resp.Response, "try that search again")
	assert.Empty(t, resp.Recommendations)
	assert.Empty(t, s.SearchHistory())
}

func TestFormatHistoryForDisplay(t *testing.T) {
	builder := &stubBuilder{enhanced: query.Enhanced{Query: "thai curry", Filter: foodfilter.None()}}
	reranker := &stubReranker{result: rank.Result{
		TopDocuments: []rank.RankedDocument{{Rank: 1, DocID: "d1", FoodName: "green curry"}},
	}}
	s := readySession(t, &stubRetriever{docs: []document.Document{{ID: "d1"}}}, reranker, builder)
	searchReady(t, s)
	s.ProcessMessage(context.Background(), "yes", nil)

	entries := s.FormatHistoryForDisplay()
	require.Len(t, entries, 1)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "thai curry", entries[0].Query)
	assert.Equal(t, 1, entries[0].ResultsCount)
	assert.Equal(t, "Found 1 recommendations for 'thai curry'", entries[0].Preview)
	assert.NotEmpty(t, entries[0].ReadableTime)

	rec, ok := s.SearchByIndex(0)
	require.True(t, ok)
	assert.Equal(t, "thai curry", rec.Query)

	_, ok = s.SearchByIndex(5)
	assert.False(t, ok)
}
