package rerank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/query"
	"github.com/palate-labs/palate/internal/session"
)

// scriptedLLM replays one reply per call, recording the requests.
type scriptedLLM struct {
	replies []string
	errs    []error
	reqs    []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	i := len(s.reqs)
	s.reqs = append(s.reqs, req)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var reply string
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func sampleDocs() []document.Document {
	return []document.Document{
		{ID: "d1", Content: "cheesy burger", Meta: document.Metadata{Food: "Cheesy Burger", FoodRating: 4.6, Price: 91}},
		{ID: "d2", Content: "paneer tikka", Meta: document.Metadata{Food: "Paneer Tikka", FoodRating: 4.2, Price: 260}},
		{ID: "d3", Content: "veg thali", Meta: document.Metadata{Food: "Veg Thali", FoodRating: 3.8, Price: 180}},
	}
}

const stage1Reply = `{
	"final_combined_query": "cheesy burger under 500",
	"temporal_context": "meal_time | 2_hours | hungry_main_meal",
	"user_journey": "casual_dining -> satisfying_main_meal",
	"retrieval_summary": {"applied_filter": "nonveg under 500", "semantic_gaps": "name specificity"},
	"ranking_conditions": [
		{"priority": "CRITICAL", "emoji": "🔴", "description": "Exact name relevancy for cheesy"}
	],
	"document_evaluations": [
		{"doc_id": "d1", "food_name": "Cheesy Burger", "reasoning": "Perfect name match. Strong value."},
		{"doc_id": "d2", "food_name": "Paneer Tikka", "reasoning": "No name match. Decent rating."},
		{"doc_id": "d3", "food_name": "Veg Thali", "reasoning": "No name match. Lower rating."}
	]
}`

const stage2Reply = `{
	"context_summary": "User wants a cheesy burger",
	"ranking_explanation": {"critical": "name match dominated", "high": "ratings tiered", "tie_breaker": "price"},
	"top_10_documents": [
		{"rank": 1, "doc_id": "d1", "food_name": "Cheesy Burger",
		 "score": {"critical": true, "high": true, "medium": true, "low": true},
		 "reasoning": "Exact match for the cheesy specification. Beats the rest on rating and value."}
	],
	"quality_assurance": {"critical_consistency": "Verified", "logic_coherence": "Verified", "journey_alignment": "Verified"}
}`

func TestRerankTwoStageFlow(t *testing.T) {
	client := &scriptedLLM{replies: []string{stage1Reply, stage2Reply}}
	r := New(client, "gpt-4o", zap.NewNop())

	enhanced := query.Enhanced{Query: "cheesy burger"}
	history := []session.Turn{{UserMessage: "want a cheesy burger"}}
	result := r.Rerank(context.Background(), sampleDocs(), history, enhanced)

	if len(client.reqs) != 2 {
		t.Fatalf("calls = %d", len(client.reqs))
	}
	if client.reqs[0].Model != "gpt-4o" {
		t.Fatalf("stage 1 model = %q", client.reqs[0].Model)
	}
	if !strings.Contains(client.reqs[0].User, `"cheesy burger"`) {
		t.Fatal("stage 1 prompt missing query context")
	}
	// Stage 2 works off stage 1's analysis, not the raw documents.
	if !strings.Contains(client.reqs[1].User, "final_combined_query") {
		t.Fatal("stage 2 prompt missing stage 1 summary")
	}

	if result.FinalCombinedQuery != "cheesy burger under 500" {
		t.Fatalf("combined query = %q", result.FinalCombinedQuery)
	}
	if len(result.TopDocuments) != 1 || result.TopDocuments[0].DocID != "d1" {
		t.Fatalf("top docs = %+v", result.TopDocuments)
	}
	if !result.TopDocuments[0].Score.Critical {
		t.Fatal("tier score lost in decode")
	}
	if len(result.RankingConditions) != 1 {
		t.Fatalf("conditions = %+v", result.RankingConditions)
	}
}

func TestRerankFallsBackWhenStage1Fails(t *testing.T) {
	client := &scriptedLLM{errs: []error{errors.New("down")}}
	r := New(client, "", zap.NewNop())

	result := r.Rerank(context.Background(), sampleDocs(), nil, query.Enhanced{})

	if got := result.QualityAssurance["status"]; got != "fallback_mode" {
		t.Fatalf("qa status = %q", got)
	}
	if !result.Degraded() || !strings.Contains(result.Err, "down") {
		t.Fatalf("err = %q", result.Err)
	}
	// Rating-price ratio: d1 = 4.6/1 = 4.6, d2 = 4.2/2.6, d3 = 3.8/1.8.
	if result.TopDocuments[0].DocID != "d1" {
		t.Fatalf("top doc = %s", result.TopDocuments[0].DocID)
	}
	if result.TopDocuments[1].DocID != "d3" || result.TopDocuments[2].DocID != "d2" {
		t.Fatalf("fallback order = %+v", result.TopDocuments)
	}
	if result.TopDocuments[0].Score.Critical || result.TopDocuments[0].Score.High {
		t.Fatal("fallback entries must not claim tier satisfaction")
	}
	if !strings.Contains(result.TopDocuments[0].Reasoning, "rating-price ratio (4.60)") {
		t.Fatalf("reasoning = %q", result.TopDocuments[0].Reasoning)
	}
}

func TestRerankFallsBackWhenStage2Garbled(t *testing.T) {
	client := &scriptedLLM{replies: []string{stage1Reply, "not json at all"}}
	r := New(client, "", zap.NewNop())

	result := r.Rerank(context.Background(), sampleDocs(), nil, query.Enhanced{})
	if got := result.QualityAssurance["status"]; got != "fallback_mode" {
		t.Fatalf("qa status = %q", got)
	}
	if !result.Degraded() {
		t.Fatal("garbled stage 2 must mark the result degraded")
	}
	if result.ErrRaw != "not json at all" {
		t.Fatalf("raw content = %q", result.ErrRaw)
	}
}

func TestRerankEmptyDocsSkipsModelStages(t *testing.T) {
	client := &scriptedLLM{}
	r := New(client, "", zap.NewNop())

	result := r.Rerank(context.Background(), nil, nil, query.Enhanced{})
	if len(client.reqs) != 0 {
		t.Fatalf("model calls = %d, want none", len(client.reqs))
	}
	if !result.Degraded() || result.Err != domain.ErrNoDocuments.Error() {
		t.Fatalf("err = %q", result.Err)
	}
	if len(result.TopDocuments) != 0 {
		t.Fatalf("top docs = %+v", result.TopDocuments)
	}
}

func TestFallbackCapsAtTen(t *testing.T) {
	docs := make([]document.Document, 15)
	for i := range docs {
		docs[i] = document.Document{
			ID:   string(rune('a' + i)),
			Meta: document.Metadata{Food: "item", FoodRating: float64(i), Price: 100},
		}
	}
	result := fallbackRanking(docs)
	if len(result.TopDocuments) != 10 {
		t.Fatalf("top docs = %d", len(result.TopDocuments))
	}
	if result.TopDocuments[0].Rank != 1 || result.TopDocuments[9].Rank != 10 {
		t.Fatal("ranks not sequential")
	}
}

func TestFallbackZeroPriceUsesDefault(t *testing.T) {
	docs := []document.Document{
		{ID: "z", Meta: document.Metadata{Food: "mystery", FoodRating: 5}},
	}
	result := fallbackRanking(docs)
	// Missing price is treated as 1000, so the score is 5/10 = 0.5.
	if !strings.Contains(result.TopDocuments[0].Reasoning, "(0.50)") {
		t.Fatalf("reasoning = %q", result.TopDocuments[0].Reasoning)
	}
}
