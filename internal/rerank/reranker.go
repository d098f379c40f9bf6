// Package rerank orders retrieved documents with a two-stage model pass:
// condition generation over the conversation, then a final scored ranking.
package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain"
	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/rank"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/query"
	"github.com/palate-labs/palate/internal/session"
)

const (
	stage1MaxTokens = 11000
	stage2MaxTokens = 2500
)

// Reranker runs the two-stage contextual reranking.
type Reranker struct {
	llm   llm.Client
	model string
	log   *zap.Logger
}

// New creates a Reranker. model overrides the client default, since the
// long stage-1 pass may warrant a different model than the chat turns.
func New(client llm.Client, model string, log *zap.Logger) *Reranker {
	return &Reranker{llm: client, model: model, log: log}
}

// Rerank never fails: if either stage errors, the deterministic
// rating-price fallback ranks instead. An empty candidate set skips the
// model stages entirely.
func (r *Reranker) Rerank(ctx context.Context, docs []document.Document, history []session.Turn, enhanced query.Enhanced) rank.Result {
	if len(docs) == 0 {
		r.log.Warn("nothing to rerank, retrieval returned no documents")
		result := fallbackRanking(nil)
		result.Err = domain.ErrNoDocuments.Error()
		return result
	}

	stage1, raw, err := r.stage1(ctx, docs, history, enhanced)
	if err == nil {
		var stage2 rank.Stage2Result
		stage2, raw, err = r.stage2(ctx, stage1)
		if err == nil {
			return rank.Result{
				Stage1:             stage1,
				Stage2:             stage2,
				FinalCombinedQuery: stage1.FinalCombinedQuery,
				TemporalContext:    stage1.TemporalContext,
				UserJourney:        stage1.UserJourney,
				RankingConditions:  stage1.RankingConditions,
				TopDocuments:       stage2.TopDocuments,
				QualityAssurance:   stage2.QualityAssurance,
			}
		}
	}

	r.log.Error("two-stage reranking failed, using rating-price fallback",
		zap.Int("docs", len(docs)), zap.Error(err))
	metrics.FallbacksTotal.WithLabelValues("rerank").Inc()
	result := fallbackRanking(docs)
	result.Err = err.Error()
	result.ErrRaw = raw
	return result
}

// stage1 returns the raw model text alongside its result so a decode
// failure can surface what the model actually said.
func (r *Reranker) stage1(ctx context.Context, docs []document.Document, history []session.Turn, enhanced query.Enhanced) (rank.Stage1Result, string, error) {
	prompt := fmt.Sprintf(`%s

<< RETRIEVAL CONTEXT >>
%s

<< CONVERSATION HISTORY >>
%s

<< AVAILABLE DOCUMENTS >>
%s

Analyze the conversation history and available documents. Return ONLY valid JSON as specified in the format above.`,
		stage1Prompt, formatQueryContext(enhanced), formatHistory(history), formatDocuments(docs))

	raw, err := r.llm.Complete(ctx, llm.Request{
		Component:   "rerank_stage1",
		Model:       r.model,
		User:        prompt,
		Temperature: 0.1,
		MaxTokens:   stage1MaxTokens,
	})
	if err != nil {
		return rank.Stage1Result{}, "", fmt.Errorf("stage 1: %w", err)
	}

	var result rank.Stage1Result
	if err := llm.DecodeJSON(raw, &result); err != nil {
		return rank.Stage1Result{}, raw, fmt.Errorf("stage 1: %w", err)
	}

	// A count mismatch means some candidates went unevaluated. Stage 2
	// still works off what came back, so this is only worth a warning.
	if len(result.DocumentEvaluations) != len(docs) {
		r.log.Warn("stage 1 evaluated a different document count",
			zap.Int("input", len(docs)),
			zap.Int("evaluated", len(result.DocumentEvaluations)),
		)
	}
	return result, "", nil
}

func (r *Reranker) stage2(ctx context.Context, stage1 rank.Stage1Result) (rank.Stage2Result, string, error) {
	summary, err := json.MarshalIndent(stage1, "", "  ")
	if err != nil {
		return rank.Stage2Result{}, "", fmt.Errorf("stage 2: %w", err)
	}

	prompt := fmt.Sprintf(`%s

<< STAGE 1 ANALYSIS RESULTS >>
%s

Based on the contextual conditions and document evaluations from Stage 1, provide the final top 10 ranked recommendations. Return ONLY valid JSON as specified in the format above.`,
		stage2Prompt, summary)

	raw, err := r.llm.Complete(ctx, llm.Request{
		Component:   "rerank_stage2",
		Model:       r.model,
		User:        prompt,
		Temperature: 0.1,
		MaxTokens:   stage2MaxTokens,
	})
	if err != nil {
		return rank.Stage2Result{}, "", fmt.Errorf("stage 2: %w", err)
	}

	var result rank.Stage2Result
	if err := llm.DecodeJSON(raw, &result); err != nil {
		return rank.Stage2Result{}, raw, fmt.Errorf("stage 2: %w", err)
	}
	return result, "", nil
}

// formatDocuments flattens each document's metadata next to its content so
// the model sees every rankable field.
func formatDocuments(docs []document.Document) string {
	type docView struct {
		ID         string  `json:"id"`
		FoodName   string  `json:"food_name"`
		Restaurant string  `json:"restaurant"`
		Cuisine1   string  `json:"cuisine_1"`
		Cuisine2   string  `json:"cuisine_2"`
		Dietary    string  `json:"dietary"`
		FoodRating float64 `json:"f_rating"`
		RestRating float64 `json:"r_rating"`
		Price      float64 `json:"f_price"`
		Label      string  `json:"label"`
		Popularity float64 `json:"popularity"`
		Location   string  `json:"location"`
		Content    string  `json:"content"`
	}
	views := make([]docView, 0, len(docs))
	for _, d := range docs {
		views = append(views, docView{
			ID:         d.ID,
			FoodName:   d.Meta.Food,
			Restaurant: d.Meta.Restaurant,
			Cuisine1:   d.Meta.Cuisine1,
			Cuisine2:   d.Meta.Cuisine2,
			Dietary:    d.Meta.Dietary,
			FoodRating: d.Meta.FoodRating,
			RestRating: d.Meta.RestRating,
			Price:      d.Meta.Price,
			Label:      d.Meta.Label,
			Popularity: d.Meta.Popularity,
			Location:   d.Meta.Location,
			Content:    d.Content,
		})
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return string(out)
}

// formatHistory renders each turn as "HH:MM: message".
func formatHistory(history []session.Turn) string {
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %q", turn.Timestamp.Format("15:04"), turn.UserMessage))
	}
	return strings.Join(lines, "\n")
}

func formatQueryContext(enhanced query.Enhanced) string {
	filter, _ := json.Marshal(enhanced.Filter)
	info := map[string]any{
		"search_query":   enhanced.Query,
		"applied_filter": json.RawMessage(filter),
		"filter_summary": "Basic filtering already applied for: " + string(filter),
	}
	out, _ := json.MarshalIndent(info, "", "  ")
	return string(out)
}
