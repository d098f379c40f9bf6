package rerank

import (
	"fmt"
	"sort"

	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/rank"
)

// fallbackRanking orders documents by rating-price ratio when the model
// stages fail. Every tier flag is false so callers can tell these entries
// were never evaluated against real conditions.
func fallbackRanking(docs []document.Document) rank.Result {
	type scored struct {
		doc   document.Document
		score float64
	}
	scoredDocs := make([]scored, 0, len(docs))
	for _, d := range docs {
		price := d.Meta.Price
		if price == 0 {
			price = 1000
		}
		denom := price / 100
		if denom < 1 {
			denom = 1
		}
		scoredDocs = append(scoredDocs, scored{doc: d, score: d.Meta.FoodRating / denom})
	}
	sort.SliceStable(scoredDocs, func(i, j int) bool {
		return scoredDocs[i].score > scoredDocs[j].score
	})

	limit := len(scoredDocs)
	if limit > 10 {
		limit = 10
	}
	top := make([]rank.RankedDocument, 0, limit)
	for i, sd := range scoredDocs[:limit] {
		top = append(top, rank.RankedDocument{
			Rank:      i + 1,
			DocID:     sd.doc.ID,
			FoodName:  sd.doc.Meta.Food,
			Score:     rank.TierScore{},
			Reasoning: fmt.Sprintf("Fallback ranking based on rating-price ratio (%.2f) due to API error.", sd.score),
		})
	}

	conditions := []rank.Condition{{
		Priority:           rank.TierHigh,
		Emoji:              "🟡",
		Description:        "Fallback ranking using rating-price ratio",
		Reasoning:          "API failure recovery mode",
		MeasurableCriteria: "f_rating / (f_price/100)",
		DocumentField:      "computed_score",
	}}

	return rank.Result{
		FinalCombinedQuery: "fallback query from conversation",
		TemporalContext:    "fallback_context",
		UserJourney:        "error_recovery",
		RankingConditions:  conditions,
		TopDocuments:       top,
		QualityAssurance:   map[string]string{"status": "fallback_mode"},
	}
}
