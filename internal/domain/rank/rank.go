// Package rank defines the two-stage reranking value objects: prioritized
// ranking conditions, per-tier satisfaction scores, and ranked documents.
package rank

import (
	"encoding/json"
	"strings"
)

// Tier is the priority level of a ranking condition.
type Tier string

const (
	TierCritical Tier = "CRITICAL"
	TierHigh     Tier = "HIGH"
	TierMedium   Tier = "MEDIUM"
	TierLow      Tier = "LOW"
)

// ParseTier maps model output onto a known tier, falling back to LOW.
func ParseTier(s string) Tier {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierCritical:
		return TierCritical
	case TierHigh:
		return TierHigh
	case TierMedium:
		return TierMedium
	default:
		return TierLow
	}
}

// UnmarshalJSON folds arbitrary model spellings onto a known tier.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTier(s)
	return nil
}

// Condition is one prioritized ranking rule derived from the conversation.
type Condition struct {
	Priority           Tier   `json:"priority"`
	Emoji              string `json:"emoji,omitempty"`
	Description        string `json:"description"`
	Reasoning          string `json:"reasoning,omitempty"`
	MeasurableCriteria string `json:"measurable_criteria,omitempty"`
	DocumentField      string `json:"document_field,omitempty"`
}

// Evaluation is one document's condition analysis from the first stage.
type Evaluation struct {
	DocID     string `json:"doc_id"`
	FoodName  string `json:"food_name"`
	Metadata  any    `json:"metadata,omitempty"`
	Reasoning string `json:"reasoning"`
}

// RetrievalSummary notes what retrieval already handled and what it missed.
type RetrievalSummary struct {
	AppliedFilter string `json:"applied_filter,omitempty"`
	SemanticGaps  string `json:"semantic_gaps,omitempty"`
}

// Stage1Result is the condition-extraction stage output.
type Stage1Result struct {
	FinalCombinedQuery  string           `json:"final_combined_query"`
	TemporalContext     string           `json:"temporal_context,omitempty"`
	UserJourney         string           `json:"user_journey,omitempty"`
	RetrievalSummary    RetrievalSummary `json:"retrieval_summary,omitempty"`
	RankingConditions   []Condition      `json:"ranking_conditions"`
	DocumentEvaluations []Evaluation     `json:"document_evaluations"`
}

// TierScore records which condition tiers a ranked document satisfies.
type TierScore struct {
	Critical bool `json:"critical"`
	High     bool `json:"high"`
	Medium   bool `json:"medium"`
	Low      bool `json:"low"`
}

// RankedDocument is one entry of the final ordered list.
type RankedDocument struct {
	Rank      int       `json:"rank"`
	DocID     string    `json:"doc_id"`
	FoodName  string    `json:"food_name"`
	Score     TierScore `json:"score"`
	Reasoning string    `json:"reasoning"`
}

// RankingExplanation describes how each tier shaped the final order.
type RankingExplanation struct {
	Critical   string `json:"critical,omitempty"`
	High       string `json:"high,omitempty"`
	TieBreaker string `json:"tie_breaker,omitempty"`
}

// Stage2Result is the final scored ranking. QualityAssurance keys vary
// between the model's self-check fields and the fallback status marker.
type Stage2Result struct {
	ContextSummary     string             `json:"context_summary,omitempty"`
	RankingExplanation RankingExplanation `json:"ranking_explanation,omitempty"`
	TopDocuments       []RankedDocument   `json:"top_10_documents"`
	QualityAssurance   map[string]string  `json:"quality_assurance,omitempty"`
}

// Result bundles both stage outputs with the promoted fields callers read.
type Result struct {
	Stage1             Stage1Result      `json:"stage1_analysis"`
	Stage2             Stage2Result      `json:"stage2_ranking"`
	FinalCombinedQuery string            `json:"final_combined_query"`
	TemporalContext    string            `json:"temporal_context,omitempty"`
	UserJourney        string            `json:"user_journey,omitempty"`
	RankingConditions  []Condition       `json:"ranking_conditions"`
	TopDocuments       []RankedDocument  `json:"top_10_documents"`
	QualityAssurance   map[string]string `json:"quality_assurance,omitempty"`

	// Err records why the model stages were abandoned. Non-empty means the
	// ranking came from the deterministic fallback. ErrRaw keeps the
	// unparseable model text for debugging.
	Err    string `json:"error,omitempty"`
	ErrRaw string `json:"raw_content,omitempty"`
}

// Degraded reports whether the result came from the fallback path.
func (r Result) Degraded() bool { return r.Err != "" }
