// Package query turns the collected slots into a semantic search query
// and a metadata filter, optionally refined by the model against the
// conversation history.
package query

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/session"
)

// Enhanced is the retrieval-ready query.
type Enhanced struct {
	Query               string
	Filter              foodfilter.Expression
	ClarifyingQuestions []string
}

// Builder constructs retrieval queries from slots.
type Builder struct {
	llm llm.Client
	log *zap.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(client llm.Client, log *zap.Logger) *Builder {
	return &Builder{llm: client, log: log}
}

// Build constructs the base query and filter, and refines both with the
// model when there is conversation history to refine against. Refinement
// failures fall back to the base construction.
func (b *Builder) Build(ctx context.Context, prefs slots.Slots, history []session.Turn) Enhanced {
	baseQuery := SemanticQuery(prefs)
	baseFilter := MetadataFilter(prefs)

	if len(history) > 0 {
		refined, err := b.refine(ctx, baseQuery, baseFilter, prefs, history)
		if err == nil {
			return refined
		}
		b.log.Warn("query refinement failed, using base query", zap.Error(err))
		metrics.FallbacksTotal.WithLabelValues("query").Inc()
	}

	return Enhanced{
		Query:               baseQuery,
		Filter:              baseFilter,
		ClarifyingQuestions: ClarifyingQuestions(prefs.Missing()),
	}
}

// SemanticQuery joins the content-bearing slots in a fixed order:
// cuisines, dish, label, meal type. No slots at all searches for "food".
func SemanticQuery(prefs slots.Slots) string {
	var parts []string
	c1, hasC1 := prefs.Cuisine1()
	if hasC1 {
		parts = append(parts, c1)
	}
	if c2, ok := prefs.Cuisine2(); ok && (!hasC1 || c2 != c1) {
		parts = append(parts, c2)
	}
	if item, ok := prefs.ItemName(); ok {
		parts = append(parts, item)
	}
	if label, ok := prefs.Label(); ok {
		parts = append(parts, label)
	}
	if meal, ok := prefs.MealType(); ok {
		parts = append(parts, meal)
	}
	if len(parts) == 0 {
		parts = append(parts, "food")
	}
	return strings.Join(parts, " ")
}

// MetadataFilter builds the base filter: dietary equality plus a cuisine
// disjunction where every synonym variant is tested against both stored
// cuisine fields. Price only enters through model refinement.
func MetadataFilter(prefs slots.Slots) foodfilter.Expression {
	var conds []foodfilter.Expression

	if dietary, ok := prefs.Dietary(); ok {
		conds = append(conds, foodfilter.Eq("dietary", dietary))
	}

	var variants []string
	if c1, ok := prefs.Cuisine1(); ok {
		variants = append(variants, expandCuisine(strings.ToLower(c1))...)
	}
	if c2, ok := prefs.Cuisine2(); ok {
		variants = append(variants, expandCuisine(strings.ToLower(c2))...)
	}
	if len(variants) > 0 {
		or := make(foodfilter.Or, 0, len(variants)*2)
		for _, v := range variants {
			or = append(or,
				foodfilter.Eq("cuisine_1", v),
				foodfilter.Eq("cuisine_2", v),
			)
		}
		conds = append(conds, or)
	}

	return foodfilter.Combine(conds...)
}

var questionTemplates = map[slots.Name]string{
	slots.Dietary:  "Veg, nonveg, or vegan?",
	slots.Cuisine1: "Any particular cuisine you prefer?",
	slots.Cuisine2: "Any second cuisine preference?",
	slots.ItemName: "Any specific dish you're craving?",
	slots.Price:    "What's your budget or price range?",
	slots.MealType: "Is this for breakfast, lunch, dinner, or snacks?",
	slots.Label:    "Any specific preferences (spicy, sweet, bestseller)?",
}

// ClarifyingQuestions suggests questions for the first two missing slots.
func ClarifyingQuestions(missing []slots.Name) []string {
	var questions []string
	for _, name := range missing {
		if len(questions) == 2 {
			break
		}
		if q, ok := questionTemplates[name]; ok {
			questions = append(questions, q)
		}
	}
	return questions
}

// refinementReply is the model's {"query", "filter"} contract. The filter
// arrives as raw JSON because it may be an object or the sentinel string.
type refinementReply struct {
	Query  string          `json:"query"`
	Filter json.RawMessage `json:"filter"`
}

func (b *Builder) refine(ctx context.Context, baseQuery string, baseFilter foodfilter.Expression, prefs slots.Slots, history []session.Turn) (Enhanced, error) {
	raw, err := b.llm.Complete(ctx, llm.Request{
		Component:   "query",
		System:      "You are an expert search query and filter refinement assistant specializing in food delivery recommendations.",
		User:        refinementPrompt(baseQuery, baseFilter, prefs, history),
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		return Enhanced{}, err
	}

	var reply refinementReply
	if err := llm.DecodeJSON(raw, &reply); err != nil {
		return Enhanced{}, err
	}

	refined := Enhanced{
		Query:               baseQuery,
		Filter:              baseFilter,
		ClarifyingQuestions: []string{},
	}
	if reply.Query != "" {
		refined.Query = reply.Query
	}
	if len(reply.Filter) > 0 {
		filter, err := foodfilter.Parse(reply.Filter)
		if err != nil {
			return Enhanced{}, err
		}
		refined.Filter = filter
	}
	return refined, nil
}
