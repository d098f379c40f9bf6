package query

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/session"
)

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(context.Context, llm.Request) (string, error) {
	f.calls++
	return f.reply, f.err
}

func prefsWith(t *testing.T, pairs map[slots.Name]any) slots.Slots {
	t.Helper()
	var s slots.Slots
	for name, v := range pairs {
		if err := s.Set(name, v); err != nil {
			t.Fatalf("Set(%s): %v", name, err)
		}
	}
	return s
}

func filterJSON(t *testing.T, e foodfilter.Expression) string {
	t.Helper()
	raw, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return string(raw)
}

func TestSemanticQueryOrder(t *testing.T) {
	prefs := prefsWith(t, map[slots.Name]any{
		slots.Cuisine1: "biryani",
		slots.ItemName: "dum biryani",
		slots.Label:    "spicy",
		slots.MealType: "dinner",
	})
	if got := SemanticQuery(prefs); got != "biryani dum biryani spicy dinner" {
		t.Fatalf("query = %q", got)
	}
}

func TestSemanticQuerySkipsDuplicateCuisine(t *testing.T) {
	prefs := prefsWith(t, map[slots.Name]any{
		slots.Cuisine1: "thai",
		slots.Cuisine2: "thai",
	})
	if got := SemanticQuery(prefs); got != "thai" {
		t.Fatalf("query = %q", got)
	}
}

func TestSemanticQueryDefault(t *testing.T) {
	if got := SemanticQuery(slots.Slots{}); got != "food" {
		t.Fatalf("query = %q", got)
	}
}

func TestMetadataFilterEmpty(t *testing.T) {
	if !foodfilter.IsNone(MetadataFilter(slots.Slots{})) {
		t.Fatal("empty slots should give the empty filter")
	}
}

func TestMetadataFilterSingleConditionStaysBare(t *testing.T) {
	prefs := prefsWith(t, map[slots.Name]any{slots.Dietary: "vegan"})
	got := filterJSON(t, MetadataFilter(prefs))
	if got != `{"dietary":{"$eq":"vegan"}}` {
		t.Fatalf("filter = %s", got)
	}
}

func TestMetadataFilterExpandsSynonyms(t *testing.T) {
	prefs := prefsWith(t, map[slots.Name]any{
		slots.Dietary:  "veg",
		slots.Cuisine1: "chinese",
	})
	got := filterJSON(t, MetadataFilter(prefs))

	if !strings.HasPrefix(got, `{"$and":[`) {
		t.Fatalf("expected $and wrapper: %s", got)
	}
	// Each variant is tested against both stored cuisine fields.
	for _, variant := range []string{"chinese", "asian", "pan-asian", "oriental"} {
		for _, field := range []string{"cuisine_1", "cuisine_2"} {
			cond := `{"` + field + `":{"$eq":"` + variant + `"}}`
			if !strings.Contains(got, cond) {
				t.Errorf("filter missing %s", cond)
			}
		}
	}
}

func TestMetadataFilterUnknownCuisinePassesThrough(t *testing.T) {
	prefs := prefsWith(t, map[slots.Name]any{slots.Cuisine1: "fusion"})
	got := filterJSON(t, MetadataFilter(prefs))
	want := `{"$or":[{"cuisine_1":{"$eq":"fusion"}},{"cuisine_2":{"$eq":"fusion"}}]}`
	if got != want {
		t.Fatalf("filter = %s, want %s", got, want)
	}
}

func TestBuildSkipsRefinementWithoutHistory(t *testing.T) {
	client := &fakeLLM{reply: `{"query":"x","filter":"NO_FILTER"}`}
	b := NewBuilder(client, zap.NewNop())

	prefs := prefsWith(t, map[slots.Name]any{slots.Cuisine1: "thai"})
	enhanced := b.Build(context.Background(), prefs, nil)

	if client.calls != 0 {
		t.Fatal("refinement should not run without history")
	}
	if enhanced.Query != "thai" {
		t.Fatalf("query = %q", enhanced.Query)
	}
	if len(enhanced.ClarifyingQuestions) != 2 {
		t.Fatalf("questions = %v", enhanced.ClarifyingQuestions)
	}
}

func TestBuildRefinesWithHistory(t *testing.T) {
	client := &fakeLLM{reply: "```json\n" + `{
		"query": "dum biryani",
		"filter": {"$and": [
			{"dietary": {"$eq": "nonveg"}},
			{"f_price": {"$lte": 400}}
		]}
	}` + "\n```"}
	b := NewBuilder(client, zap.NewNop())

	prefs := prefsWith(t, map[slots.Name]any{slots.Dietary: "nonveg", slots.Cuisine1: "biryani"})
	history := []session.Turn{{UserMessage: "biryani under 400", Response: "noted"}}
	enhanced := b.Build(context.Background(), prefs, history)

	if enhanced.Query != "dum biryani" {
		t.Fatalf("query = %q", enhanced.Query)
	}
	got := filterJSON(t, enhanced.Filter)
	if !strings.Contains(got, `{"f_price":{"$lte":400}}`) {
		t.Fatalf("filter = %s", got)
	}
	if len(enhanced.ClarifyingQuestions) != 0 {
		t.Fatal("refined result should carry no clarifying questions")
	}
}

func TestBuildFallsBackWhenRefinementFails(t *testing.T) {
	client := &fakeLLM{err: errors.New("down")}
	b := NewBuilder(client, zap.NewNop())

	prefs := prefsWith(t, map[slots.Name]any{slots.Dietary: "veg"})
	history := []session.Turn{{UserMessage: "veg food"}}
	enhanced := b.Build(context.Background(), prefs, history)

	if enhanced.Query != "food" {
		t.Fatalf("query = %q", enhanced.Query)
	}
	if got := filterJSON(t, enhanced.Filter); got != `{"dietary":{"$eq":"veg"}}` {
		t.Fatalf("filter = %s", got)
	}
}

func TestBuildFallsBackOnUnparsableFilter(t *testing.T) {
	client := &fakeLLM{reply: `{"query":"pizza","filter":{"f_price":{"$near":300}}}`}
	b := NewBuilder(client, zap.NewNop())

	prefs := prefsWith(t, map[slots.Name]any{slots.Cuisine1: "pizzas"})
	enhanced := b.Build(context.Background(), prefs, []session.Turn{{UserMessage: "pizza"}})

	if enhanced.Query != "pizzas" {
		t.Fatalf("query = %q, want base", enhanced.Query)
	}
}

func TestClarifyingQuestionsCapsAtTwo(t *testing.T) {
	qs := ClarifyingQuestions(slots.All)
	if len(qs) != 2 {
		t.Fatalf("questions = %v", qs)
	}
	if qs[0] != "Veg, nonveg, or vegan?" {
		t.Fatalf("first question = %q", qs[0])
	}
}
