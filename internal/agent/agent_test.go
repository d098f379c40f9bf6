package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/extract"
	"github.com/palate-labs/palate/internal/respond"
	"github.com/palate-labs/palate/internal/session"
)

type stubExtractor struct {
	result extract.Result
	panics bool
}

func (s *stubExtractor) Extract(context.Context, string, map[string]any) extract.Result {
	if s.panics {
		panic("extractor blew up")
	}
	return s.result
}

type stubClassifier struct {
	intent     convo.Intent
	confidence float64
}

func (s *stubClassifier) Classify(context.Context, string) (convo.Intent, float64) {
	return s.intent, s.confidence
}

type stubResponder struct {
	reply   respond.Reply
	history []string
}

func (s *stubResponder) Generate(_ context.Context, _, _ string, _ slots.Slots, questionHistory []string) respond.Reply {
	s.history = questionHistory
	return s.reply
}

func strp(v string) *string { return &v }
func intp(v int) *int       { return &v }

func newAgent(t *testing.T, ex SlotExtractor, cl IntentClassifier, re ResponseGenerator) *Agent {
	t.Helper()
	mem := session.NewMemory("s1", 50, zap.NewNop())
	return New(mem, ex, cl, re, zap.NewNop())
}

func TestHandleTurnGathering(t *testing.T) {
	a := newAgent(t,
		&stubExtractor{result: extract.Result{
			Intent: convo.SlotIntentUpdate,
			Delta:  slots.Delta{Cuisine1: strp("thai")},
		}},
		&stubClassifier{intent: convo.IntentRecommend, confidence: 0.9},
		&stubResponder{reply: respond.Reply{
			ResponseText: "Veg, nonveg, or vegan?",
			Action:       "ASK",
			State:        convo.StateNeedDietary,
		}},
	)

	turn := a.HandleTurn(context.Background(), "something thai")

	assert.Equal(t, convo.ActionAsk, turn.Action)
	assert.Equal(t, convo.IntentRecommend, turn.Intent)
	assert.Equal(t, map[string]any{"cuisine_1": "thai"}, turn.SlotsUpdated)
	assert.Equal(t, "null", turn.AllSlots["dietary"])
	assert.Equal(t, 1, turn.ConversationTurn)

	history := a.Memory().History()
	require.Len(t, history, 1)
	assert.Equal(t, "something thai", history[0].UserMessage)
	assert.Equal(t, string(convo.ActionAsk), history[0].ActionState)
}

func TestHandleTurnAsksConfirmationWhenReady(t *testing.T) {
	a := newAgent(t,
		&stubExtractor{result: extract.Result{
			Intent: convo.SlotIntentUpdate,
			Delta:  slots.Delta{Dietary: strp("veg"), Price: intp(300)},
		}},
		&stubClassifier{intent: convo.IntentFilterUpdate, confidence: 0.8},
		&stubResponder{reply: respond.Reply{ResponseText: "Shall I search?", Action: "SEARCH_CONFIRM"}},
	)

	turn := a.HandleTurn(context.Background(), "veg under 300")
	assert.Equal(t, convo.ActionAskConfirm, turn.Action)
}

func TestHandleTurnConfirmationTriggersSearch(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Intent: convo.SlotIntentUpdate,
		Delta:  slots.Delta{Dietary: strp("veg"), Price: intp(300)},
	}}
	a := newAgent(t,
		extractor,
		&stubClassifier{intent: convo.IntentFilterUpdate, confidence: 0.8},
		&stubResponder{reply: respond.Reply{ResponseText: "ok"}},
	)

	a.HandleTurn(context.Background(), "veg under 300")

	// Next turn the user confirms with a bare token.
	extractor.result = extract.Result{Intent: convo.SlotIntentUpdate}
	turn := a.HandleTurn(context.Background(), " Yes ")
	assert.Equal(t, convo.ActionSearch, turn.Action)
}

func TestHandleTurnConfirmationWithoutSlotsKeepsAsking(t *testing.T) {
	a := newAgent(t,
		&stubExtractor{result: extract.Result{Intent: convo.SlotIntentUpdate}},
		&stubClassifier{},
		&stubResponder{reply: respond.Reply{ResponseText: "ok"}},
	)
	turn := a.HandleTurn(context.Background(), "yes")
	assert.Equal(t, convo.ActionAsk, turn.Action)
}

func TestHandleTurnNewQueryReplacesSlots(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Intent: convo.SlotIntentUpdate,
		Delta:  slots.Delta{Dietary: strp("vegan"), Cuisine1: strp("desserts"), Price: intp(200)},
	}}
	a := newAgent(t, extractor, &stubClassifier{}, &stubResponder{reply: respond.Reply{ResponseText: "ok"}})
	a.HandleTurn(context.Background(), "vegan ice cream under 200")

	extractor.result = extract.Result{
		Intent: convo.SlotIntentNewQuery,
		Delta:  slots.Delta{Cuisine1: strp("biryani"), ItemName: strp("paneer biryani")},
	}
	turn := a.HandleTurn(context.Background(), "actually now I want paneer biryani")

	assert.Equal(t, "null", turn.AllSlots["dietary"], "new query must clear dietary")
	assert.Equal(t, "null", turn.AllSlots["price"], "new query must clear price")
	assert.Equal(t, "paneer biryani", turn.AllSlots["item_name"])
	assert.Equal(t, convo.ActionAsk, turn.Action)
}

func TestHandleTurnThreadsQuestionHistory(t *testing.T) {
	responder := &stubResponder{reply: respond.Reply{
		ResponseText: "Veg, nonveg, or vegan?",
		Action:       respond.ActionAsk,
	}}
	a := newAgent(t,
		&stubExtractor{result: extract.Result{Intent: convo.SlotIntentUpdate}},
		&stubClassifier{},
		responder,
	)

	a.HandleTurn(context.Background(), "something thai")
	assert.Empty(t, responder.history, "first turn has nothing asked yet")

	responder.reply = respond.Reply{ResponseText: "What's your budget?", Action: respond.ActionAsk}
	a.HandleTurn(context.Background(), "veg please")
	assert.Equal(t, []string{"Veg, nonveg, or vegan?"}, responder.history)

	assert.Equal(t,
		[]string{"Veg, nonveg, or vegan?", "What's your budget?"},
		a.Memory().QuestionsAsked(),
	)
}

func TestSummary(t *testing.T) {
	extractor := &stubExtractor{result: extract.Result{
		Intent: convo.SlotIntentUpdate,
		Delta:  slots.Delta{Dietary: strp("veg")},
	}}
	a := newAgent(t, extractor, &stubClassifier{},
		&stubResponder{reply: respond.Reply{ResponseText: "What's your budget for this order today, roughly speaking?"}},
	)

	a.HandleTurn(context.Background(), "veg food")
	a.HandleTurn(context.Background(), "something spicy")

	sum := a.Summary()
	assert.Equal(t, 2, sum.TotalTurns)
	assert.Equal(t, 2, sum.QuestionsAskedCount)
	assert.Equal(t, map[string]any{"dietary": "veg"}, sum.CurrentSlots)
	assert.False(t, sum.RecommendationsShown)
	assert.Equal(t, 0, sum.SearchHistoryCount)
	assert.Equal(t, convo.StateNeedPrice, sum.State)

	require.Len(t, sum.Flow, 2)
	assert.Equal(t, 1, sum.Flow[0].Turn)
	assert.Equal(t, "veg food", sum.Flow[0].UserInput)
	assert.Equal(t, "What's your budget for this order today, roughly s...", sum.Flow[0].ResponsePreview)
	require.Len(t, sum.RecentQuestions, 2)
}

func TestHandleTurnPanicRecovery(t *testing.T) {
	a := newAgent(t,
		&stubExtractor{panics: true},
		&stubClassifier{},
		&stubResponder{},
	)

	turn := a.HandleTurn(context.Background(), "hello")

	assert.Equal(t, convo.ActionContinue, turn.Action)
	assert.Contains(t, turn.Response, "small hiccup")
	assert.NotEmpty(t, turn.Err)

	// The failed exchange is still archived.
	history := a.Memory().History()
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].UserMessage)
}
