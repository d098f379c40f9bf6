// Package agent is the dialogue controller: it runs one conversational
// turn end to end and decides whether the turn triggers a search.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/metrics"
	"github.com/palate-labs/palate/internal/respond"
	"github.com/palate-labs/palate/internal/session"
)

// confirmations are the full-utterance replies that confirm a pending
// search. Matching is exact after lowercasing, so "yes please order pizza
// too" goes through extraction like any other message.
var confirmations = map[string]bool{
	"yes": true, "yeah": true, "sure": true, "ok": true,
	"find recommendations": true, "search": true,
}

// Turn is one processed exchange.
type Turn struct {
	Action           convo.Action   `json:"action"`
	Response         string         `json:"response"`
	NextQuestions    []string       `json:"next_questions"`
	SlotsUpdated     map[string]any `json:"slots_updated"`
	AllSlots         map[string]any `json:"all_slots"`
	Intent           convo.Intent   `json:"intent"`
	Confidence       float64        `json:"confidence"`
	State            convo.State    `json:"conversation_state"`
	ConversationTurn int            `json:"conversation_turn"`
	Err              string         `json:"error,omitempty"`
}

// Agent coordinates extraction, classification, and response generation
// over one session's memory.
type Agent struct {
	mem        *session.Memory
	extractor  SlotExtractor
	classifier IntentClassifier
	responder  ResponseGenerator
	log        *zap.Logger
}

// New creates an Agent bound to one session.
func New(mem *session.Memory, extractor SlotExtractor, classifier IntentClassifier, responder ResponseGenerator, log *zap.Logger) *Agent {
	return &Agent{
		mem:        mem,
		extractor:  extractor,
		classifier: classifier,
		responder:  responder,
		log:        log.With(zap.String("session_id", mem.ID())),
	}
}

// Memory exposes the session state for the search pipeline.
func (a *Agent) Memory() *session.Memory { return a.mem }

// HandleTurn runs one exchange. It never fails the conversation: an
// internal panic produces an apologetic CONTINUE turn and the exchange is
// still archived.
func (a *Agent) HandleTurn(ctx context.Context, utterance string) (turn Turn) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("turn processing panicked", zap.Any("panic", r))
			turn = a.errorTurn(utterance, fmt.Sprintf("%v", r))
		}
		metrics.TurnsTotal.WithLabelValues(string(turn.Action)).Inc()
	}()

	current := a.mem.Snapshot()
	extracted := a.extractor.Extract(ctx, utterance, toAnyMap(current.Filled()))
	applied := a.mem.ApplyDelta(extracted.Intent, extracted.Delta)

	intent, confidence := a.classifier.Classify(ctx, utterance)

	prefs := a.mem.Snapshot()
	reply := a.responder.Generate(ctx, utterance, a.mem.ContextSummary(), prefs, a.mem.QuestionsAsked())
	a.mem.RecordQuestion(reply.ResponseText)

	action := a.decideAction(utterance, prefs)

	turn = Turn{
		Action:           action,
		Response:         reply.ResponseText,
		NextQuestions:    reply.NextQuestions,
		SlotsUpdated:     toAnyMap(applied),
		AllSlots:         toAnyMap(prefs.Display()),
		Intent:           intent,
		Confidence:       confidence,
		State:            reply.State,
		ConversationTurn: len(a.mem.History()) + 1,
	}

	a.mem.AddTurn(session.Turn{
		UserMessage:  utterance,
		Response:     turn.Response,
		Intent:       string(intent),
		Confidence:   confidence,
		SlotsUpdated: turn.SlotsUpdated,
		ActionState:  string(action),
	})

	a.log.Info("turn handled",
		zap.String("action", string(action)),
		zap.String("intent", string(intent)),
		zap.Float64("confidence", confidence),
		zap.Strings("slots_updated", session.FilledKeys(applied)),
	)
	return turn
}

// Summary is a compact diagnostic view of the conversation so far.
type Summary struct {
	TotalTurns           int            `json:"total_turns"`
	QuestionsAskedCount  int            `json:"questions_asked_count"`
	CurrentSlots         map[string]any `json:"current_slots"`
	RecommendationsShown bool           `json:"recommendations_shown"`
	SearchHistoryCount   int            `json:"search_history_count"`
	State                convo.State    `json:"conversation_state"`
	Flow                 []FlowEntry    `json:"conversation_flow"`
	RecentQuestions      []string       `json:"recent_questions"`
}

// FlowEntry is one exchange in the recent flow window.
type FlowEntry struct {
	Turn            int            `json:"turn"`
	UserInput       string         `json:"user_input"`
	Action          string         `json:"action"`
	SlotsExtracted  map[string]any `json:"slots_extracted"`
	ResponsePreview string         `json:"response_preview"`
}

// flowWindow bounds the flow and recent-question windows in Summary.
const flowWindow = 3

// Summary reports the conversation's shape: counts, current slots, the
// derived state, and the last few exchanges and questions.
func (a *Agent) Summary() Summary {
	history := a.mem.History()
	questions := a.mem.QuestionsAsked()
	prefs := a.mem.Snapshot()

	flowStart := len(history) - flowWindow
	if flowStart < 0 {
		flowStart = 0
	}
	flow := make([]FlowEntry, 0, len(history)-flowStart)
	for i := flowStart; i < len(history); i++ {
		t := history[i]
		flow = append(flow, FlowEntry{
			Turn:            i + 1,
			UserInput:       t.UserMessage,
			Action:          t.ActionState,
			SlotsExtracted:  t.SlotsUpdated,
			ResponsePreview: previewText(t.Response),
		})
	}

	qStart := len(questions) - flowWindow
	if qStart < 0 {
		qStart = 0
	}

	return Summary{
		TotalTurns:           len(history),
		QuestionsAskedCount:  len(questions),
		CurrentSlots:         toAnyMap(prefs.Filled()),
		RecommendationsShown: a.mem.RecommendationsShown(),
		SearchHistoryCount:   len(a.mem.Searches()),
		State:                respond.DeriveState(prefs, ""),
		Flow:                 flow,
		RecentQuestions:      questions[qStart:],
	}
}

func previewText(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}

// decideAction: a bare confirmation triggers the search once both
// critical slots are known; otherwise having both means asking for
// confirmation, and anything less keeps gathering.
func (a *Agent) decideAction(utterance string, prefs slots.Slots) convo.Action {
	_, hasDietary := prefs.Dietary()
	_, hasPrice := prefs.Price()
	ready := hasDietary && hasPrice

	if confirmations[strings.ToLower(strings.TrimSpace(utterance))] && ready {
		return convo.ActionSearch
	}
	if ready {
		return convo.ActionAskConfirm
	}
	return convo.ActionAsk
}

func (a *Agent) errorTurn(utterance, errMsg string) Turn {
	errSnap := a.mem.Snapshot()
	turn := Turn{
		Action:        convo.ActionContinue,
		Response:      "I apologize, but I had a small hiccup. Let's continue - what would you like to explore for your meal?",
		NextQuestions: []string{"What type of food sounds good to you right now?"},
		SlotsUpdated:  map[string]any{},
		AllSlots:      toAnyMap(errSnap.Display()),
		Intent:        convo.IntentOther,
		Err:           errMsg,
	}
	a.mem.AddTurn(session.Turn{
		UserMessage: utterance,
		Response:    turn.Response,
		Intent:      string(convo.IntentOther),
		ActionState: string(convo.ActionContinue),
	})
	return turn
}

func toAnyMap[K ~string](in map[K]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
