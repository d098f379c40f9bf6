// Package respond generates the assistant's conversational reply for a
// turn, driven by which critical slots are still missing.
package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
)

// Action is the generator's own suggestion vocabulary. It is distinct
// from the controller's action set, which makes the final call.
type Action string

const (
	ActionAsk           Action = "ASK"
	ActionSearchConfirm Action = "SEARCH_CONFIRM"
	ActionContinue      Action = "CONTINUE"
)

// ParseAction folds anything outside the known vocabulary to CONTINUE.
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionAsk:
		return ActionAsk
	case ActionSearchConfirm:
		return ActionSearchConfirm
	default:
		return ActionContinue
	}
}

// Reply is the generated turn response.
type Reply struct {
	ResponseText  string   `json:"response_text"`
	NextQuestions []string `json:"next_questions"`
	Action        Action   `json:"action"`
	State         convo.State
}

// noRestrictionPhrases mark a user who declines to give a dietary
// preference. The dietary question is skipped rather than repeated.
var noRestrictionPhrases = []string{
	"no restrictions", "not picky", "eat everything", "whatever", "don't care",
}

// DeriveState computes the dialogue state from the slots. It is derived
// fresh every turn, never stored.
func DeriveState(prefs slots.Slots, userMsg string) convo.State {
	_, hasDietary := prefs.Dietary()
	_, hasPrice := prefs.Price()

	if !hasDietary {
		lower := strings.ToLower(userMsg)
		for _, phrase := range noRestrictionPhrases {
			if strings.Contains(lower, phrase) {
				return convo.StateNeedPrice
			}
		}
		return convo.StateNeedDietary
	}
	if !hasPrice {
		return convo.StateNeedPrice
	}
	return convo.StateReadyForSearch
}

// Generator produces conversational replies.
type Generator struct {
	llm llm.Client
	log *zap.Logger
}

// New creates a Generator.
func New(client llm.Client, log *zap.Logger) *Generator {
	return &Generator{llm: client, log: log}
}

const systemPrompt = `You are a systematic food delivery assistant.
Follow a clear progression: gather item preferences, ask dietary along with type of cuisines, ask budget, confirm search.
Never repeat the same question twice. Be direct and efficient.`

// Generate never fails: model or parse failures fall back to a
// deterministic per-state reply. questionHistory holds the questions
// already asked this conversation; the prompt instructs the model away
// from repeating them.
func (g *Generator) Generate(ctx context.Context, userMsg, contextSummary string, prefs slots.Slots, questionHistory []string) Reply {
	state := DeriveState(prefs, userMsg)

	raw, err := g.llm.Complete(ctx, llm.Request{
		Component:   "respond",
		User:        buildPrompt(userMsg, contextSummary, prefs, state, questionHistory),
		System:      systemPrompt,
		Temperature: 0.4,
	})
	if err != nil {
		g.log.Warn("response generation failed, using deterministic fallback",
			zap.String("state", string(state)), zap.Error(err))
		metrics.FallbacksTotal.WithLabelValues("respond").Inc()
		return fallbackReply(state, prefs)
	}
	return parseReply(raw, state)
}

func buildPrompt(userMsg, contextSummary string, prefs slots.Slots, state convo.State, questionHistory []string) string {
	filled, _ := json.Marshal(asStringMap(prefs.Filled()))

	var b strings.Builder
	fmt.Fprintf(&b, `SYSTEMATIC CONVERSATION MANAGEMENT:

Current State: %s
User said: "%s"
Context: %s
Current preferences: %s

TASK: Generate focused response as JSON:
{
    "response_text": "your direct response",
    "next_questions": ["follow-up question"] or [],
    "action": "ASK|SEARCH_CONFIRM|CONTINUE"
}

RULES:
- Be direct and efficient
- Don't repeat previous questions
- Follow systematic progression
`, state, userMsg, contextSummary, filled)

	if len(questionHistory) > 0 {
		b.WriteString("\nALREADY ASKED (never repeat these):\n")
		for _, q := range questionHistory {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	switch state {
	case convo.StateNeedDietary:
		b.WriteString(`
STATE: Need dietary preference
TASK: Ask directly about dietary preference (veg/nonveg/vegan),
along with type of cuisines if applicable.
Be clear and direct. Don't ask multiple questions at once.
Set action: "ASK"
`)
	case convo.StateNeedPrice:
		b.WriteString(`
STATE: Need price/budget information
TASK: Ask directly about budget or price range.
Be clear and specific. Ask for a number or range.
Set action: "ASK"
`)
	case convo.StateReadyForSearch:
		b.WriteString(`
STATE: Ready for search
TASK: Confirm you have enough information and ask if they want to see recommendations.
Example: "I have all the details I need! Would you like me to find [item] recommendations now?"
Set action: "SEARCH_CONFIRM"
`)
	}
	return b.String()
}

// parseReply fills contract defaults for missing keys; a reply with no
// JSON at all becomes the response text verbatim.
func parseReply(raw string, state convo.State) Reply {
	data, err := llm.ExtractJSON(raw)
	if err != nil {
		return Reply{
			ResponseText:  strings.TrimSpace(raw),
			NextQuestions: []string{},
			Action:        ActionContinue,
			State:         state,
		}
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Reply{
			ResponseText:  strings.TrimSpace(raw),
			NextQuestions: []string{},
			Action:        ActionContinue,
			State:         state,
		}
	}

	reply := Reply{
		ResponseText:  "I'm here to help with your food delivery!",
		NextQuestions: []string{},
		Action:        ActionContinue,
		State:         state,
	}
	if v, ok := parsed["response_text"].(string); ok && v != "" {
		reply.ResponseText = v
	}
	if items, ok := parsed["next_questions"].([]any); ok {
		for _, item := range items {
			if q, ok := item.(string); ok {
				reply.NextQuestions = append(reply.NextQuestions, q)
			}
		}
	}
	if v, ok := parsed["action"].(string); ok && v != "" {
		reply.Action = ParseAction(v)
	}
	return reply
}

func fallbackReply(state convo.State, prefs slots.Slots) Reply {
	switch state {
	case convo.StateNeedDietary:
		return Reply{
			ResponseText:  "Do you prefer vegetarian, non-vegetarian, or vegan food?",
			NextQuestions: []string{"Please let me know your dietary preference"},
			Action:        ActionAsk,
			State:         state,
		}
	case convo.StateNeedPrice:
		return Reply{
			ResponseText:  "What's your budget for this order? Please give me a price range.",
			NextQuestions: []string{"What's your budget in rupees?"},
			Action:        ActionAsk,
			State:         state,
		}
	case convo.StateReadyForSearch:
		item, ok := prefs.ItemName()
		if !ok {
			item = "food"
		}
		return Reply{
			ResponseText:  fmt.Sprintf("Perfect! I have all the details. Would you like me to find %s recommendations for you now?", item),
			NextQuestions: []string{},
			Action:        ActionSearchConfirm,
			State:         state,
		}
	default:
		return Reply{
			ResponseText:  "I'm here to help you find great food delivery options! What are you in the mood for?",
			NextQuestions: []string{"What kind of food sounds good to you?"},
			Action:        ActionContinue,
			State:         state,
		}
	}
}

func asStringMap(in map[slots.Name]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}
