// Package convo defines the conversational control vocabulary: user
// intents, slot-update intents, dialogue states, and turn actions.
package convo

import "strings"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	IntentRecommend     Intent = "RECOMMEND"
	IntentFilterUpdate  Intent = "FILTER_UPDATE"
	IntentClarification Intent = "CLARIFICATION"
	IntentFeedback      Intent = "FEEDBACK"
	IntentGreeting      Intent = "GREETING"
	IntentGoodbye       Intent = "GOODBYE"
	IntentOther         Intent = "OTHER"
)

// ParseIntent maps free-form model output onto a known intent,
// falling back to OTHER.
func ParseIntent(s string) Intent {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentRecommend:
		return IntentRecommend
	case IntentFilterUpdate:
		return IntentFilterUpdate
	case IntentClarification:
		return IntentClarification
	case IntentFeedback:
		return IntentFeedback
	case IntentGreeting:
		return IntentGreeting
	case IntentGoodbye:
		return IntentGoodbye
	default:
		return IntentOther
	}
}

// SlotIntent tells the memory layer how to fold an extraction delta in.
type SlotIntent string

const (
	// SlotIntentNewQuery starts a fresh request: clear everything, then
	// apply the delta.
	SlotIntentNewQuery SlotIntent = "new_query"
	// SlotIntentUpdate refines the current request: merge the delta over
	// the existing slots.
	SlotIntentUpdate SlotIntent = "slot_updation"
)

// ParseSlotIntent maps model output onto a slot intent. Anything
// unrecognized is treated as an update, which preserves context.
func ParseSlotIntent(s string) SlotIntent {
	if strings.ToLower(strings.TrimSpace(s)) == string(SlotIntentNewQuery) {
		return SlotIntentNewQuery
	}
	return SlotIntentUpdate
}

// State is the derived dialogue state. It is never stored; each turn
// recomputes it from the slots.
type State string

const (
	StateNeedDietary    State = "NEED_DIETARY"
	StateNeedPrice      State = "NEED_PRICE"
	StateReadyForSearch State = "READY_FOR_SEARCH"
)

// Action is the turn outcome the dialogue controller hands to the caller.
type Action string

const (
	// ActionAsk keeps gathering preferences.
	ActionAsk Action = "ASK"
	// ActionAskConfirm has enough to search and is asking the user to confirm.
	ActionAskConfirm Action = "ASK_SEARCH_CONFIRMATION"
	// ActionSearch triggers the retrieval pipeline.
	ActionSearch Action = "SEARCH"
	// ActionContinue is the recovery action after an internal failure.
	ActionContinue Action = "CONTINUE"
)

// ParseAction maps model output onto a known action, falling back to
// CONTINUE so a garbled reply never triggers a search.
func ParseAction(s string) Action {
	switch Action(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionAsk:
		return ActionAsk
	case ActionAskConfirm:
		return ActionAskConfirm
	case ActionSearch:
		return ActionSearch
	default:
		return ActionContinue
	}
}
