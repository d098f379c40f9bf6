package agent

import (
	"context"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/extract"
	"github.com/palate-labs/palate/internal/respond"
)

// SlotExtractor pulls a slot delta and slot intent from an utterance.
type SlotExtractor interface {
	Extract(ctx context.Context, message string, filled map[string]any) extract.Result
}

// IntentClassifier determines the utterance's purpose.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string) (convo.Intent, float64)
}

// ResponseGenerator produces the conversational reply.
type ResponseGenerator interface {
	Generate(ctx context.Context, userMsg, contextSummary string, prefs slots.Slots, questionHistory []string) respond.Reply
}
