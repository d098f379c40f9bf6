// Package intentcls classifies the purpose of a user utterance.
package intentcls

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
)

const prompt = `You are an expert at understanding user intents in food recommendation conversations.
Classify the user's message into one of these intents:
- RECOMMEND: User wants food recommendations
- FILTER_UPDATE: User is specifying preferences (dietary, cuisine, price, etc.)
- CLARIFICATION: User needs clarification or has questions
- FEEDBACK: User is giving feedback on recommendations
- GREETING: User is starting the conversation
- GOODBYE: User is ending the conversation
- OTHER: Unclear or unrelated intent

Respond with ONLY the intent name and confidence score (0-1) in this format:
INTENT: [intent_name]
CONFIDENCE: [0-1]

User message: "%s"
Classify this message:`

// keywordPatterns backs the classifier when the model is unavailable.
// Scan order matters: broader buckets come last.
var keywordPatterns = []struct {
	intent   convo.Intent
	keywords []string
}{
	{convo.IntentRecommend, []string{"recommend", "suggest", "looking for", "show me", "want", "find"}},
	{convo.IntentFilterUpdate, []string{"budget", "veg", "nonveg", "vegan", "cheap", "spicy", "sweet", "cuisine"}},
	{convo.IntentGreeting, []string{"hi", "hello", "hey", "good morning", "good afternoon"}},
	{convo.IntentGoodbye, []string{"bye", "thanks", "thank you", "quit", "done", "goodbye"}},
	{convo.IntentFeedback, []string{"good", "great", "bad", "love", "hate", "like", "dislike"}},
}

// Classifier determines utterance intent with a confidence score.
type Classifier struct {
	llm llm.Client
	log *zap.Logger
}

// New creates a Classifier.
func New(client llm.Client, log *zap.Logger) *Classifier {
	return &Classifier{llm: client, log: log}
}

// Classify never fails: a model or parse failure degrades to keyword
// matching at reduced confidence.
func (c *Classifier) Classify(ctx context.Context, utterance string) (convo.Intent, float64) {
	raw, err := c.llm.Complete(ctx, llm.Request{
		Component: "intent",
		User:      fmt.Sprintf(prompt, utterance),
	})
	if err == nil {
		if intent, confidence, ok := parseReply(raw); ok {
			return intent, confidence
		}
		err = fmt.Errorf("reply missing INTENT/CONFIDENCE lines")
	}

	c.log.Warn("intent classification failed, using keyword fallback", zap.Error(err))
	metrics.FallbacksTotal.WithLabelValues("intent").Inc()
	return keywordClassify(utterance)
}

// parseReply reads the INTENT and CONFIDENCE lines, clamping the
// confidence into [0, 1].
func parseReply(raw string) (convo.Intent, float64, bool) {
	var intentLine, confidenceLine string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "INTENT:"):
			intentLine = strings.TrimSpace(strings.TrimPrefix(line, "INTENT:"))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			confidenceLine = strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
		}
	}
	if intentLine == "" || confidenceLine == "" {
		return convo.IntentOther, 0, false
	}
	confidence, err := strconv.ParseFloat(confidenceLine, 64)
	if err != nil {
		return convo.IntentOther, 0, false
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return convo.ParseIntent(intentLine), confidence, true
}

func keywordClassify(utterance string) (convo.Intent, float64) {
	lower := strings.ToLower(utterance)
	for _, p := range keywordPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return p.intent, 0.6
			}
		}
	}
	return convo.IntentOther, 0.3
}
