// Package extract turns a user utterance into a slot delta plus a slot
// intent, via the model with a rule-based fallback.
package extract

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
	"github.com/palate-labs/palate/internal/llm"
	"github.com/palate-labs/palate/internal/metrics"
)

// Result is one extraction outcome. UsedFallback marks rule-based results.
type Result struct {
	Intent       convo.SlotIntent
	Delta        slots.Delta
	UsedFallback bool
}

// Extractor extracts slot values from user messages.
type Extractor struct {
	llm llm.Client
	log *zap.Logger
}

// New creates an Extractor.
func New(client llm.Client, log *zap.Logger) *Extractor {
	return &Extractor{llm: client, log: log}
}

// Extract never fails: when the model call or its JSON cannot be used, the
// rule-based extractor answers instead and the intent defaults to update.
func (e *Extractor) Extract(ctx context.Context, message string, filled map[string]any) Result {
	raw, err := e.llm.Complete(ctx, llm.Request{
		Component: "extract",
		User:      extractionPrompt(message, filled),
	})
	if err == nil {
		var parsed map[string]any
		if derr := llm.DecodeJSON(raw, &parsed); derr == nil {
			return Result{
				Intent: convo.ParseSlotIntent(stringField(parsed, "user_intent")),
				Delta:  deltaFromParsed(parsed),
			}
		} else {
			err = derr
		}
	}

	e.log.Warn("model extraction failed, using rule-based fallback", zap.Error(err))
	metrics.FallbacksTotal.WithLabelValues("extract").Inc()
	delta := fallbackExtract(message)
	if delta.IsEmpty() {
		e.log.Debug("rule-based fallback read nothing off the message")
	}
	return Result{
		Intent:       convo.SlotIntentUpdate,
		Delta:        delta,
		UsedFallback: true,
	}
}

// deltaFromParsed reads the known slot keys out of the decoded reply,
// dropping the sentinel spellings of "absent".
func deltaFromParsed(parsed map[string]any) slots.Delta {
	var d slots.Delta
	if v, ok := normalizedString(parsed, "dietary"); ok {
		d.Dietary = &v
	}
	if v, ok := normalizedString(parsed, "cuisine_1"); ok {
		d.Cuisine1 = &v
	}
	if v, ok := normalizedString(parsed, "cuisine_2"); ok {
		d.Cuisine2 = &v
	}
	if v, ok := normalizedString(parsed, "item_name"); ok {
		d.ItemName = &v
	}
	if v, ok := normalizedString(parsed, "meal_type"); ok {
		d.MealType = &v
	}
	if v, ok := normalizedString(parsed, "label"); ok {
		d.Label = &v
	}
	if p, ok := priceField(parsed); ok {
		d.Price = &p
	}
	return d
}

func stringField(parsed map[string]any, key string) string {
	s, _ := parsed[key].(string)
	return s
}

func normalizedString(parsed map[string]any, key string) (string, bool) {
	s, ok := parsed[key].(string)
	if !ok {
		return "", false
	}
	return slots.NormalizeValue(s)
}

func priceField(parsed map[string]any) (int, bool) {
	switch v := parsed["price"].(type) {
	case float64:
		return int(v), true
	case string:
		// Models sometimes quote the number.
		s, ok := slots.NormalizeValue(v)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return n, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
