package session

import (
	"time"

	"github.com/palate-labs/palate/internal/domain/document"
	"github.com/palate-labs/palate/internal/domain/foodfilter"
	"github.com/palate-labs/palate/internal/domain/rank"
)

// Turn is a single exchange stored in the conversation history.
type Turn struct {
	Timestamp    time.Time      `json:"timestamp"`
	UserMessage  string         `json:"user_message"`
	Response     string         `json:"system_response"`
	Intent       string         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	SlotsUpdated map[string]any `json:"slots_updated"`
	ActionState  string         `json:"action_state,omitempty"`
}

// EnrichedDocument is a ranked entry with the source document's metadata
// re-attached.
type EnrichedDocument struct {
	rank.RankedDocument
	Meta document.Metadata `json:"metadata"`
}

// SearchRecord archives one completed search.
type SearchRecord struct {
	Query      string                `json:"query"`
	Filter     foodfilter.Expression `json:"filter"`
	Timestamp  time.Time             `json:"timestamp"`
	Conditions []rank.Condition      `json:"conditions"`
	TopDocs    []EnrichedDocument    `json:"top_docs"`
}
