// Package session holds per-conversation state: preference slots, turn
// history, and the archive of completed searches.
package session

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/palate-labs/palate/internal/domain/convo"
	"github.com/palate-labs/palate/internal/domain/slots"
)

// Memory is the mutable state of one conversation. Safe for concurrent use.
type Memory struct {
	mu sync.Mutex

	id             string
	maxTurns       int
	log            *zap.Logger
	prefs          slots.Slots
	history        []Turn
	searches       []SearchRecord
	questions      []string
	contextSummary string
	// recommendationsShown flips after the first completed search and
	// resets on a new query, so responses can reference prior results.
	recommendationsShown bool
}

// NewMemory creates an empty conversation memory. maxTurns caps the stored
// history; zero or negative means unbounded.
func NewMemory(id string, maxTurns int, log *zap.Logger) *Memory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Memory{
		id:       id,
		maxTurns: maxTurns,
		log:      log.With(zap.String("session_id", id)),
	}
}

// ID returns the session identifier.
func (m *Memory) ID() string { return m.id }

// ApplyDelta folds an extraction delta into the slots according to the
// slot intent. A new query clears everything before applying; an update
// merges over the existing values. Returns the applied slot values.
func (m *Memory) ApplyDelta(intent convo.SlotIntent, delta slots.Delta) map[slots.Name]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.prefs.Filled()

	var applied map[slots.Name]any
	var rejected []slots.Name
	switch intent {
	case convo.SlotIntentNewQuery:
		m.history = nil
		m.contextSummary = ""
		m.recommendationsShown = false
		applied, rejected = m.prefs.ReplaceAll(delta)
	default:
		applied, rejected = m.prefs.Merge(delta)
	}

	for _, name := range rejected {
		m.log.Warn("rejected slot value", zap.String("slot", string(name)))
	}
	m.log.Info("slots updated",
		zap.String("slot_intent", string(intent)),
		zap.Any("before", asStringMap(before)),
		zap.Any("after", asStringMap(m.prefs.Filled())),
	)
	return applied
}

// Snapshot returns a copy of the current slots.
func (m *Memory) Snapshot() slots.Slots {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// AddTurn archives one exchange, trims history to the configured cap, and
// refreshes the context summary.
func (m *Memory) AddTurn(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	m.history = append(m.history, t)
	if m.maxTurns > 0 && len(m.history) > m.maxTurns {
		m.history = m.history[len(m.history)-m.maxTurns:]
	}
	m.refreshContextSummary()
}

// History returns a copy of the stored turns, oldest first.
func (m *Memory) History() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.history))
	copy(out, m.history)
	return out
}

// RecordQuestion archives a question the assistant asked, so later turns
// can steer the generator away from repeating it.
func (m *Memory) RecordQuestion(q string) {
	if q == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, q)
}

// QuestionsAsked returns a copy of every question asked so far.
func (m *Memory) QuestionsAsked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.questions))
	copy(out, m.questions)
	return out
}

// ContextSummary returns the one-line preference summary.
func (m *Memory) ContextSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contextSummary
}

// Clear resets the conversation to its initial state.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs.Clear()
	m.history = nil
	m.questions = nil
	m.contextSummary = ""
	m.recommendationsShown = false
	m.log.Info("conversation memory cleared")
}

// MarkRecommendationsShown records that the user has seen results.
func (m *Memory) MarkRecommendationsShown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recommendationsShown = true
}

// RecommendationsShown reports whether results were shown this query.
func (m *Memory) RecommendationsShown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recommendationsShown
}

// AddSearch archives a completed search.
func (m *Memory) AddSearch(rec SearchRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	m.searches = append(m.searches, rec)
}

// Searches returns a copy of the search archive, oldest first.
func (m *Memory) Searches() []SearchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SearchRecord, len(m.searches))
	copy(out, m.searches)
	return out
}

// SearchByIndex returns the archived search at index.
func (m *Memory) SearchByIndex(i int) (SearchRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.searches) {
		return SearchRecord{}, false
	}
	return m.searches[i], true
}

func (m *Memory) refreshContextSummary() {
	filled := m.prefs.Filled()
	if len(filled) == 0 {
		m.contextSummary = "No preferences set"
		return
	}
	parts := make([]string, 0, len(filled))
	for _, name := range slots.All {
		if v, ok := filled[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", name, v))
		}
	}
	m.contextSummary = "Prefs: " + strings.Join(parts, ", ")
}

func asStringMap(in map[slots.Name]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[string(k)] = v
	}
	return out
}

// FilledKeys returns the names of the set slots, sorted, for log fields.
func FilledKeys(in map[slots.Name]any) []string {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}
