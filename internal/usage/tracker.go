// Package usage accumulates token accounting across every LLM call of one
// pipeline run. A Tracker is created per run and passed explicitly so tests
// and batch mode get isolated ledgers.
package usage

import (
	"sync"
	"time"

	"github.com/Jenny-Gump/content-generator/internal/domain"
)

// Entry is one recorded LLM call.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Stage     string            `json:"stage"`
	RequestID string            `json:"request_id,omitempty"`
	Model     string            `json:"model"`
	Attempts  int               `json:"attempts"`
	Succeeded bool              `json:"succeeded"`
	Usage     domain.TokenUsage `json:"usage"`
}

// StageTotals aggregates all calls of one stage.
type StageTotals struct {
	Requests int               `json:"requests"`
	Usage    domain.TokenUsage `json:"usage"`
}

// SessionTotals summarizes a whole run.
type SessionTotals struct {
	Topic            string    `json:"topic"`
	TotalRequests    int       `json:"total_requests"`
	PromptTokens     int       `json:"total_prompt_tokens"`
	CompletionTokens int       `json:"total_completion_tokens"`
	ReasoningTokens  int       `json:"total_reasoning_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	SessionStart     time.Time `json:"session_start"`
	SessionEnd       time.Time `json:"session_end"`
	DurationMinutes  float64   `json:"session_duration_minutes"`
}

// Report is the serialized end-of-run document.
type Report struct {
	Session SessionTotals          `json:"session_summary"`
	Stages  map[string]StageTotals `json:"stage_breakdown"`
	Entries []Entry                `json:"detailed_breakdown"`
}

// Tracker is safe for concurrent Record calls; per-source extraction runs in
// parallel within a stage.
type Tracker struct {
	mu      sync.Mutex
	topic   string
	start   time.Time
	now     func() time.Time
	entries []Entry
}

// NewTracker starts a fresh ledger for the given topic.
func NewTracker(topic string) *Tracker {
	return &Tracker{
		topic: topic,
		start: time.Now(),
		now:   time.Now,
	}
}

// Record appends one terminal LLM outcome to the ledger.
func (t *Tracker) Record(stage, requestID, model string, attempts int, succeeded bool, u domain.TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{
		Timestamp: t.now(),
		Stage:     stage,
		RequestID: requestID,
		Model:     model,
		Attempts:  attempts,
		Succeeded: succeeded,
		Usage:     u,
	})
}

// Summary returns the current totals; callable at any time, including mid-run.
func (t *Tracker) Summary() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	stages := map[string]StageTotals{}
	var total domain.TokenUsage
	for _, e := range t.entries {
		st := stages[e.Stage]
		st.Requests++
		st.Usage.Add(e.Usage)
		stages[e.Stage] = st
		total.Add(e.Usage)
	}

	end := t.now()
	entries := make([]Entry, len(t.entries))
	copy(entries, t.entries)

	return Report{
		Session: SessionTotals{
			Topic:            t.topic,
			TotalRequests:    len(t.entries),
			PromptTokens:     total.PromptTokens,
			CompletionTokens: total.CompletionTokens,
			ReasoningTokens:  total.ReasoningTokens,
			TotalTokens:      total.TotalTokens,
			SessionStart:     t.start,
			SessionEnd:       end,
			DurationMinutes:  end.Sub(t.start).Minutes(),
		},
		Stages:  stages,
		Entries: entries,
	}
}
