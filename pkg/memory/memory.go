// Package memory bounds a session's conversation context. It keeps a live
// window of raw turns and compacts the oldest ones into a rolling summary
// once the window overflows.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/steward-agent/steward/pkg/domain"
)

const (
	// DefaultRetainWindow is the number of raw turns kept live before
	// compaction kicks in.
	DefaultRetainWindow = 10

	// DefaultSummarizeFraction is the fraction of the retain window that is
	// compacted in one pass. 0.4 means the oldest 4 turns of a 10-turn
	// window are folded into the summary.
	DefaultSummarizeFraction = 0.4

	// DefaultMaxSummaryChars bounds the rolling summary itself. When the
	// summary alone exceeds this, it is re-summarized.
	DefaultMaxSummaryChars = 8000
)

// Config holds the compaction policy knobs.
type Config struct {
	RetainWindow      int
	SummarizeFraction float64
	MaxSummaryChars   int
}

func (c Config) withDefaults() Config {
	if c.RetainWindow <= 0 {
		c.RetainWindow = DefaultRetainWindow
	}
	if c.SummarizeFraction <= 0 || c.SummarizeFraction >= 1 {
		c.SummarizeFraction = DefaultSummarizeFraction
	}
	if c.MaxSummaryChars <= 0 {
		c.MaxSummaryChars = DefaultMaxSummaryChars
	}
	return c
}

// Summarizer condenses a block of conversation text. Treated as a pure call
// into the opaque reasoning capability.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, text string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// Manager owns one session's turn history. It is not safe for concurrent
// use; the session registry serializes access per session.
type Manager struct {
	cfg        Config
	summarizer Summarizer

	summary string
	turns   []domain.Turn
}

// New creates a Manager with the given policy. A nil summarizer disables
// compaction (turns accumulate raw).
func New(cfg Config, summarizer Summarizer) *Manager {
	return &Manager{cfg: cfg.withDefaults(), summarizer: summarizer}
}

// Append adds a turn to the live window and then runs the compaction check.
// Appending itself never fails; a failed summarization leaves the raw turns
// in place and is retried on the next append.
func (m *Manager) Append(ctx context.Context, turn domain.Turn) {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	if turn.ContentType == "" {
		turn.ContentType = domain.ContentTypeText
	}
	m.turns = append(m.turns, turn)

	if err := m.Compact(ctx); err != nil {
		slog.Warn("Compaction deferred", "error", err, "liveTurns", len(m.turns))
	}
}

// Compact folds the oldest turns into the rolling summary when the live
// window exceeds the retain count. Compacted turns are never reconsidered
// individually again.
func (m *Manager) Compact(ctx context.Context) error {
	if len(m.turns) <= m.cfg.RetainWindow {
		return nil
	}
	if m.summarizer == nil {
		return nil
	}

	count := int(math.Round(m.cfg.SummarizeFraction * float64(m.cfg.RetainWindow)))
	if count < 1 {
		count = 1
	}
	if count > len(m.turns)-1 {
		count = len(m.turns) - 1
	}

	// Never split a tool call from its result: if the cut lands between the
	// two, pull the result into the compacted block as well.
	for count < len(m.turns) && m.turns[count].Role == domain.RoleTool {
		count++
	}
	if count >= len(m.turns) {
		return nil
	}

	block := renderTurns(m.turns[:count])
	condensed, err := m.summarizer.Summarize(ctx, block)
	if err != nil {
		return fmt.Errorf("summarizing %d turns: %w", count, err)
	}
	if condensed == "" {
		return fmt.Errorf("summarizer returned empty summary for %d turns", count)
	}

	if m.summary == "" {
		m.summary = condensed
	} else {
		m.summary = m.summary + "\n\n" + condensed
	}
	m.turns = append([]domain.Turn(nil), m.turns[count:]...)

	// Bound the summary itself. A failure here is tolerable: the summary is
	// oversized but correct, and the next compaction retries.
	if len(m.summary) > m.cfg.MaxSummaryChars {
		resummarized, err := m.summarizer.Summarize(ctx, m.summary)
		if err == nil && resummarized != "" {
			m.summary = resummarized
		} else {
			slog.Warn("Summary re-summarization failed", "error", err, "summaryChars", len(m.summary))
		}
	}

	slog.Debug("Compacted conversation", "compactedTurns", count, "liveTurns", len(m.turns), "summaryChars", len(m.summary))
	return nil
}

// Context returns the material handed to the reasoning capability for the
// next turn: the rolling summary (as a leading summary turn) followed by the
// live window, in chronological order.
func (m *Manager) Context() []domain.Turn {
	out := make([]domain.Turn, 0, len(m.turns)+1)
	if m.summary != "" {
		out = append(out, domain.Turn{
			Role:        domain.RoleSummary,
			ContentType: domain.ContentTypeText,
			Content:     m.summary,
		})
	}
	return append(out, m.turns...)
}

// Summary returns the current rolling summary.
func (m *Manager) Summary() string { return m.summary }

// Len returns the number of live raw turns.
func (m *Manager) Len() int { return len(m.turns) }

// Snapshot returns the serializable form of the conversation.
func (m *Manager) Snapshot() domain.ConversationState {
	return domain.ConversationState{
		Summary: m.summary,
		Turns:   append([]domain.Turn(nil), m.turns...),
	}
}

// Restore replaces the conversation with a previously persisted state.
func (m *Manager) Restore(state domain.ConversationState) {
	m.summary = state.Summary
	m.turns = append([]domain.Turn(nil), state.Turns...)
}

func renderTurns(turns []domain.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s\n", t.Role, t.Content)
	}
	return b.String()
}
