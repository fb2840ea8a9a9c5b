package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-agent/steward/pkg/domain"
)

func userTurn(content string) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, ContentType: domain.ContentTypeText, Content: content}
}

// countingSummarizer records every block it is asked to condense.
type countingSummarizer struct {
	calls  int
	blocks []string
	err    error
}

func (s *countingSummarizer) Summarize(_ context.Context, text string) (string, error) {
	s.calls++
	s.blocks = append(s.blocks, text)
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("summary#%d", s.calls), nil
}

func TestCompactionWindowAndFraction(t *testing.T) {
	ctx := context.Background()
	sum := &countingSummarizer{}
	m := New(Config{RetainWindow: 10, SummarizeFraction: 0.4}, sum)

	// The first 10 appends stay under the window: no compaction.
	for i := 1; i <= 10; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
	}
	assert.Equal(t, 10, m.Len())
	assert.Zero(t, sum.calls)
	assert.Empty(t, m.Summary())

	// The 11th append overflows: exactly the 4 oldest turns are compacted,
	// 7 raw turns remain live.
	m.Append(ctx, userTurn("turn-11"))
	assert.Equal(t, 7, m.Len())
	require.Equal(t, 1, sum.calls)
	assert.Equal(t, "summary#1", m.Summary())

	for i := 1; i <= 4; i++ {
		assert.Contains(t, sum.blocks[0], fmt.Sprintf("turn-%d", i))
	}
	assert.NotContains(t, sum.blocks[0], "turn-5")
}

func TestCompactedTurnsNeverReappear(t *testing.T) {
	ctx := context.Background()
	m := New(Config{RetainWindow: 10, SummarizeFraction: 0.4}, &countingSummarizer{})

	for i := 1; i <= 11; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
	}

	turns := m.Context()
	require.Equal(t, 8, len(turns)) // summary + 7 live
	assert.Equal(t, domain.RoleSummary, turns[0].Role)
	for _, turn := range turns[1:] {
		for i := 1; i <= 4; i++ {
			assert.NotEqual(t, fmt.Sprintf("turn-%d", i), turn.Content)
		}
	}
	// Chronological: turn-5 leads the live window.
	assert.Equal(t, "turn-5", turns[1].Content)
	assert.Equal(t, "turn-11", turns[7].Content)
}

func TestSummaryMonotonicallyNonShrinking(t *testing.T) {
	ctx := context.Background()
	m := New(Config{RetainWindow: 6, SummarizeFraction: 0.5, MaxSummaryChars: 1 << 20}, &countingSummarizer{})

	prev := 0
	for i := 0; i < 40; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
		require.GreaterOrEqual(t, len(m.Summary()), prev, "summary shrank at append %d", i)
		prev = len(m.Summary())
		require.LessOrEqual(t, m.Len(), 6)
	}
	assert.Positive(t, prev)
}

func TestSummarizerFailureRetainsTurnsAndRetries(t *testing.T) {
	ctx := context.Background()
	sum := &countingSummarizer{err: errors.New("model unavailable")}
	m := New(Config{RetainWindow: 4, SummarizeFraction: 0.5}, sum)

	for i := 1; i <= 6; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
	}
	// Both overflow appends attempted compaction and failed; nothing lost.
	assert.Equal(t, 6, m.Len())
	assert.Equal(t, 2, sum.calls)
	assert.Empty(t, m.Summary())

	// Summarizer recovers: the next append compacts.
	sum.err = nil
	m.Append(ctx, userTurn("turn-7"))
	assert.Less(t, m.Len(), 7)
	assert.NotEmpty(t, m.Summary())
}

func TestSummaryResummarizedWhenOversized(t *testing.T) {
	ctx := context.Background()
	long := strings.Repeat("x", 300)
	m := New(Config{RetainWindow: 2, SummarizeFraction: 0.5, MaxSummaryChars: 100},
		SummarizerFunc(func(_ context.Context, text string) (string, error) {
			if len(text) > 100 {
				return "condensed", nil
			}
			return long, nil
		}))

	for i := 1; i <= 4; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
	}
	// The long block summary blew past the bound and was re-summarized.
	assert.Equal(t, "condensed", m.Summary())
}

func TestToolResultNeverSplitFromCall(t *testing.T) {
	ctx := context.Background()
	sum := &countingSummarizer{}
	m := New(Config{RetainWindow: 4, SummarizeFraction: 0.5}, sum)

	m.Append(ctx, userTurn("question"))
	m.Append(ctx, domain.Turn{Role: domain.RoleAssistant, ContentType: domain.ContentTypeToolCall, Content: `{"name":"get_note"}`})
	m.Append(ctx, domain.Turn{Role: domain.RoleTool, ContentType: domain.ContentTypeToolResult, Content: `{"content":"..."}`})
	m.Append(ctx, domain.Turn{Role: domain.RoleAssistant, Content: "answer"})
	m.Append(ctx, userTurn("followup"))

	// The natural cut (2 turns) lands between the call and its result; the
	// result must ride along into the summary.
	require.Equal(t, 1, sum.calls)
	assert.Contains(t, sum.blocks[0], "get_note")
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, "answer", m.Context()[1].Content)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := New(Config{RetainWindow: 10, SummarizeFraction: 0.4}, &countingSummarizer{})
	for i := 1; i <= 11; i++ {
		m.Append(ctx, userTurn(fmt.Sprintf("turn-%d", i)))
	}

	snap := m.Snapshot()

	restored := New(Config{RetainWindow: 10, SummarizeFraction: 0.4}, &countingSummarizer{})
	restored.Restore(snap)

	assert.Equal(t, m.Summary(), restored.Summary())
	assert.Equal(t, m.Context(), restored.Context())
}

func TestNilSummarizerAccumulatesRaw(t *testing.T) {
	ctx := context.Background()
	m := New(Config{RetainWindow: 3}, nil)
	for i := 0; i < 10; i++ {
		m.Append(ctx, userTurn("t"))
	}
	assert.Equal(t, 10, m.Len())
	assert.Empty(t, m.Summary())
}
