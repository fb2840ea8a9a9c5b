package tools

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/store/sqlite"
)

type fakeTool struct {
	name string
	out  string
	err  error
}

func (t *fakeTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{Name: t.name, Description: "fake"}
}

func (t *fakeTool) Call(context.Context, map[string]any) (string, error) {
	return t.out, t.err
}

func TestRegistrySpecsInRegistrationOrder(t *testing.T) {
	r := NewRegistry(
		&fakeTool{name: "beta"},
		&fakeTool{name: "alpha"},
		&fakeTool{name: "gamma"},
	)

	specs := r.Specs()
	require.Len(t, specs, 3)
	assert.Equal(t, "beta", specs[0].Name)
	assert.Equal(t, "alpha", specs[1].Name)
	assert.Equal(t, "gamma", specs[2].Name)
}

func TestDispatch(t *testing.T) {
	r := NewRegistry(
		&fakeTool{name: "ok", out: "done"},
		&fakeTool{name: "broken", err: errors.New("disk full")},
	)

	res := r.Dispatch(context.Background(), &domain.ToolCall{ID: "c1", Name: "ok"})
	assert.False(t, res.IsError)
	assert.Equal(t, "done", res.Content)
	assert.Equal(t, "c1", res.ToolCallID)

	// Tool failure is folded into the result, not returned.
	res = r.Dispatch(context.Background(), &domain.ToolCall{ID: "c2", Name: "broken"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "disk full")

	res = r.Dispatch(context.Background(), &domain.ToolCall{ID: "c3", Name: "nonexistent"})
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "unknown tool")
}

func TestEmptyRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Specs())

	res := r.Dispatch(context.Background(), &domain.ToolCall{ID: "c1", Name: "anything"})
	assert.True(t, res.IsError)
}

func TestNoteToolsScopedToSession(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mine := NewRegistry(NoteTools(db, "session-a")...)
	theirs := NewRegistry(NoteTools(db, "session-b")...)

	out := mine.Dispatch(ctx, &domain.ToolCall{ID: "c1", Name: "store_note", Input: map[string]any{
		"title":   "Runbook",
		"content": "Restart the ingest worker first",
	}})
	require.False(t, out.IsError, out.Content)

	// The owning session finds it.
	found := mine.Dispatch(ctx, &domain.ToolCall{ID: "c2", Name: "keyword_search_notes", Input: map[string]any{
		"query": "Runbook",
	}})
	require.False(t, found.IsError)
	assert.Contains(t, found.Content, "Runbook")

	// Another session does not.
	hidden := theirs.Dispatch(ctx, &domain.ToolCall{ID: "c3", Name: "keyword_search_notes", Input: map[string]any{
		"query": "Runbook",
	}})
	require.False(t, hidden.IsError)
	assert.Equal(t, "[]", hidden.Content)
}

func TestNoteGetAndDelete(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := NewRegistry(NoteTools(db, "s1")...)

	stored := r.Dispatch(ctx, &domain.ToolCall{ID: "c1", Name: "store_note", Input: map[string]any{
		"title":   "Incident 42",
		"content": "Root cause: expired cert",
	}})
	require.False(t, stored.IsError)
	id := strings.TrimPrefix(stored.Content, "Note stored with ID: ")

	got := r.Dispatch(ctx, &domain.ToolCall{ID: "c2", Name: "get_note", Input: map[string]any{"id": id}})
	require.False(t, got.IsError)
	assert.Contains(t, got.Content, "expired cert")

	del := r.Dispatch(ctx, &domain.ToolCall{ID: "c3", Name: "delete_note", Input: map[string]any{"id": id}})
	require.False(t, del.IsError)

	gone := r.Dispatch(ctx, &domain.ToolCall{ID: "c4", Name: "get_note", Input: map[string]any{"id": id}})
	assert.True(t, gone.IsError)
}
