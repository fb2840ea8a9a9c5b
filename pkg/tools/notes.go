package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/store"
)

// NoteTools builds the note tools for one session, scoped so an agent
// instance can only see its own notes.
func NoteTools(notes store.NoteStore, sessionID string) []Tool {
	return []Tool{
		&storeNoteTool{notes: notes, sessionID: sessionID},
		&searchNotesTool{notes: notes, sessionID: sessionID},
		&getNoteTool{notes: notes},
		&deleteNoteTool{notes: notes},
	}
}

type storeNoteTool struct {
	notes     store.NoteStore
	sessionID string
}

func (t *storeNoteTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        "store_note",
		Description: "Store a searchable note for later retrieval.",
		Params: []domain.ToolParam{
			{Name: "title", Description: "The note title.", Required: true},
			{Name: "content", Description: "The note content.", Required: true},
		},
	}
}

func (t *storeNoteTool) Call(ctx context.Context, input map[string]any) (string, error) {
	title, _ := input["title"].(string)
	content, _ := input["content"].(string)

	note := &domain.Note{
		ID:        uuid.New().String(),
		SessionID: t.sessionID,
		Title:     title,
		Content:   content,
	}
	if err := t.notes.CreateNote(ctx, note); err != nil {
		return "", fmt.Errorf("creating note: %w", err)
	}
	return fmt.Sprintf("Note stored with ID: %s", note.ID), nil
}

type searchNotesTool struct {
	notes     store.NoteStore
	sessionID string
}

func (t *searchNotesTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        "keyword_search_notes",
		Description: "Search stored notes by keyword. Returns note IDs and titles.",
		Params: []domain.ToolParam{
			{Name: "query", Description: "The search query.", Required: true},
		},
	}
}

func (t *searchNotesTool) Call(ctx context.Context, input map[string]any) (string, error) {
	query, _ := input["query"].(string)

	notes, err := t.notes.KeywordSearch(ctx, t.sessionID, query)
	if err != nil {
		return "", fmt.Errorf("keyword search: %w", err)
	}

	type ref struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	refs := make([]ref, 0, len(notes))
	for _, n := range notes {
		refs = append(refs, ref{ID: n.ID, Title: n.Title})
	}
	b, _ := json.Marshal(refs)
	return string(b), nil
}

type getNoteTool struct {
	notes store.NoteStore
}

func (t *getNoteTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        "get_note",
		Description: "Retrieve the full content of a note by its ID.",
		Params: []domain.ToolParam{
			{Name: "id", Description: "The note ID.", Required: true},
		},
	}
}

func (t *getNoteTool) Call(ctx context.Context, input map[string]any) (string, error) {
	id, _ := input["id"].(string)

	note, err := t.notes.GetNote(ctx, id)
	if err != nil {
		return "", fmt.Errorf("getting note: %w", err)
	}
	b, _ := json.Marshal(note)
	return string(b), nil
}

type deleteNoteTool struct {
	notes store.NoteStore
}

func (t *deleteNoteTool) Spec() domain.ToolSpec {
	return domain.ToolSpec{
		Name:        "delete_note",
		Description: "Delete a note by its ID.",
		Params: []domain.ToolParam{
			{Name: "id", Description: "The note ID.", Required: true},
		},
	}
}

func (t *deleteNoteTool) Call(ctx context.Context, input map[string]any) (string, error) {
	id, _ := input["id"].(string)

	if err := t.notes.DeleteNote(ctx, id); err != nil {
		return "", fmt.Errorf("deleting note: %w", err)
	}
	return "Note deleted.", nil
}
