package store

import (
	"context"
	"errors"

	"github.com/steward-agent/steward/pkg/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SessionStore is the durable persistence contract for sessions: key-value
// by SessionID, opaque serialized state, per-key atomic put. No transactional
// guarantees beyond that.
type SessionStore interface {
	// Get retrieves the record for the given session ID.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)

	// Put writes the record, overwriting any prior record for the same ID.
	Put(ctx context.Context, rec *domain.SessionRecord) error

	// Delete removes the record and any per-session data hanging off it.
	// Deleting an absent record is a no-op, not an error.
	Delete(ctx context.Context, id string) error

	// List returns all records ordered by last access descending.
	List(ctx context.Context) ([]domain.SessionRecord, error)
}

// NoteStore manages persistent, searchable notes scoped to one session.
type NoteStore interface {
	// CreateNote persists a new note. The ID field must be set by the caller.
	CreateNote(ctx context.Context, note *domain.Note) error

	// GetNote retrieves a note by its unique ID.
	// Returns ErrNotFound if the note does not exist.
	GetNote(ctx context.Context, id string) (*domain.Note, error)

	// ListNotes returns all notes for the given session, newest first.
	ListNotes(ctx context.Context, sessionID string) ([]domain.Note, error)

	// DeleteNote removes a note by ID.
	DeleteNote(ctx context.Context, id string) error

	// KeywordSearch returns the session's notes whose title or content
	// contain the query string, newest first.
	KeywordSearch(ctx context.Context, sessionID, query string) ([]domain.Note, error)
}
