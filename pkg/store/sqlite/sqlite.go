package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/store"
)

// Store implements SessionStore and NoteStore using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.SessionStore = (*Store)(nil)
var _ store.NoteStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		state BLOB NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		last_access DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_access ON sessions(last_access);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_notes_session ON notes(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- SessionStore ---

func (s *Store) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	rec := &domain.SessionRecord{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, state, created_at, last_access FROM sessions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.State, &rec.CreatedAt, &rec.LastAccess)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return rec, err
}

func (s *Store) Put(ctx context.Context, rec *domain.SessionRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastAccess = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, state, created_at, last_access) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state=excluded.state, last_access=excluded.last_access`,
		rec.ID, rec.State, rec.CreatedAt, rec.LastAccess,
	)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	// Idempotent: deleting an absent session is fine. Notes ride along, in
	// the same transaction so they cannot be orphaned.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE session_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) List(ctx context.Context) ([]domain.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, state, created_at, last_access FROM sessions ORDER BY last_access DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.SessionRecord
	for rows.Next() {
		var rec domain.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.State, &rec.CreatedAt, &rec.LastAccess); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// --- NoteStore ---

func (s *Store) CreateNote(ctx context.Context, note *domain.Note) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (id, session_id, title, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		note.ID, note.SessionID, note.Title, note.Content, note.CreatedAt,
	)
	return err
}

func (s *Store) GetNote(ctx context.Context, id string) (*domain.Note, error) {
	note := &domain.Note{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, title, content, created_at FROM notes WHERE id=?`, id,
	).Scan(&note.ID, &note.SessionID, &note.Title, &note.Content, &note.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return note, err
}

func (s *Store) ListNotes(ctx context.Context, sessionID string) ([]domain.Note, error) {
	return s.queryNotes(ctx,
		`SELECT id, session_id, title, content, created_at
		 FROM notes WHERE session_id=? ORDER BY created_at DESC`, sessionID)
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("note %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (s *Store) KeywordSearch(ctx context.Context, sessionID, query string) ([]domain.Note, error) {
	return s.queryNotes(ctx,
		`SELECT id, session_id, title, content, created_at
		 FROM notes WHERE session_id=? AND (title LIKE '%' || ? || '%' OR content LIKE '%' || ? || '%')
		 ORDER BY created_at DESC`,
		sessionID, query, query)
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.SessionID, &n.Title, &n.Content, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
