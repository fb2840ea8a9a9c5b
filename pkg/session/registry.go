// Package session maps session IDs to live agent instances and owns their
// lifecycle: lazy construction, rehydration from durable storage,
// persistence, eviction, and deletion. The registry is the sole
// synchronization point between request handlers and the polling scheduler.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/steward-agent/steward/pkg/agent"
	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/store"
)

// ErrLockTimeout is returned when the wait for a session's lock exceeds the
// configured bound. The request is failed; the lock holder is unaffected.
var ErrLockTimeout = errors.New("session lock wait timed out")

// DefaultLockTimeout bounds how long a caller waits on a busy session.
const DefaultLockTimeout = 30 * time.Second

// Factory constructs a fresh agent instance for a session ID.
type Factory func(id string) *agent.Agent

// Config holds registry settings.
type Config struct {
	// LockTimeout bounds the per-session lock wait. Zero means
	// DefaultLockTimeout.
	LockTimeout time.Duration
}

// Info is the registry's view of one tracked session.
type Info struct {
	ID         string    `json:"id"`
	Live       bool      `json:"live"`
	LastAccess time.Time `json:"last_access"`
}

// Registry maps SessionID to at most one live agent instance. Operations on
// different sessions proceed fully in parallel; operations on the same
// session are serialized by a per-key lock.
type Registry struct {
	records     store.SessionStore
	factory     Factory
	lockTimeout time.Duration

	mu       sync.Mutex // guards sessions map only
	sessions map[string]*entry
}

// entry tracks one session. The lock channel (capacity 1) is the per-key
// exclusion primitive; agent stays nil until first construction.
type entry struct {
	lock       chan struct{}
	agent      *agent.Agent
	createdAt  time.Time
	lastAccess time.Time
}

// NewRegistry creates a Registry backed by the given durable store.
func NewRegistry(records store.SessionStore, factory Factory, cfg Config) *Registry {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	return &Registry{
		records:     records,
		factory:     factory,
		lockTimeout: cfg.LockTimeout,
		sessions:    make(map[string]*entry),
	}
}

// entryFor returns the tracking entry for id, creating it if absent. Only
// the map lookup is under the registry mutex; per-session work happens under
// the entry's own lock.
func (r *Registry) entryFor(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{lock: make(chan struct{}, 1)}
		r.sessions[id] = e
	}
	return e
}

// Acquire returns the live agent instance for id with the session's lock
// held, constructing the instance if this is the first access. If a durable
// record exists but no live instance does, the conversation state is
// rehydrated from it first. Concurrent callers for the same id wait for the
// in-flight construction instead of racing; at most one instance is ever
// constructed per id.
//
// The caller must invoke release exactly once when done with the agent.
func (r *Registry) Acquire(ctx context.Context, id string) (inst *agent.Agent, release func(), err error) {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	var e *entry
	for {
		e = r.entryFor(id)
		select {
		case e.lock <- struct{}{}:
		case <-lockCtx.Done():
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			return nil, nil, fmt.Errorf("session %s: %w", id, ErrLockTimeout)
		}

		// The entry may have been evicted between lookup and lock
		// acquisition; constructing on an orphaned entry would allow two
		// live instances for one ID.
		r.mu.Lock()
		current := r.sessions[id] == e
		r.mu.Unlock()
		if current {
			break
		}
		<-e.lock
	}

	if e.agent == nil {
		a, createdAt, err := r.construct(ctx, id)
		if err != nil {
			<-e.lock
			return nil, nil, err
		}
		e.agent = a
		e.createdAt = createdAt
	}
	e.lastAccess = time.Now().UTC()

	return e.agent, func() { <-e.lock }, nil
}

// construct builds a fresh instance, loading persisted state when a durable
// record exists. Called with the session's lock held.
func (r *Registry) construct(ctx context.Context, id string) (*agent.Agent, time.Time, error) {
	a := r.factory(id)

	rec, err := r.records.Get(ctx, id)
	switch {
	case err == nil:
		var state domain.ConversationState
		if err := json.Unmarshal(rec.State, &state); err != nil {
			return nil, time.Time{}, fmt.Errorf("decoding session %s state: %w", id, err)
		}
		a.Restore(state)
		slog.Info("Rehydrated session", "sessionID", id, "turns", len(state.Turns))
		return a, rec.CreatedAt, nil
	case errors.Is(err, store.ErrNotFound):
		slog.Info("Created session", "sessionID", id)
		return a, time.Now().UTC(), nil
	default:
		return nil, time.Time{}, fmt.Errorf("loading session %s: %w", id, err)
	}
}

// Persist serializes the session's current conversation state to durable
// storage, overwriting any prior record. The caller must hold the session's
// lock (via Acquire).
func (r *Registry) Persist(ctx context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok || e.agent == nil {
		return fmt.Errorf("session %s: no live instance to persist", id)
	}

	state, err := json.Marshal(e.agent.Snapshot())
	if err != nil {
		return fmt.Errorf("encoding session %s state: %w", id, err)
	}
	if err := r.records.Put(ctx, &domain.SessionRecord{
		ID:        id,
		State:     state,
		CreatedAt: e.createdAt,
	}); err != nil {
		return fmt.Errorf("persisting session %s: %w", id, err)
	}
	return nil
}

// Delete removes both the in-memory instance and the durable record.
// Idempotent: deleting an absent session is a no-op. The per-session lock is
// taken so an in-flight request is never yanked out from under.
func (r *Registry) Delete(ctx context.Context, id string) error {
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	var e *entry
	for {
		e = r.entryFor(id)
		select {
		case e.lock <- struct{}{}:
		case <-lockCtx.Done():
			return fmt.Errorf("session %s: %w", id, ErrLockTimeout)
		}
		r.mu.Lock()
		current := r.sessions[id] == e
		r.mu.Unlock()
		if current {
			break
		}
		<-e.lock
	}
	defer func() { <-e.lock }()

	if err := r.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting session %s record: %w", id, err)
	}

	// Drop the tracking entry too, or every deleted session would stay in
	// the map (and in List output) forever. Waiters re-check map identity
	// after acquiring the lock and loop onto a fresh entry.
	e.agent = nil
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// EvictIdle drops in-memory instances untouched for longer than threshold.
// Durable records are untouched; an evicted session rehydrates on next
// access. Sessions currently locked are skipped. Returns the eviction count.
func (r *Registry) EvictIdle(threshold time.Duration) int {
	cutoff := time.Now().UTC().Add(-threshold)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.sessions {
		if e.lastAccess.After(cutoff) {
			continue
		}
		select {
		case e.lock <- struct{}{}:
		default:
			continue // in use
		}
		delete(r.sessions, id)
		<-e.lock
		evicted++
	}
	if evicted > 0 {
		slog.Info("Evicted idle sessions", "count", evicted, "threshold", threshold)
	}
	return evicted
}

// List returns the registry's view of tracked sessions.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]Info, 0, len(r.sessions))
	for id, e := range r.sessions {
		infos = append(infos, Info{ID: id, Live: e.agent != nil, LastAccess: e.lastAccess})
	}
	return infos
}

// Len returns the number of live in-memory instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.sessions {
		if e.agent != nil {
			n++
		}
	}
	return n
}

// History returns the session's current context view (summary + live turns),
// rehydrating the session if needed. A session that exists neither live nor
// durably yields store.ErrNotFound; a read never registers a new session.
func (r *Registry) History(ctx context.Context, id string) ([]domain.Turn, error) {
	r.mu.Lock()
	_, live := r.sessions[id]
	r.mu.Unlock()
	if !live {
		if _, err := r.records.Get(ctx, id); err != nil {
			return nil, err
		}
	}

	a, release, err := r.Acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	return a.History(), nil
}
