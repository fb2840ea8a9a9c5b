// Package poller runs the autonomous polling loop: on a fixed interval it
// drives one trigger prompt through the router inside a fully isolated
// ephemeral session, then deletes that session unconditionally. No state
// leaks between ticks.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/steward-agent/steward/pkg/domain"
	"github.com/steward-agent/steward/pkg/router"
	"github.com/steward-agent/steward/pkg/session"
)

const (
	// DefaultInterval is the wait between ticks.
	DefaultInterval = 60 * time.Second

	// DefaultSessionPrefix namespaces ephemeral session IDs for log
	// filtering and to keep them disjoint from user sessions.
	DefaultSessionPrefix = "auto"

	// DefaultPrompt is the fixed trigger driven through the router each tick.
	DefaultPrompt = "Check for new inputs and act on them."

	// cleanupRetryDelay is the pause before the single cleanup retry.
	cleanupRetryDelay = 250 * time.Millisecond

	// cleanupTimeout bounds each cleanup attempt, detached from the tick's
	// own context so a cancelled tick still cleans up.
	cleanupTimeout = 10 * time.Second
)

// Config holds scheduler settings.
type Config struct {
	Interval      time.Duration
	Prompt        string
	SessionPrefix string
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.SessionPrefix == "" {
		c.SessionPrefix = DefaultSessionPrefix
	}
	return c
}

// Poller is the autonomous polling scheduler. One long-lived Start loop per
// process; ticks are single-flight (an overlapping timer fire is skipped,
// never run concurrently with a tick already in flight).
type Poller struct {
	router   *router.Router
	sessions *session.Registry
	cfg      Config

	inFlight atomic.Bool
	ticks    atomic.Int64
	failures atomic.Int64
}

// New creates a Poller.
func New(rt *router.Router, sessions *session.Registry, cfg Config) *Poller {
	return &Poller{router: rt, sessions: sessions, cfg: cfg.withDefaults()}
}

// Start runs the polling loop until ctx is cancelled. A failed tick never
// aborts future ticks.
func (p *Poller) Start(ctx context.Context) error {
	slog.Info("Polling scheduler started", "interval", p.cfg.Interval, "sessionPrefix", p.cfg.SessionPrefix)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Polling scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if !p.inFlight.CompareAndSwap(false, true) {
				slog.Warn("Skipping poll tick, previous tick still running")
				continue
			}
			go func() {
				defer p.inFlight.Store(false)
				p.RunTick(ctx)
			}()
		}
	}
}

// RunTick executes one full tick: mint an ephemeral session, drive the
// trigger prompt through the router, and clean the session up regardless of
// outcome. Exported so the tick is testable without the timer loop.
func (p *Poller) RunTick(ctx context.Context) error {
	id := domain.NewEphemeralSessionID(p.cfg.SessionPrefix)
	p.ticks.Add(1)
	slog.Debug("Poll tick starting", "sessionID", id)

	defer p.cleanup(ctx, id)

	var result *router.Result
	var err error
	if rec := panics.Try(func() {
		result, err = p.router.Handle(ctx, router.FormatSessionToken(id)+" "+p.cfg.Prompt)
	}); rec != nil {
		err = fmt.Errorf("poll tick panicked: %v", rec.Value)
	}

	if err != nil {
		p.failures.Add(1)
		slog.Error("Poll tick failed", "sessionID", id, "error", err)
		return err
	}

	slog.Debug("Poll tick completed", "sessionID", id, "responseChars", len(result.Text))
	return nil
}

// cleanup deletes the ephemeral session, retrying once on failure. Runs on a
// context detached from the tick's so cancellation cannot leak a session.
func (p *Poller) cleanup(ctx context.Context, id string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	err := p.sessions.Delete(cctx, id)
	if err == nil {
		return
	}
	slog.Warn("Ephemeral session cleanup failed, retrying", "sessionID", id, "error", err)

	time.Sleep(cleanupRetryDelay)
	if err := p.sessions.Delete(cctx, id); err != nil {
		slog.Error("Ephemeral session cleanup failed after retry", "sessionID", id, "error", err)
	}
}

// Stats returns the total tick and failure counts.
func (p *Poller) Stats() (ticks, failures int64) {
	return p.ticks.Load(), p.failures.Load()
}
