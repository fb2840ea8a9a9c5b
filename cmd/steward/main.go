package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/steward-agent/steward/pkg/agent"
	"github.com/steward-agent/steward/pkg/config"
	"github.com/steward-agent/steward/pkg/memory"
	"github.com/steward-agent/steward/pkg/model/gemini"
	"github.com/steward-agent/steward/pkg/poller"
	"github.com/steward-agent/steward/pkg/router"
	"github.com/steward-agent/steward/pkg/server"
	"github.com/steward-agent/steward/pkg/session"
	"github.com/steward-agent/steward/pkg/store/sqlite"
	"github.com/steward-agent/steward/pkg/tools"
)

func main() {
	// Setup logger.
	level := slog.LevelInfo
	if os.Getenv("STEWARD_DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize durable storage.
	os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755)
	db, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize model provider.
	provider, err := gemini.New(ctx, apiKey)
	if err != nil {
		slog.Error("Failed to initialize Gemini provider", "error", err)
		os.Exit(1)
	}

	summaryModel := cfg.Model.SummaryModel
	if summaryModel == "" {
		summaryModel = cfg.Model.Name
	}
	summarizer := memory.NewModelSummarizer(provider, summaryModel)

	// Each session gets its own agent instance with isolated memory and a
	// note context scoped to that session.
	factory := func(id string) *agent.Agent {
		mem := memory.New(memory.Config{
			RetainWindow:      cfg.Memory.RetainWindow,
			SummarizeFraction: cfg.Memory.SummarizeFraction,
			MaxSummaryChars:   cfg.Memory.MaxSummaryChars,
		}, summarizer)
		registry := tools.NewRegistry(tools.NoteTools(db, id)...)
		return agent.New(id, provider, mem, registry, agent.Config{
			Model:        cfg.Model.Name,
			Instructions: cfg.Model.Instructions,
		})
	}

	sessions := session.NewRegistry(db, factory, session.Config{
		LockTimeout: cfg.Session.LockTimeout,
	})
	rt := router.New(sessions)

	// Start the polling scheduler in background.
	var p *poller.Poller
	if cfg.Poller.Enabled {
		p = poller.New(rt, sessions, poller.Config{
			Interval:      cfg.Poller.Interval,
			Prompt:        cfg.Poller.Prompt,
			SessionPrefix: cfg.Poller.SessionPrefix,
		})
		go func() {
			if err := p.Start(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Polling scheduler stopped unexpectedly", "error", err)
			}
		}()
	}

	// Idle-session eviction housekeeping.
	if cfg.Session.IdleEviction > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Session.EvictionInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sessions.EvictIdle(cfg.Session.IdleEviction)
				}
			}
		}()
	}

	// Start server with graceful shutdown on signal.
	srv := server.New(rt, sessions, p)
	go func() {
		<-ctx.Done()
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Start(cfg.Server.Addr); err != nil && err != http.ErrServerClosed {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
