// Package config loads steward's configuration from a YAML file and
// STEWARD_* environment variables, with defaults for every knob.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration surface.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Model   ModelConfig   `mapstructure:"model"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Store   StoreConfig   `mapstructure:"store"`
	Session SessionConfig `mapstructure:"session"`
	Poller  PollerConfig  `mapstructure:"poller"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// ModelConfig selects the reasoning models and instructions.
type ModelConfig struct {
	Name         string `mapstructure:"name"`          // main model
	SummaryModel string `mapstructure:"summary_model"` // compaction model; empty = main model
	Instructions string `mapstructure:"instructions"`  // system prompt
}

// MemoryConfig holds the conversation compaction policy.
type MemoryConfig struct {
	RetainWindow      int     `mapstructure:"retain_window"`
	SummarizeFraction float64 `mapstructure:"summarize_fraction"`
	MaxSummaryChars   int     `mapstructure:"max_summary_chars"`
}

// StoreConfig holds durable storage settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig holds registry housekeeping settings.
type SessionConfig struct {
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	IdleEviction     time.Duration `mapstructure:"idle_eviction"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval"`
}

// PollerConfig holds the autonomous polling loop settings.
type PollerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	Prompt        string        `mapstructure:"prompt"`
	SessionPrefix string        `mapstructure:"session_prefix"`
}

// Load reads configuration from the given file (optional) and the
// environment, applying defaults for everything unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/steward")
		v.SetConfigName("steward")
		v.SetConfigType("yaml")
	}

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("model.name", "gemini-2.0-flash")
	v.SetDefault("model.summary_model", "")
	v.SetDefault("model.instructions", defaultInstructions)

	v.SetDefault("memory.retain_window", 10)
	v.SetDefault("memory.summarize_fraction", 0.4)
	v.SetDefault("memory.max_summary_chars", 8000)

	v.SetDefault("store.path", "data/steward.db")

	v.SetDefault("session.lock_timeout", 30*time.Second)
	v.SetDefault("session.idle_eviction", 30*time.Minute)
	v.SetDefault("session.eviction_interval", 5*time.Minute)

	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.interval", 60*time.Second)
	v.SetDefault("poller.prompt", "Check for new inputs and act on them.")
	v.SetDefault("poller.session_prefix", "auto")

	v.SetEnvPrefix("STEWARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env carry the day.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

const defaultInstructions = `You are a supervisor agent that coordinates work for infrastructure monitoring and management.

Your role is to:
1. Answer user queries, delegating to the appropriate tool when one applies
2. When triggered autonomously, check for new inputs and act on them
3. Store important findings as notes for future reference

Use keyword_search_notes before answering questions about past work.`
