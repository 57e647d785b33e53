// Package config holds the fighter runtime configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cartridge/fighter/internal/gamestate"
	"github.com/cartridge/fighter/internal/health"
	"github.com/cartridge/fighter/internal/learner"
	"github.com/cartridge/fighter/internal/metrics"
)

// Source kinds.
const (
	SourceWebSocket = "websocket"
	SourceReplay    = "replay"
)

// Config holds all fighter configuration
type Config struct {
	Agent     AgentConfig     `mapstructure:"agent"`
	Source    SourceConfig    `mapstructure:"source"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    health.Config   `mapstructure:"health"`

	// Status surfaces; empty disables.
	HTTPAddr string `mapstructure:"http_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`

	// Optional overrides of the embedded tables
	FrameDataFile string `mapstructure:"framedata_file"`
	MovesFile     string `mapstructure:"moves_file"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// AgentConfig selects the learner and the seat.
type AgentConfig struct {
	ID         string         `mapstructure:"id"`
	Seat       gamestate.Seat `mapstructure:"seat"`
	Algorithm  string         `mapstructure:"algorithm"`
	TrainEvery int            `mapstructure:"train_every"`
	Seed       int64          `mapstructure:"seed"`
	FlushEvery int            `mapstructure:"flush_every"`
	Capacity   int            `mapstructure:"capacity"`
	BatchSize  int            `mapstructure:"batch_size"`

	// HeadToHead runs a second agent in the swapped seat.
	HeadToHead bool   `mapstructure:"head_to_head"`
	OpponentID string `mapstructure:"opponent_id"`
}

// SourceConfig selects where snapshots come from.
type SourceConfig struct {
	Kind        string        `mapstructure:"kind"`
	BridgeURL   string        `mapstructure:"bridge_url"`
	ReplayPath  string        `mapstructure:"replay_path"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// FanoutBuffer is the per-agent snapshot buffer in head-to-head mode.
	FanoutBuffer int `mapstructure:"fanout_buffer"`
}

// TelemetryConfig enables metrics sinks. The log sink is always on.
type TelemetryConfig struct {
	TextPath    string `mapstructure:"text_path"`
	NATSURL     string `mapstructure:"nats_url"`
	NATSSubject string `mapstructure:"nats_subject"`
	SQLDriver   string `mapstructure:"sql_driver"`
	SQLDSN      string `mapstructure:"sql_dsn"`

	// PublishTimeout bounds one flush to all sinks.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			ID:         "agent-1",
			Seat:       gamestate.Seat{Self: 1, Opponent: 2},
			Algorithm:  "random",
			FlushEvery: metrics.DefaultFlushEvery,
			OpponentID: "agent-2",
		},
		Source: SourceConfig{
			Kind:         SourceWebSocket,
			BridgeURL:    "ws://localhost:8765/match",
			DialTimeout:  10 * time.Second,
			FanoutBuffer: 8,
		},
		Telemetry: TelemetryConfig{
			NATSSubject:    "fighter.metrics",
			PublishTimeout: metrics.DefaultPublishTimeout,
		},
		Health: health.Config{
			CheckInterval: time.Second,
			StaleAfter:    5 * time.Second,
		},
		HTTPAddr:  ":8080",
		GRPCAddr:  ":9090",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load decodes v over the defaults and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Agent.ID == "" {
		return fmt.Errorf("agent.id is required")
	}
	if err := c.Agent.Seat.Validate(); err != nil {
		return fmt.Errorf("agent.seat: %w", err)
	}
	if _, err := learner.Lookup(c.Agent.Algorithm); err != nil {
		return fmt.Errorf("agent.algorithm: %w", err)
	}
	if c.Agent.TrainEvery < learner.NeverTrain {
		return fmt.Errorf("agent.train_every must be -1, 0 (algorithm default) or positive")
	}
	if c.Agent.FlushEvery <= 0 {
		return fmt.Errorf("agent.flush_every must be positive")
	}
	if c.Agent.HeadToHead && (c.Agent.OpponentID == "" || c.Agent.OpponentID == c.Agent.ID) {
		return fmt.Errorf("agent.opponent_id must be set and differ from agent.id in head-to-head mode")
	}

	switch c.Source.Kind {
	case SourceWebSocket:
		if c.Source.BridgeURL == "" {
			return fmt.Errorf("source.bridge_url is required for the websocket source")
		}
	case SourceReplay:
		if c.Source.ReplayPath == "" {
			return fmt.Errorf("source.replay_path is required for the replay source")
		}
	default:
		return fmt.Errorf("source.kind must be %q or %q, got %q", SourceWebSocket, SourceReplay, c.Source.Kind)
	}
	if c.Source.FanoutBuffer < 0 {
		return fmt.Errorf("source.fanout_buffer must not be negative")
	}

	if c.Telemetry.PublishTimeout <= 0 {
		return fmt.Errorf("telemetry.publish_timeout must be positive")
	}
	if c.Telemetry.NATSURL != "" && c.Telemetry.NATSSubject == "" {
		return fmt.Errorf("telemetry.nats_subject is required when telemetry.nats_url is set")
	}
	if c.Telemetry.SQLDSN != "" {
		switch c.Telemetry.SQLDriver {
		case metrics.DriverPostgres, metrics.DriverSQLite:
		default:
			return fmt.Errorf("telemetry.sql_driver must be %q or %q", metrics.DriverPostgres, metrics.DriverSQLite)
		}
	}

	if c.GRPCAddr != "" {
		if err := c.Health.Validate(); err != nil {
			return fmt.Errorf("health: %w", err)
		}
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console")
	}
	return nil
}
