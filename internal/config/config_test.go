package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/fighter/internal/gamestate"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing id", func(c *Config) { c.Agent.ID = "" }},
		{"same ports", func(c *Config) { c.Agent.Seat = gamestate.Seat{Self: 2, Opponent: 2} }},
		{"unknown algorithm", func(c *Config) { c.Agent.Algorithm = "sarsa" }},
		{"bad cadence", func(c *Config) { c.Agent.TrainEvery = -2 }},
		{"zero flush", func(c *Config) { c.Agent.FlushEvery = 0 }},
		{"head to head same id", func(c *Config) { c.Agent.HeadToHead = true; c.Agent.OpponentID = c.Agent.ID }},
		{"unknown source", func(c *Config) { c.Source.Kind = "dolphin" }},
		{"replay without path", func(c *Config) { c.Source.Kind = SourceReplay }},
		{"websocket without url", func(c *Config) { c.Source.BridgeURL = "" }},
		{"nats without subject", func(c *Config) { c.Telemetry.NATSURL = "nats://x"; c.Telemetry.NATSSubject = "" }},
		{"zero publish timeout", func(c *Config) { c.Telemetry.PublishTimeout = 0 }},
		{"sql without driver", func(c *Config) { c.Telemetry.SQLDSN = "x.db" }},
		{"bad health", func(c *Config) { c.Health.StaleAfter = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fighter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  id: marth-ppo
  algorithm: replay
  train_every: -1
  seat:
    self: 2
    opponent: 1
source:
  kind: replay
  replay_path: /tmp/match.jsonl
telemetry:
  publish_timeout: 50ms
  sql_driver: sqlite
  sql_dsn: metrics.db
health:
  stale_after: 30s
`), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "marth-ppo", cfg.Agent.ID)
	assert.Equal(t, "replay", cfg.Agent.Algorithm)
	assert.Equal(t, -1, cfg.Agent.TrainEvery)
	assert.Equal(t, gamestate.Seat{Self: 2, Opponent: 1}, cfg.Agent.Seat)
	assert.Equal(t, SourceReplay, cfg.Source.Kind)
	assert.Equal(t, 30*time.Second, cfg.Health.StaleAfter)
	assert.Equal(t, 50*time.Millisecond, cfg.Telemetry.PublishTimeout)
	// Untouched keys keep their defaults.
	assert.Equal(t, time.Second, cfg.Health.CheckInterval)
	assert.Equal(t, 3600, cfg.Agent.FlushEvery)
	assert.Equal(t, "fighter.metrics", cfg.Telemetry.NATSSubject)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	v := viper.New()
	v.Set("source.kind", "carrier-pigeon")
	_, err := Load(v)
	assert.ErrorContains(t, err, "source.kind")
}
