// Package metrics builds the periodic telemetry record of a control loop and
// publishes it to the configured sinks.
package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/episode"
)

// DefaultFlushEvery is one minute of frames at 60 fps.
const DefaultFlushEvery = 60 * 60

// DefaultPublishTimeout bounds one publish to all sinks.
const DefaultPublishTimeout = 250 * time.Millisecond

// Metric keys written by the aggregator itself.
const (
	KeyAverageReward   = "average_reward"
	KeyReward          = "reward"
	KeyKDR             = "kdr"
	KeyPercentAtKill   = "percent_at_kill"
	KeyPercentAtDeath  = "percent_at_death"
	keyActionFrequency = "action_frequency_"
)

// Record is one flushed set of metrics.
type Record struct {
	AgentID   string             `json:"agent_id"`
	Tick      uint64             `json:"tick"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// Sink receives flushed records.
type Sink interface {
	Publish(ctx context.Context, r Record) error
}

// Config controls the aggregator.
type Config struct {
	AgentID    string
	FlushEvery int

	// PublishTimeout bounds each flush's publish; zero means
	// DefaultPublishTimeout.
	PublishTimeout time.Duration
}

// Aggregator builds records every FlushEvery ticks. Flush is called only from
// the control loop; Latest may be read from any goroutine.
type Aggregator struct {
	agentID        string
	flushEvery     uint64
	publishTimeout time.Duration
	sink           Sink
	logger         zerolog.Logger
	now            func() time.Time

	mu     sync.RWMutex
	latest *Record
}

// NewAggregator creates an aggregator. A nil sink drops records after they are
// retained as Latest.
func NewAggregator(cfg Config, sink Sink, logger zerolog.Logger) (*Aggregator, error) {
	if cfg.FlushEvery <= 0 {
		return nil, fmt.Errorf("flush interval must be positive, got %d", cfg.FlushEvery)
	}
	timeout := cfg.PublishTimeout
	if timeout < 0 {
		return nil, fmt.Errorf("publish timeout must not be negative, got %s", timeout)
	}
	if timeout == 0 {
		timeout = DefaultPublishTimeout
	}
	return &Aggregator{
		agentID:        cfg.AgentID,
		flushEvery:     uint64(cfg.FlushEvery),
		publishTimeout: timeout,
		sink:           sink,
		logger:         logger.With().Str("component", "metrics").Str("agent_id", cfg.AgentID).Logger(),
		now:            time.Now,
	}, nil
}

// Due reports whether tick is a flush tick.
func (a *Aggregator) Due(tick uint64) bool {
	return tick%a.flushEvery == 0
}

// Build assembles the record for tick. Learner keys override the aggregator's
// own keys when they collide.
func (a *Aggregator) Build(tick uint64, stats *episode.Stats, learnerLog map[string]float64) Record {
	values := map[string]float64{
		KeyAverageReward:  stats.MeanReward(),
		KeyReward:         stats.LatestReward(),
		KeyKDR:            stats.KillDeathDiff(),
		KeyPercentAtKill:  stats.PercentAtKill,
		KeyPercentAtDeath: stats.PercentAtDeath,
	}
	for action, freq := range stats.ActionFrequency() {
		values[fmt.Sprintf("%s%d", keyActionFrequency, action)] = freq
	}
	for k, v := range learnerLog {
		values[k] = v
	}
	return Record{
		AgentID:   a.agentID,
		Tick:      tick,
		Timestamp: a.now().UTC(),
		Values:    values,
	}
}

// Flush builds, retains and publishes the record for tick. The publish is
// bounded by the publish timeout; sink failures, deadline included, are logged
// and swallowed.
func (a *Aggregator) Flush(ctx context.Context, tick uint64, stats *episode.Stats, learnerLog map[string]float64) Record {
	r := a.Build(tick, stats, learnerLog)

	a.mu.Lock()
	a.latest = &r
	a.mu.Unlock()

	if a.sink != nil {
		pctx, cancel := context.WithTimeout(ctx, a.publishTimeout)
		defer cancel()
		if err := a.sink.Publish(pctx, r); err != nil {
			a.logger.Warn().Err(err).Uint64("tick", tick).Dur("timeout", a.publishTimeout).Msg("Failed to publish metrics")
		}
	}
	return r
}

// Latest returns the most recent record, if any flush has happened.
func (a *Aggregator) Latest() (Record, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return Record{}, false
	}
	return *a.latest, true
}
