// Package health watches control loops for stalls and mirrors their state into
// the gRPC health service.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Config holds stall monitoring configuration
type Config struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

// Validate checks the intervals.
func (c Config) Validate() error {
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive")
	}
	if c.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be positive")
	}
	return nil
}

// StatusSetter is satisfied by *grpc/health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}

type heartbeat struct {
	last  time.Time
	stale bool
}

// Monitor tracks the last tick of every registered agent. Each agent is a gRPC
// health service named after its id.
type Monitor struct {
	setter StatusSetter
	config Config
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	agents map[string]*heartbeat
}

// NewMonitor creates a new stall monitor
func NewMonitor(setter StatusSetter, config Config, logger zerolog.Logger) *Monitor {
	return &Monitor{
		setter: setter,
		config: config,
		logger: logger.With().Str("component", "health_monitor").Logger(),
		now:    time.Now,
		agents: make(map[string]*heartbeat),
	}
}

// Register starts tracking agentID and reports it as serving.
func (m *Monitor) Register(agentID string) {
	m.mu.Lock()
	m.agents[agentID] = &heartbeat{last: m.now()}
	m.mu.Unlock()
	m.setter.SetServingStatus(agentID, healthpb.HealthCheckResponse_SERVING)
}

// Beat records a processed tick. A stale agent is marked serving again.
func (m *Monitor) Beat(agentID string) {
	m.mu.Lock()
	hb, ok := m.agents[agentID]
	if !ok {
		m.mu.Unlock()
		return
	}
	hb.last = m.now()
	recovered := hb.stale
	hb.stale = false
	m.mu.Unlock()

	if recovered {
		m.logger.Info().Str("agent_id", agentID).Msg("Agent resumed ticking")
		m.setter.SetServingStatus(agentID, healthpb.HealthCheckResponse_SERVING)
	}
}

// Stop marks agentID as not serving and stops tracking it.
func (m *Monitor) Stop(agentID string) {
	m.mu.Lock()
	delete(m.agents, agentID)
	m.mu.Unlock()
	m.setter.SetServingStatus(agentID, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Start begins the monitoring loop
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.logger.Info().
		Dur("check_interval", m.config.CheckInterval).
		Dur("stale_after", m.config.StaleAfter).
		Msg("Starting health monitor")

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Health monitor stopped")
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check marks every agent that has not ticked within StaleAfter as not serving.
func (m *Monitor) Check() {
	threshold := m.now().Add(-m.config.StaleAfter)

	var stale []string
	m.mu.Lock()
	for id, hb := range m.agents {
		if !hb.stale && hb.last.Before(threshold) {
			hb.stale = true
			stale = append(stale, id)
			m.logger.Warn().
				Str("agent_id", id).
				Time("last_tick", hb.last).
				Msg("Marking agent as stale")
		}
	}
	m.mu.Unlock()

	for _, id := range stale {
		m.setter.SetServingStatus(id, healthpb.HealthCheckResponse_NOT_SERVING)
	}
}
