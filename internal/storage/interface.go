// Package storage holds experience transitions for learners that replay them.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrEmpty is returned when sampling from a backend with no transitions.
var ErrEmpty = errors.New("no transitions available for sampling")

// Transition is one stored experience.
type Transition struct {
	ID              string    `json:"id"`
	AgentID         string    `json:"agent_id"`
	Tick            uint64    `json:"tick"`
	Observation     []float64 `json:"observation"`
	Action          int       `json:"action"`
	Reward          float64   `json:"reward"`
	NextObservation []float64 `json:"next_observation"`
	Done            bool      `json:"done"`
	Priority        float64   `json:"priority"`
	Timestamp       time.Time `json:"timestamp"`
}

// SampleConfig defines parameters for sampling transitions.
type SampleConfig struct {
	BatchSize     int
	Prioritized   bool
	PriorityAlpha float64
}

// Stats summarizes backend contents.
type Stats struct {
	TotalTransitions uint64
	Evicted          uint64
	MeanReward       float64
	OldestTimestamp  *time.Time
	NewestTimestamp  *time.Time
}

// Backend defines the interface for replay storage implementations.
type Backend interface {
	// Store a single transition
	Store(ctx context.Context, transition *Transition) error

	// Sample transitions according to the given configuration
	Sample(ctx context.Context, config SampleConfig) ([]*Transition, error)

	// Update priorities for prioritized replay
	UpdatePriorities(ctx context.Context, ids []string, priorities []float64) error

	// Get buffer statistics
	GetStats(ctx context.Context) (*Stats, error)

	// Close the backend and cleanup resources
	Close() error
}
