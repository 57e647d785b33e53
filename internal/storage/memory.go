package storage

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBackend implements an in-memory replay buffer that evicts the oldest
// transitions once maxSize is exceeded.
type MemoryBackend struct {
	mu          sync.RWMutex
	transitions map[string]*Transition // ID -> Transition
	order       []string               // IDs in insertion order
	maxSize     int
	evicted     uint64
	rng         *rand.Rand
	now         func() time.Time
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend(maxSize int, seed int64) *MemoryBackend {
	return &MemoryBackend{
		transitions: make(map[string]*Transition),
		order:       make([]string, 0, maxSize),
		maxSize:     maxSize,
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
	}
}

// Store implements Backend.Store
func (m *MemoryBackend) Store(ctx context.Context, transition *Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transitions == nil {
		return fmt.Errorf("backend closed")
	}

	if transition.ID == "" {
		transition.ID = uuid.New().String()
	}
	if transition.Timestamp.IsZero() {
		transition.Timestamp = m.now()
	}
	if transition.Priority == 0 {
		transition.Priority = 1.0
	}
	if _, exists := m.transitions[transition.ID]; exists {
		return fmt.Errorf("transition %s already stored", transition.ID)
	}

	m.transitions[transition.ID] = transition
	m.order = append(m.order, transition.ID)
	m.evictIfNeeded()

	return nil
}

// Sample implements Backend.Sample
func (m *MemoryBackend) Sample(ctx context.Context, config SampleConfig) ([]*Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.order) == 0 {
		return nil, ErrEmpty
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}

	sampleSize := config.BatchSize
	if sampleSize > len(m.order) {
		sampleSize = len(m.order)
	}

	if config.Prioritized {
		return m.prioritizedSample(sampleSize, config.PriorityAlpha), nil
	}
	return m.uniformSample(sampleSize), nil
}

// UpdatePriorities implements Backend.UpdatePriorities
func (m *MemoryBackend) UpdatePriorities(ctx context.Context, ids []string, priorities []float64) error {
	if len(ids) != len(priorities) {
		return fmt.Errorf("mismatched lengths: %d IDs vs %d priorities", len(ids), len(priorities))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, id := range ids {
		if t, exists := m.transitions[id]; exists {
			t.Priority = priorities[i]
		}
	}
	return nil
}

// GetStats implements Backend.GetStats
func (m *MemoryBackend) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{
		TotalTransitions: uint64(len(m.order)),
		Evicted:          m.evicted,
	}
	if len(m.order) == 0 {
		return stats, nil
	}

	var sum float64
	for _, id := range m.order {
		sum += m.transitions[id].Reward
	}
	stats.MeanReward = sum / float64(len(m.order))

	oldest := m.transitions[m.order[0]].Timestamp
	newest := m.transitions[m.order[len(m.order)-1]].Timestamp
	stats.OldestTimestamp = &oldest
	stats.NewestTimestamp = &newest

	return stats, nil
}

// Close implements Backend.Close
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transitions = nil
	m.order = nil
	return nil
}

func (m *MemoryBackend) evictIfNeeded() {
	if m.maxSize <= 0 || len(m.order) <= m.maxSize {
		return
	}
	excess := len(m.order) - m.maxSize
	for _, id := range m.order[:excess] {
		delete(m.transitions, id)
	}
	m.order = append(m.order[:0], m.order[excess:]...)
	m.evicted += uint64(excess)
}

func (m *MemoryBackend) uniformSample(sampleSize int) []*Transition {
	indices := m.rng.Perm(len(m.order))
	sampled := make([]*Transition, sampleSize)
	for i := 0; i < sampleSize; i++ {
		sampled[i] = m.transitions[m.order[indices[i]]]
	}
	return sampled
}

func (m *MemoryBackend) prioritizedSample(sampleSize int, alpha float64) []*Transition {
	priorities := make([]float64, len(m.order))
	var total float64
	for i, id := range m.order {
		p := math.Pow(m.transitions[id].Priority, alpha)
		priorities[i] = p
		total += p
	}

	sampled := make([]*Transition, 0, sampleSize)
	used := make(map[int]bool, sampleSize)

	for len(sampled) < sampleSize {
		target := m.rng.Float64() * total
		var sum float64
		picked := -1
		for i, p := range priorities {
			if used[i] {
				continue
			}
			picked = i
			sum += p
			if sum >= target {
				break
			}
		}
		used[picked] = true
		total -= priorities[picked]
		sampled = append(sampled, m.transitions[m.order[picked]])
	}
	return sampled
}
