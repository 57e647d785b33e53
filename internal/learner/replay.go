package learner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/cartridge/fighter/internal/storage"
)

const (
	defaultReplayCapacity = 100_000
	defaultReplayBatch    = 32
	replayPriorityAlpha   = 0.6
)

func init() {
	Register(Algorithm{
		Tag:        "replay",
		Family:     FamilyOffPolicy,
		TrainEvery: 1,
		NewOffPolicy: func(o Options) (OffPolicy, error) {
			return NewReplay(o, nil)
		},
	})
}

// ReplayLearner stores every transition in a replay backend and samples a
// prioritized batch on each Train call. It acts uniformly at random; the
// batch statistics it reports are what a value learner would consume.
type ReplayLearner struct {
	backend    storage.Backend
	rng        *rand.Rand
	inputDim   int
	numActions int
	batchSize  int

	stored       int
	trainCalls   int
	lastBatch    int
	lastBatchAvg float64
}

var _ OffPolicy = (*ReplayLearner)(nil)

// NewReplay builds a replay learner. A nil backend gets an in-memory one
// sized by o.Capacity.
func NewReplay(o Options, backend storage.Backend) (*ReplayLearner, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	capacity := o.Capacity
	if capacity <= 0 {
		capacity = defaultReplayCapacity
	}
	batch := o.BatchSize
	if batch <= 0 {
		batch = defaultReplayBatch
	}
	if backend == nil {
		backend = storage.NewMemoryBackend(capacity, o.Seed)
	}
	return &ReplayLearner{
		backend:    backend,
		rng:        rand.New(rand.NewSource(o.Seed)),
		inputDim:   o.InputDim,
		numActions: o.NumActions,
		batchSize:  batch,
	}, nil
}

// Predict implements OffPolicy
func (r *ReplayLearner) Predict(observation []float64) (int, error) {
	if len(observation) != r.inputDim {
		return 0, fmt.Errorf("observation has %d values, want %d", len(observation), r.inputDim)
	}
	return r.rng.Intn(r.numActions), nil
}

// Learn implements OffPolicy
func (r *ReplayLearner) Learn(exp Experience) error {
	if len(exp.Observation) != r.inputDim || len(exp.NextObservation) != r.inputDim {
		return fmt.Errorf("experience observations have %d/%d values, want %d",
			len(exp.Observation), len(exp.NextObservation), r.inputDim)
	}
	if exp.Action < 0 || exp.Action >= r.numActions {
		return fmt.Errorf("action %d out of range [0, %d)", exp.Action, r.numActions)
	}
	t := &storage.Transition{
		Tick:            uint64(r.stored),
		Observation:     exp.Observation,
		Action:          exp.Action,
		Reward:          exp.Reward,
		NextObservation: exp.NextObservation,
		Done:            exp.Done,
	}
	if err := r.backend.Store(context.Background(), t); err != nil {
		return fmt.Errorf("store transition: %w", err)
	}
	r.stored++
	return nil
}

// Train implements OffPolicy. An empty buffer is not an error.
func (r *ReplayLearner) Train() error {
	r.trainCalls++
	batch, err := r.backend.Sample(context.Background(), storage.SampleConfig{
		BatchSize:     r.batchSize,
		Prioritized:   true,
		PriorityAlpha: replayPriorityAlpha,
	})
	if errors.Is(err, storage.ErrEmpty) {
		r.lastBatch, r.lastBatchAvg = 0, 0
		return nil
	}
	if err != nil {
		return fmt.Errorf("sample batch: %w", err)
	}

	var sum float64
	ids := make([]string, len(batch))
	priorities := make([]float64, len(batch))
	for i, t := range batch {
		sum += t.Reward
		ids[i] = t.ID
		// Surprising transitions are replayed more often.
		priorities[i] = 1 + math.Abs(t.Reward)
	}
	if err := r.backend.UpdatePriorities(context.Background(), ids, priorities); err != nil {
		return fmt.Errorf("update priorities: %w", err)
	}
	r.lastBatch = len(batch)
	r.lastBatchAvg = sum / float64(len(batch))
	return nil
}

// Log implements OffPolicy
func (r *ReplayLearner) Log() map[string]float64 {
	out := map[string]float64{
		"stored_transitions": float64(r.stored),
		"train_calls":        float64(r.trainCalls),
		"batch_size":         float64(r.lastBatch),
		"batch_mean_reward":  r.lastBatchAvg,
	}
	if stats, err := r.backend.GetStats(context.Background()); err == nil {
		out["buffer_size"] = float64(stats.TotalTransitions)
		out["buffer_evicted"] = float64(stats.Evicted)
		out["buffer_mean_reward"] = stats.MeanReward
	}
	return out
}

// Close releases the backend.
func (r *ReplayLearner) Close() error {
	return r.backend.Close()
}
