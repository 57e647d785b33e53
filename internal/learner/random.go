package learner

import (
	"fmt"
	"math/rand"
)

func init() {
	Register(Algorithm{
		Tag:        "random",
		Family:     FamilyOnPolicy,
		TrainEvery: 2048,
		NewOnPolicy: func(o Options) (OnPolicy, error) {
			return NewRandom(o)
		},
	})
}

// RandomPolicy selects uniformly among all actions and reports the uniform
// probability. It keeps running totals of what it was fed so the metrics flush
// has something to report.
type RandomPolicy struct {
	rng        *rand.Rand
	inputDim   int
	numActions int

	experiences int
	deaths      int
	rewardSum   float64
	pending     int
	trainCalls  int
}

var _ OnPolicy = (*RandomPolicy)(nil)

// NewRandom creates a uniform random policy.
func NewRandom(o Options) (*RandomPolicy, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &RandomPolicy{
		rng:        rand.New(rand.NewSource(o.Seed)),
		inputDim:   o.InputDim,
		numActions: o.NumActions,
	}, nil
}

// Predict implements OnPolicy
func (p *RandomPolicy) Predict(observation []float64) (int, float64, error) {
	if len(observation) != p.inputDim {
		return 0, 0, fmt.Errorf("observation has %d values, want %d", len(observation), p.inputDim)
	}
	return p.rng.Intn(p.numActions), 1 / float64(p.numActions), nil
}

// Learn implements OnPolicy
func (p *RandomPolicy) Learn(exp OnPolicyExperience) error {
	if len(exp.Observation) != p.inputDim || len(exp.NextObservation) != p.inputDim {
		return fmt.Errorf("experience observations have %d/%d values, want %d",
			len(exp.Observation), len(exp.NextObservation), p.inputDim)
	}
	if exp.Action < 0 || exp.Action >= p.numActions {
		return fmt.Errorf("action %d out of range [0, %d)", exp.Action, p.numActions)
	}
	if exp.ActionProbability <= 0 || exp.ActionProbability > 1 {
		return fmt.Errorf("action probability %v out of range (0, 1]", exp.ActionProbability)
	}
	p.experiences++
	p.pending++
	p.rewardSum += exp.Reward
	if exp.Dead {
		p.deaths++
	}
	return nil
}

// Train implements OnPolicy. There is nothing to fit; the trajectory is dropped.
func (p *RandomPolicy) Train() error {
	p.trainCalls++
	p.pending = 0
	return nil
}

// Log implements OnPolicy
func (p *RandomPolicy) Log() map[string]float64 {
	mean := 0.0
	if p.experiences > 0 {
		mean = p.rewardSum / float64(p.experiences)
	}
	return map[string]float64{
		"experiences":         float64(p.experiences),
		"pending_trajectory":  float64(p.pending),
		"train_calls":         float64(p.trainCalls),
		"terminal_states":     float64(p.deaths),
		"mean_learned_reward": mean,
	}
}
