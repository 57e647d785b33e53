// Package episode tracks death transitions between consecutive snapshots and
// keeps the rolling statistics the metrics flush reports.
package episode

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cartridge/fighter/internal/ringbuf"
)

const (
	// RewardHistory is four minutes of frames at 60 fps.
	RewardHistory   = 4 * 60 * 60
	KillDeathWindow = 20
	ActionHistory   = 3600

	initialPercentAtKill  = 300
	initialPercentAtDeath = 0
)

// Stats is owned by one control loop and mutated only by it.
type Stats struct {
	Rewards   *ringbuf.Ring[float64]
	KillDeath *ringbuf.Ring[int]
	Actions   *ringbuf.Ring[int]

	// Latest percent of the opponent when it died and of self when it died.
	PercentAtKill  float64
	PercentAtDeath float64
}

// NewStats returns empty statistics with the standard capacities.
func NewStats() *Stats {
	return &Stats{
		Rewards:        ringbuf.New[float64](RewardHistory),
		KillDeath:      ringbuf.New[int](KillDeathWindow),
		Actions:        ringbuf.New[int](ActionHistory),
		PercentAtKill:  initialPercentAtKill,
		PercentAtDeath: initialPercentAtDeath,
	}
}

// MeanReward is the mean of the reward history, zero when empty.
func (s *Stats) MeanReward() float64 {
	if s.Rewards.Len() == 0 {
		return 0
	}
	return stat.Mean(s.Rewards.Values(), nil)
}

// LatestReward is the most recent reward, zero when empty.
func (s *Stats) LatestReward() float64 {
	r, _ := s.Rewards.Latest()
	return r
}

// KillDeathDiff is kills minus deaths over the last KillDeathWindow events.
func (s *Stats) KillDeathDiff() float64 {
	values := s.KillDeath.Values()
	f := make([]float64, len(values))
	for i, v := range values {
		f[i] = float64(v)
	}
	return floats.Sum(f)
}

// ActionFrequency is the share of the action history spent on each action.
func (s *Stats) ActionFrequency() map[int]float64 {
	values := s.Actions.Values()
	out := make(map[int]float64)
	if len(values) == 0 {
		return out
	}
	for _, a := range values {
		out[a]++
	}
	n := float64(len(values))
	for a := range out {
		out[a] /= n
	}
	return out
}
