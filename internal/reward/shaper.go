// Package reward computes the shaped per-tick learning signal.
package reward

import (
	"math"

	"github.com/cartridge/fighter/internal/gamestate"
)

const (
	damageScale     = 4.0
	damageWeight    = 0.7
	opponentOffside = 0.2
	selfOffside     = -0.3

	// Terminal rewards replace the shaped value on the tick a player is dead.
	DeathReward = -1.0
	KillReward  = 1.0
)

// DeadSet reports membership in the dead action set.
type DeadSet interface {
	IsDead(a gamestate.Action) bool
}

// Boundaries reports whether a position is past the ledges or below the floor.
type Boundaries interface {
	OffStage(s gamestate.Stage, pos gamestate.Position) (bool, error)
}

// Shaper is a pure function of two consecutive snapshots.
type Shaper struct {
	dead   DeadSet
	bounds Boundaries
	seat   gamestate.Seat
}

// NewShaper returns a shaper for seat.
func NewShaper(dead DeadSet, bounds Boundaries, seat gamestate.Seat) *Shaper {
	return &Shaper{dead: dead, bounds: bounds, seat: seat}
}

// Reward returns tanh((dealt-received)/4)*0.7 plus the boundary term, or the
// terminal value when a player is dead in cur.
func (s *Shaper) Reward(prev, cur gamestate.Snapshot) (float64, error) {
	dealt, received, err := s.Damage(prev, cur)
	if err != nil {
		return 0, err
	}
	newSelf, newOpp, err := cur.Seat(s.seat)
	if err != nil {
		return 0, err
	}

	bounds, err := s.boundary(cur.Stage, newSelf, newOpp)
	if err != nil {
		return 0, err
	}

	r := math.Tanh((dealt-received)/damageScale)*damageWeight + bounds

	switch {
	case s.dead.IsDead(newSelf.Action):
		r = DeathReward
	case s.dead.IsDead(newOpp.Action):
		r = KillReward
	}
	return r, nil
}

// Damage returns the damage dealt and received between two snapshots, clamped
// at zero so a percent reset across lives never counts as negative damage.
func (s *Shaper) Damage(prev, cur gamestate.Snapshot) (dealt, received float64, err error) {
	oldSelf, oldOpp, err := prev.Seat(s.seat)
	if err != nil {
		return 0, 0, err
	}
	newSelf, newOpp, err := cur.Seat(s.seat)
	if err != nil {
		return 0, 0, err
	}
	return math.Max(newOpp.Percent-oldOpp.Percent, 0), math.Max(newSelf.Percent-oldSelf.Percent, 0), nil
}

func (s *Shaper) boundary(stage gamestate.Stage, self, opp gamestate.PlayerState) (float64, error) {
	var term float64
	oppOff, err := s.bounds.OffStage(stage, opp.Position)
	if err != nil {
		return 0, err
	}
	if oppOff {
		term += opponentOffside
	}
	selfOff, err := s.bounds.OffStage(stage, self.Position)
	if err != nil {
		return 0, err
	}
	if selfOff {
		term += selfOffside
	}
	return term, nil
}
