package episode

import (
	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/gamestate"
)

// DeadSet reports membership in the dead action set.
type DeadSet interface {
	IsDead(a gamestate.Action) bool
}

// Outcome classifies one pair of consecutive snapshots.
type Outcome struct {
	// Died is true only when the tracked self player died this tick.
	Died bool
	// AlreadyDead is true when either player continues a death animation.
	AlreadyDead bool
}

// Tracker detects ALIVE -> DEAD transitions and records them into Stats.
type Tracker struct {
	dead   DeadSet
	seat   gamestate.Seat
	stats  *Stats
	logger zerolog.Logger
}

// NewTracker returns a tracker writing into stats.
func NewTracker(dead DeadSet, seat gamestate.Seat, stats *Stats, logger zerolog.Logger) *Tracker {
	return &Tracker{
		dead:   dead,
		seat:   seat,
		stats:  stats,
		logger: logger.With().Str("component", "episode_tracker").Logger(),
	}
}

// Update evaluates the opponent first, then self.
func (t *Tracker) Update(prev, cur gamestate.Snapshot) (Outcome, error) {
	oldSelf, oldOpp, err := prev.Seat(t.seat)
	if err != nil {
		return Outcome{}, err
	}
	newSelf, newOpp, err := cur.Seat(t.seat)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome

	if t.dead.IsDead(newOpp.Action) {
		if !t.dead.IsDead(oldOpp.Action) {
			t.stats.KillDeath.Push(1)
			t.stats.PercentAtKill = oldOpp.Percent
			t.logger.Info().
				Int64("frame", cur.Frame).
				Stringer("from", oldOpp.Action).
				Stringer("to", newOpp.Action).
				Float64("percent", oldOpp.Percent).
				Msg("Opponent died")
		} else {
			out.AlreadyDead = true
		}
	}

	if t.dead.IsDead(newSelf.Action) {
		if !t.dead.IsDead(oldSelf.Action) {
			t.stats.KillDeath.Push(-1)
			t.stats.PercentAtDeath = oldSelf.Percent
			out.Died = true
			t.logger.Info().
				Int64("frame", cur.Frame).
				Stringer("from", oldSelf.Action).
				Stringer("to", newSelf.Action).
				Float64("percent", oldSelf.Percent).
				Msg("Died")
		} else {
			out.AlreadyDead = true
		}
	}

	return out, nil
}
