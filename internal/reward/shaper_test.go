package reward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/fighter/internal/gamestate"
	"github.com/cartridge/fighter/internal/stage"
)

var seat = gamestate.Seat{Self: 1, Opponent: 2}

type deadSet map[gamestate.Action]bool

func (d deadSet) IsDead(a gamestate.Action) bool { return d[a] }

var dead = deadSet{gamestate.ActionDeadDown: true}

// player describes one side of a fixture snapshot. Players are standing
// unless dead is set.
type player struct {
	dead    bool
	percent float64
	x, y    float64
}

func (p player) state() gamestate.PlayerState {
	action := gamestate.ActionStanding
	if p.dead {
		action = gamestate.ActionDeadDown
	}
	return gamestate.PlayerState{
		Action:   action,
		Percent:  p.percent,
		Position: gamestate.Position{X: p.x, Y: p.y},
	}
}

func snap(self, opp player) gamestate.Snapshot {
	return gamestate.Snapshot{
		Stage: gamestate.StageBattlefield,
		Players: map[gamestate.Port]gamestate.PlayerState{
			seat.Self:     self.state(),
			seat.Opponent: opp.state(),
		},
	}
}

func TestFixturePlayersAreAlive(t *testing.T) {
	s := snap(player{}, player{dead: true})
	assert.False(t, dead.IsDead(s.Players[seat.Self].Action))
	assert.True(t, dead.IsDead(s.Players[seat.Opponent].Action))

	r, err := newShaper().Reward(snap(player{}, player{}), snap(player{}, player{}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func newShaper() *Shaper {
	return NewShaper(dead, stage.Default(), seat)
}

func TestShaper_DamageTerm(t *testing.T) {
	s := newShaper()
	prev := snap(player{percent: 10}, player{percent: 20})
	cur := snap(player{percent: 12}, player{percent: 34})

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.InDelta(t, math.Tanh(12.0/4)*0.7, r, 1e-12)
}

func TestShaper_DamageClampedAtZero(t *testing.T) {
	s := newShaper()

	// A life reset drops percent from 150 to 0; that is not negative damage.
	prev := snap(player{percent: 150}, player{percent: 150})
	cur := snap(player{percent: 0}, player{percent: 0})

	dealt, received, err := s.Damage(prev, cur)
	require.NoError(t, err)
	assert.Equal(t, 0.0, dealt)
	assert.Equal(t, 0.0, received)

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}

func TestShaper_BoundaryTerms(t *testing.T) {
	s := newShaper()
	prev := snap(player{}, player{})

	tests := []struct {
		name string
		self player
		opp  player
		want float64
	}{
		{"both on stage", player{x: 10, y: 0}, player{x: -10, y: 0}, 0},
		{"opponent off the side", player{}, player{x: 90, y: 10}, 0.2},
		{"self below floor", player{x: 0, y: -5}, player{}, -0.3},
		{"both off stage", player{x: -80, y: 20}, player{x: 80, y: 20}, -0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := s.Reward(prev, snap(tt.self, tt.opp))
			require.NoError(t, err)
			assert.InDelta(t, tt.want, r, 1e-12)
		})
	}
}

func TestShaper_BoundaryCombinesWithDamage(t *testing.T) {
	s := newShaper()
	prev := snap(player{percent: 0}, player{percent: 0})
	cur := snap(player{percent: 0, x: -80, y: 20}, player{percent: 8, x: 80, y: 20})

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.InDelta(t, math.Tanh(2)*0.7-0.1, r, 1e-12)
}

func TestShaper_SelfDeathOverridesEverything(t *testing.T) {
	s := newShaper()
	prev := snap(player{percent: 100}, player{percent: 0})
	cur := snap(player{dead: true, percent: 100}, player{percent: 50, x: 200})

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.Equal(t, DeathReward, r)
}

func TestShaper_SelfDeathTakesPrecedenceOverKill(t *testing.T) {
	s := newShaper()
	prev := snap(player{}, player{})
	cur := snap(player{dead: true}, player{dead: true})

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.Equal(t, DeathReward, r)
}

func TestShaper_OpponentDeathIsKillReward(t *testing.T) {
	s := newShaper()
	prev := snap(player{percent: 30}, player{percent: 120})
	cur := snap(player{percent: 45, x: 100}, player{dead: true, percent: 120})

	r, err := s.Reward(prev, cur)
	require.NoError(t, err)
	assert.Equal(t, KillReward, r)
}

func TestShaper_UnknownStage(t *testing.T) {
	s := newShaper()
	prev := snap(player{}, player{})
	cur := snap(player{}, player{})
	cur.Stage = "TEMPLE"

	_, err := s.Reward(prev, cur)
	assert.ErrorIs(t, err, stage.ErrUnknownStage)
}
