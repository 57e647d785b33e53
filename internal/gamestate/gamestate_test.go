package gamestate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeat(t *testing.T) {
	s := Seat{Self: 1, Opponent: 2}
	require.NoError(t, s.Validate())
	assert.Equal(t, Seat{Self: 2, Opponent: 1}, s.Swap())
	assert.Equal(t, s, s.Swap().Swap())

	assert.Error(t, Seat{Self: 0, Opponent: 2}.Validate())
	assert.Error(t, Seat{Self: 3, Opponent: 3}.Validate())
}

func TestSnapshot_Seat(t *testing.T) {
	snap := Snapshot{
		Frame: 42,
		Players: map[Port]PlayerState{
			1: {Character: CharacterFox, Percent: 12},
			2: {Character: CharacterMarth, Percent: 30},
		},
	}

	self, opp, err := snap.Seat(Seat{Self: 2, Opponent: 1})
	require.NoError(t, err)
	assert.Equal(t, CharacterMarth, self.Character)
	assert.Equal(t, CharacterFox, opp.Character)

	_, _, err = snap.Seat(Seat{Self: 1, Opponent: 4})
	assert.ErrorIs(t, err, ErrMissingPlayerSlot)
	assert.ErrorContains(t, err, "frame 42")
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(ActionStanding.String())
	require.NoError(t, err)
	assert.Equal(t, ActionStanding, a)
	assert.True(t, a.Known())

	_, err = ParseAction("MOONWALK")
	assert.Error(t, err)

	unknown := Action(0x3ff)
	assert.False(t, unknown.Known())
	assert.Equal(t, "ACTION_0x3ff", unknown.String())
}

func TestActions_SortedAndParseable(t *testing.T) {
	all := Actions()
	require.NotEmpty(t, all)
	for i, a := range all {
		if i > 0 {
			assert.Less(t, all[i-1], a)
		}
		parsed, err := ParseAction(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
}

func TestParseCharacter(t *testing.T) {
	c, err := ParseCharacter("FOX")
	require.NoError(t, err)
	assert.Equal(t, CharacterFox, c)

	_, err = ParseCharacter("fox")
	assert.Error(t, err)
}

func TestSnapshot_DecodeJSON(t *testing.T) {
	raw := `{
		"frame": 120,
		"stage": "BATTLEFIELD",
		"players": {
			"1": {"character": "FOX", "action": 14, "action_frame": 3, "position": {"x": -10.5, "y": 0},
				"percent": 47.5, "shield_strength": 60, "facing": 1, "on_ground": true, "jumps_left": 2},
			"2": {"character": "FALCO", "action": 0, "percent": 0}
		}
	}`

	var snap Snapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &snap))
	assert.Equal(t, int64(120), snap.Frame)
	assert.Equal(t, StageBattlefield, snap.Stage)

	fox, err := snap.Player(1)
	require.NoError(t, err)
	assert.Equal(t, ActionStanding, fox.Action)
	assert.Equal(t, -10.5, fox.Position.X)
	assert.Equal(t, 47.5, fox.Percent)
	assert.True(t, fox.OnGround)
	assert.Equal(t, 2, fox.JumpsLeft)

	falco, err := snap.Player(2)
	require.NoError(t, err)
	assert.Equal(t, ActionDeadDown, falco.Action)
}
