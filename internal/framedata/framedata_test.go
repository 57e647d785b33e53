package framedata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/fighter/internal/gamestate"
)

func TestDefault_LoadsCompleteTable(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Len(t, d.Characters(), 6)

	for _, c := range d.Characters() {
		for _, a := range gamestate.Actions() {
			_, err := d.FrameCount(c, a)
			assert.NoError(t, err, "%s %s", c, a)
		}
	}
}

func TestDefault_Sets(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	assert.True(t, d.IsDead(gamestate.ActionDeadDown))
	assert.True(t, d.IsDead(gamestate.ActionOnHaloDescent))
	assert.False(t, d.IsDead(gamestate.ActionStanding))
	assert.True(t, d.IsSpecialFall(gamestate.ActionSpecialFallBack))
	assert.False(t, d.IsSpecialFall(gamestate.ActionFalling))

	jumps, err := d.MaxJumps(gamestate.CharacterJigglypuff)
	require.NoError(t, err)
	assert.Equal(t, 6, jumps)
}

func TestData_AttackPhase(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	// Fox nair hits on frames 4 through 31.
	tests := []struct {
		frame int
		want  AttackPhase
	}{
		{1, PhaseWindup},
		{3, PhaseWindup},
		{4, PhaseActive},
		{31, PhaseActive},
		{32, PhaseCooldown},
	}
	for _, tt := range tests {
		phase, err := d.AttackPhase(gamestate.CharacterFox, gamestate.ActionNair, tt.frame)
		require.NoError(t, err)
		assert.Equal(t, tt.want, phase, "frame %d", tt.frame)
	}

	phase, err := d.AttackPhase(gamestate.CharacterFox, gamestate.ActionStanding, 10)
	require.NoError(t, err)
	assert.Equal(t, PhaseNone, phase)
}

func TestData_CharacterOverridesCommon(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	marth, err := d.FrameCount(gamestate.CharacterMarth, gamestate.ActionFSmashMid)
	require.NoError(t, err)
	fox, err := d.FrameCount(gamestate.CharacterFox, gamestate.ActionFSmashMid)
	require.NoError(t, err)
	assert.Equal(t, 47, marth)
	assert.Equal(t, 40, fox)

	special, err := d.IsSpecialMove(gamestate.CharacterFox, gamestate.ActionNeutralSpecial)
	require.NoError(t, err)
	assert.True(t, special)

	attack, err := d.IsAttack(gamestate.CharacterFox, gamestate.ActionNeutralSpecial)
	require.NoError(t, err)
	assert.False(t, attack, "fox neutral special has no hitbox")
}

func TestData_UnknownLookupsFailLoudly(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	_, err = d.FrameCount(gamestate.CharacterFox, gamestate.Action(0x3ff))
	assert.ErrorIs(t, err, ErrUnknownFrameState)

	_, err = d.AttackPhase("PICHU", gamestate.ActionNair, 1)
	assert.ErrorIs(t, err, ErrUnknownFrameState)

	_, err = d.MaxJumps("PICHU")
	assert.ErrorIs(t, err, ErrUnknownFrameState)
}

func TestLoad_RejectsIncompleteTable(t *testing.T) {
	const doc = `
dead_actions: [DEAD_DOWN]
common:
  STANDING: {frames: 1}
characters:
  FOX:
    max_jumps: 2
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOX: no frame data for NAIR")
}

func TestLoad_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{
			name: "unknown action name",
			doc:  "dead_actions: [DEAD_SIDEWAYS]\ncharacters: {}\n",
			msg:  `unknown action "DEAD_SIDEWAYS"`,
		},
		{
			name: "unknown character",
			doc:  "dead_actions: [DEAD_DOWN]\ncharacters:\n  PICHU: {max_jumps: 2}\n",
			msg:  `unknown character "PICHU"`,
		},
		{
			name: "hitbox past animation",
			doc:  "dead_actions: [DEAD_DOWN]\ncommon:\n  NAIR: {frames: 10, hitbox: [4, 31]}\ncharacters: {}\n",
			msg:  "hitbox [4, 31] outside 1..10",
		},
		{
			name: "zero jumps",
			doc:  "dead_actions: [DEAD_DOWN]\ncharacters:\n  FOX: {max_jumps: 0}\n",
			msg:  "max_jumps must be positive",
		},
		{
			name: "unknown field",
			doc:  "dead_actions: [DEAD_DOWN]\nstages: []\n",
			msg:  "field stages not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}
