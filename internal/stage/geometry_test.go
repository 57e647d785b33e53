package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/fighter/internal/gamestate"
)

func TestGeometry_OffStage(t *testing.T) {
	g := Default()

	tests := []struct {
		name string
		pos  gamestate.Position
		want bool
	}{
		{"center", gamestate.Position{X: 0, Y: 0}, false},
		{"on platform", gamestate.Position{X: 30, Y: 27}, false},
		{"right of ledge", gamestate.Position{X: 72, Y: 5}, true},
		{"left of ledge", gamestate.Position{X: -72, Y: 5}, true},
		{"below floor", gamestate.Position{X: 10, Y: -0.5}, true},
		{"exactly at ledge", gamestate.Position{X: 71.3078, Y: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, err := g.OffStage(gamestate.StageBattlefield, tt.pos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, off)
		})
	}
}

func TestGeometry_UnknownStage(t *testing.T) {
	g := New(map[gamestate.Stage]float64{gamestate.StageBattlefield: 70})

	_, err := g.EdgeX(gamestate.StageDreamland)
	assert.ErrorIs(t, err, ErrUnknownStage)

	_, err = g.OffStage("TEMPLE", gamestate.Position{})
	assert.ErrorIs(t, err, ErrUnknownStage)
}
