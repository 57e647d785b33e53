package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePad struct {
	calls []string
	err   error
}

func (p *fakePad) Press(_ context.Context, b Button) error {
	p.calls = append(p.calls, "press "+string(b))
	return p.err
}

func (p *fakePad) Release(_ context.Context, b Button) error {
	p.calls = append(p.calls, "release "+string(b))
	return p.err
}

func (p *fakePad) Tilt(_ context.Context, s Stick, x, y float64) error {
	p.calls = append(p.calls, fmt.Sprintf("tilt %s %.1f %.1f", s, x, y))
	return p.err
}

func (p *fakePad) ReleaseAll(context.Context) error {
	p.calls = append(p.calls, "release all")
	return p.err
}

func TestDefaultMoves(t *testing.T) {
	moves := DefaultMoves()
	require.NoError(t, moves.Validate())
	assert.Equal(t, "neutral", moves[0].Name)
	assert.False(t, moves[0].PressesButton())

	buttons := 0
	for _, m := range moves {
		if m.PressesButton() {
			buttons++
		}
	}
	assert.Equal(t, 16, buttons)
}

func TestMoves_Validate(t *testing.T) {
	tests := []struct {
		name  string
		moves Moves
	}{
		{name: "empty", moves: Moves{}},
		{name: "unnamed", moves: Moves{{StickX: 0.5, StickY: 0.5}}},
		{name: "stick out of range", moves: Moves{{Name: "x", StickX: 1.5, StickY: 0.5}}},
		{name: "unknown button", moves: Moves{{Name: "x", Button: "START", StickX: 0.5, StickY: 0.5}}},
		{name: "duplicate", moves: Moves{{Name: "x", StickX: 0.5, StickY: 0.5}, {Name: "x", StickX: 0, StickY: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.moves.Validate())
		})
	}
}

func TestController_Apply(t *testing.T) {
	pad := &fakePad{}
	moves := Moves{
		{Name: "neutral", StickX: 0.5, StickY: 0.5},
		{Name: "jab", Button: ButtonA, StickX: 0.5, StickY: 0.5},
		{Name: "up_special", Button: ButtonB, StickX: 0.5, StickY: 1},
	}
	c, err := New(pad, moves, zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Apply(ctx, 1))
	require.NoError(t, c.Apply(ctx, 2))
	require.NoError(t, c.Apply(ctx, 0))
	require.NoError(t, c.ReleaseAll(ctx))

	assert.Equal(t, []string{
		"tilt MAIN 0.5 0.5",
		"press A",
		"release A",
		"tilt MAIN 0.5 1.0",
		"press B",
		"release B",
		"tilt MAIN 0.5 0.5",
		"release all",
	}, pad.calls)
}

func TestController_Errors(t *testing.T) {
	pad := &fakePad{}
	c, err := New(pad, DefaultMoves(), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	assert.Error(t, c.Apply(ctx, -1))
	assert.Error(t, c.Apply(ctx, len(DefaultMoves())))
	assert.Empty(t, pad.calls)

	pad.err = errors.New("pipe closed")
	err = c.Apply(ctx, 0)
	assert.ErrorIs(t, err, pad.err)

	_, err = New(pad, Moves{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLoadMoves(t *testing.T) {
	ms, err := LoadMoves(strings.NewReader(`
moves:
  - {name: neutral, stick_x: 0.5, stick_y: 0.5}
  - {name: jab, button: A, stick_x: 0.5, stick_y: 0.5}
  - {name: left, stick_x: 0, stick_y: 0.5}
`))
	require.NoError(t, err)
	require.Len(t, ms, 3)
	assert.Equal(t, ButtonA, ms[1].Button)
	assert.False(t, ms[2].PressesButton())

	_, err = LoadMoves(strings.NewReader("moves:\n  - {name: jab, button: START, stick_x: 0.5, stick_y: 0.5}\n"))
	assert.ErrorContains(t, err, "unknown button")

	_, err = LoadMoves(strings.NewReader("moves:\n  - {name: jab, trigger: 1}\n"))
	assert.Error(t, err)

	_, err = LoadMovesFile("does-not-exist.yaml")
	assert.Error(t, err)
}
