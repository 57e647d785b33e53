package controller

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Pad is the low-level input device for one controller port.
type Pad interface {
	Press(ctx context.Context, b Button) error
	Release(ctx context.Context, b Button) error
	Tilt(ctx context.Context, s Stick, x, y float64) error
	ReleaseAll(ctx context.Context) error
}

// Actuator turns an action index into held inputs.
type Actuator interface {
	Apply(ctx context.Context, action int) error
	ReleaseAll(ctx context.Context) error
}

// Controller drives a Pad from a move table. It is owned by one control loop.
type Controller struct {
	pad    Pad
	moves  Moves
	held   Button
	logger zerolog.Logger
}

var _ Actuator = (*Controller)(nil)

// New validates moves and returns a controller for pad.
func New(pad Pad, moves Moves, logger zerolog.Logger) (*Controller, error) {
	if err := moves.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		pad:    pad,
		moves:  moves,
		logger: logger.With().Str("component", "controller").Logger(),
	}, nil
}

// Moves returns the action table.
func (c *Controller) Moves() Moves { return c.moves }

// Move returns the table entry for action.
func (c *Controller) Move(action int) (Move, error) {
	if action < 0 || action >= len(c.moves) {
		return Move{}, fmt.Errorf("action %d out of range [0, %d)", action, len(c.moves))
	}
	return c.moves[action], nil
}

// Apply releases whatever the previous move held, tilts the main stick and
// presses the move's button.
func (c *Controller) Apply(ctx context.Context, action int) error {
	m, err := c.Move(action)
	if err != nil {
		return err
	}
	if c.held != ButtonNone {
		if err := c.pad.Release(ctx, c.held); err != nil {
			return fmt.Errorf("release %s: %w", c.held, err)
		}
		c.held = ButtonNone
	}
	if err := c.pad.Tilt(ctx, StickMain, m.StickX, m.StickY); err != nil {
		return fmt.Errorf("tilt main stick: %w", err)
	}
	if m.PressesButton() {
		if err := c.pad.Press(ctx, m.Button); err != nil {
			return fmt.Errorf("press %s: %w", m.Button, err)
		}
		c.held = m.Button
	}
	c.logger.Trace().Int("action", action).Str("move", m.Name).Msg("Applied move")
	return nil
}

// ReleaseAll returns the pad to neutral.
func (c *Controller) ReleaseAll(ctx context.Context) error {
	c.held = ButtonNone
	if err := c.pad.ReleaseAll(ctx); err != nil {
		return fmt.Errorf("release all: %w", err)
	}
	return nil
}
