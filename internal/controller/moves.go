// Package controller maps discrete action indices to pad inputs.
package controller

import "fmt"

// Button is a digital pad button.
type Button string

const (
	ButtonNone Button = ""
	ButtonA    Button = "A"
	ButtonB    Button = "B"
	ButtonX    Button = "X"
	ButtonZ    Button = "Z"
	ButtonL    Button = "L"
)

// Stick is an analog stick.
type Stick string

const (
	StickMain Stick = "MAIN"
	StickC    Stick = "C"
)

// Stick coordinates are in [0, 1] with the neutral position at the centre.
const (
	StickMin     = 0.0
	StickNeutral = 0.5
	StickMax     = 1.0
)

// Move is one entry of the action table: an optional button press plus a main
// stick position.
type Move struct {
	Name   string  `json:"name" yaml:"name"`
	Button Button  `json:"button,omitempty" yaml:"button,omitempty"`
	StickX float64 `json:"stick_x" yaml:"stick_x"`
	StickY float64 `json:"stick_y" yaml:"stick_y"`
}

// PressesButton reports whether the move presses a button.
func (m Move) PressesButton() bool {
	return m.Button != ButtonNone
}

func (m Move) validate() error {
	if m.Name == "" {
		return fmt.Errorf("move has no name")
	}
	for _, v := range []float64{m.StickX, m.StickY} {
		if v < StickMin || v > StickMax {
			return fmt.Errorf("move %s: stick coordinate %v outside [%v, %v]", m.Name, v, StickMin, StickMax)
		}
	}
	switch m.Button {
	case ButtonNone, ButtonA, ButtonB, ButtonX, ButtonZ, ButtonL:
	default:
		return fmt.Errorf("move %s: unknown button %q", m.Name, m.Button)
	}
	return nil
}

// Moves is the ordered action table; an action index selects an entry.
type Moves []Move

// Validate checks every entry.
func (ms Moves) Validate() error {
	if len(ms) == 0 {
		return fmt.Errorf("move table is empty")
	}
	seen := make(map[string]bool, len(ms))
	for _, m := range ms {
		if err := m.validate(); err != nil {
			return err
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate move %s", m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// DefaultMoves returns the standard action table.
func DefaultMoves() Moves {
	stick := func(name string, x, y float64) Move {
		return Move{Name: name, StickX: x, StickY: y}
	}
	press := func(name string, b Button, x, y float64) Move {
		return Move{Name: name, Button: b, StickX: x, StickY: y}
	}
	const (
		lo  = StickMin
		mid = StickNeutral
		hi  = StickMax
	)
	return Moves{
		stick("neutral", mid, mid),
		stick("left", lo, mid),
		stick("right", hi, mid),
		stick("up", mid, hi),
		stick("down", mid, lo),
		stick("up_left", lo, hi),
		stick("up_right", hi, hi),
		stick("down_left", lo, lo),
		stick("down_right", hi, lo),
		press("jab", ButtonA, mid, mid),
		press("forward_tilt_left", ButtonA, lo, mid),
		press("forward_tilt_right", ButtonA, hi, mid),
		press("up_tilt", ButtonA, mid, hi),
		press("down_tilt", ButtonA, mid, lo),
		press("neutral_special", ButtonB, mid, mid),
		press("side_special_left", ButtonB, lo, mid),
		press("side_special_right", ButtonB, hi, mid),
		press("up_special", ButtonB, mid, hi),
		press("down_special", ButtonB, mid, lo),
		press("jump", ButtonX, mid, mid),
		press("grab", ButtonZ, mid, mid),
		press("shield", ButtonL, mid, mid),
		press("roll_left", ButtonL, lo, mid),
		press("roll_right", ButtonL, hi, mid),
		press("spot_dodge", ButtonL, mid, lo),
	}
}
