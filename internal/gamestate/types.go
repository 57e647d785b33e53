// Package gamestate defines the per-frame snapshot a match feed produces.
package gamestate

import (
	"errors"
	"fmt"
)

// ErrMissingPlayerSlot is returned when a snapshot lacks a tracked port.
var ErrMissingPlayerSlot = errors.New("missing player slot")

// Port identifies a controller port (1-4) in the match.
type Port uint8

// Facing is the horizontal direction a character faces.
type Facing int8

const (
	FacingLeft  Facing = -1
	FacingRight Facing = 1
)

// Position is a point in stage coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlayerState is the read-only state of one character for one frame.
type PlayerState struct {
	Character    Character `json:"character"`
	Action       Action    `json:"action"`
	ActionFrame  int       `json:"action_frame"`
	Position     Position  `json:"position"`
	Percent      float64   `json:"percent"`
	Shield       float64   `json:"shield_strength"`
	Facing       Facing    `json:"facing"`
	OnGround     bool      `json:"on_ground"`
	HitlagLeft   int       `json:"hitlag_left"`
	HitstunLeft  int       `json:"hitstun_left"`
	Invulnerable bool      `json:"invulnerable"`
	JumpsLeft    int       `json:"jumps_left"`

	SpeedAirXSelf    float64 `json:"speed_air_x_self"`
	SpeedGroundXSelf float64 `json:"speed_ground_x_self"`
	SpeedXAttack     float64 `json:"speed_x_attack"`
	SpeedYSelf       float64 `json:"speed_y_self"`
	SpeedYAttack     float64 `json:"speed_y_attack"`
}

// Snapshot is one frame's complete read of player and stage state.
type Snapshot struct {
	Frame   int64                `json:"frame"`
	Stage   Stage                `json:"stage"`
	Players map[Port]PlayerState `json:"players"`
}

// Seat names the two ports an agent tracks: its own and its opponent's.
type Seat struct {
	Self     Port `json:"self" mapstructure:"self"`
	Opponent Port `json:"opponent" mapstructure:"opponent"`
}

// Swap returns the seat seen from the opponent's side.
func (s Seat) Swap() Seat {
	return Seat{Self: s.Opponent, Opponent: s.Self}
}

// Validate checks that the seat names two distinct ports.
func (s Seat) Validate() error {
	if s.Self == 0 || s.Opponent == 0 {
		return fmt.Errorf("seat ports must be set (self=%d opponent=%d)", s.Self, s.Opponent)
	}
	if s.Self == s.Opponent {
		return fmt.Errorf("seat ports must differ (both %d)", s.Self)
	}
	return nil
}

// Player returns the state for port or ErrMissingPlayerSlot.
func (s Snapshot) Player(port Port) (PlayerState, error) {
	p, ok := s.Players[port]
	if !ok {
		return PlayerState{}, fmt.Errorf("port %d at frame %d: %w", port, s.Frame, ErrMissingPlayerSlot)
	}
	return p, nil
}

// Seat returns the self and opponent states for seat.
func (s Snapshot) Seat(seat Seat) (self, opponent PlayerState, err error) {
	if self, err = s.Player(seat.Self); err != nil {
		return PlayerState{}, PlayerState{}, err
	}
	if opponent, err = s.Player(seat.Opponent); err != nil {
		return PlayerState{}, PlayerState{}, err
	}
	return self, opponent, nil
}
