// Package observation turns a snapshot into the fixed-length feature vector the
// learner consumes.
package observation

import (
	"fmt"
	"math"

	"github.com/cartridge/fighter/internal/framedata"
	"github.com/cartridge/fighter/internal/gamestate"
)

const (
	// FeaturesPerPlayer is the width of one player's block.
	FeaturesPerPlayer = 20
	// Dim is the observation length: the self block followed by the opponent block.
	Dim = 2 * FeaturesPerPlayer

	positionXScale = 50.0
	positionYScale = 20.0
	percentScale   = 100.0
	shieldMax      = 60.0
	speedScale     = 10.0
	frameScale     = 20.0
)

// Encoder is stateless; Encode is a pure function of the snapshot and the table.
type Encoder struct {
	table framedata.Table
	seat  gamestate.Seat
}

// NewEncoder returns an encoder for the given seat.
func NewEncoder(table framedata.Table, seat gamestate.Seat) *Encoder {
	return &Encoder{table: table, seat: seat}
}

// Encode returns a Dim-length vector. Missing ports and frame data errors are
// returned unchanged; nothing is zero-filled.
func (e *Encoder) Encode(s gamestate.Snapshot) ([]float64, error) {
	self, opponent, err := s.Seat(e.seat)
	if err != nil {
		return nil, err
	}

	out := make([]float64, Dim)
	if err := e.encodePlayer(self, out[:FeaturesPerPlayer]); err != nil {
		return nil, fmt.Errorf("encode port %d: %w", e.seat.Self, err)
	}
	if err := e.encodePlayer(opponent, out[FeaturesPerPlayer:]); err != nil {
		return nil, fmt.Errorf("encode port %d: %w", e.seat.Opponent, err)
	}
	return out, nil
}

func (e *Encoder) encodePlayer(p gamestate.PlayerState, out []float64) error {
	c, a := p.Character, p.Action

	attacking, err := e.table.IsAttack(c, a)
	if err != nil {
		return err
	}
	special, err := e.table.IsSpecialMove(c, a)
	if err != nil {
		return err
	}
	phase, err := e.table.AttackPhase(c, a, p.ActionFrame)
	if err != nil {
		return err
	}
	frames, err := e.table.FrameCount(c, a)
	if err != nil {
		return err
	}
	maxJumps, err := e.table.MaxJumps(c)
	if err != nil {
		return err
	}

	out[0] = sign(e.table.IsSpecialFall(a))
	out[1] = sign(e.table.IsDead(a))
	out[2] = (p.SpeedXAttack + p.SpeedAirXSelf + p.SpeedGroundXSelf) / speedScale
	out[3] = (p.SpeedYSelf + p.SpeedYAttack) / speedScale
	out[4] = p.Position.X / positionXScale
	out[5] = p.Position.Y / positionYScale
	out[6] = math.Tanh(p.Percent / percentScale)
	out[7] = p.Shield / shieldMax
	out[8] = sign(p.OnGround)
	out[9] = sign(attacking)
	out[10] = sign(p.Facing == gamestate.FacingRight)
	out[11] = sign(p.HitlagLeft > 0 || p.HitstunLeft > 0)
	out[12] = sign(p.Invulnerable)
	out[13] = float64(p.JumpsLeft) / float64(maxJumps)
	out[14] = sign(phase == framedata.PhaseWindup)
	out[15] = sign(phase == framedata.PhaseActive)
	out[16] = sign(phase == framedata.PhaseCooldown)
	out[17] = sign(special)
	out[18] = float64(frames) / frameScale
	out[19] = float64(p.ActionFrame) / frameScale
	return nil
}

func sign(b bool) float64 {
	if b {
		return 1
	}
	return -1
}
