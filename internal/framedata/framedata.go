// Package framedata provides the static per-character lookup tables the
// observation encoder and episode tracker consult: dead and special-fall action
// sets, jump allowances, attack windows and animation lengths.
package framedata

import (
	"errors"
	"fmt"

	"github.com/cartridge/fighter/internal/gamestate"
)

// ErrUnknownFrameState is returned when a character/action combination has no
// frame data. Callers must not substitute a default for it.
var ErrUnknownFrameState = errors.New("unknown frame state")

// AttackPhase is the stage of an attack animation at a given frame.
type AttackPhase int

const (
	PhaseNone AttackPhase = iota
	PhaseWindup
	PhaseActive
	PhaseCooldown
)

func (p AttackPhase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseWindup:
		return "windup"
	case PhaseActive:
		return "active"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Table is the lookup contract the core depends on.
type Table interface {
	IsDead(a gamestate.Action) bool
	IsSpecialFall(a gamestate.Action) bool
	MaxJumps(c gamestate.Character) (int, error)
	AttackPhase(c gamestate.Character, a gamestate.Action, frame int) (AttackPhase, error)
	FrameCount(c gamestate.Character, a gamestate.Action) (int, error)
	IsAttack(c gamestate.Character, a gamestate.Action) (bool, error)
	IsSpecialMove(c gamestate.Character, a gamestate.Action) (bool, error)
}

type entry struct {
	frames      int
	firstActive int
	lastActive  int
	attack      bool
	special     bool
}

type character struct {
	maxJumps int
	actions  map[gamestate.Action]entry
}

// Data is a Table whose contents were verified complete when loaded.
type Data struct {
	dead        map[gamestate.Action]bool
	specialFall map[gamestate.Action]bool
	characters  map[gamestate.Character]*character
}

var _ Table = (*Data)(nil)

func (d *Data) IsDead(a gamestate.Action) bool { return d.dead[a] }

func (d *Data) IsSpecialFall(a gamestate.Action) bool { return d.specialFall[a] }

// Characters lists the characters the table covers.
func (d *Data) Characters() []gamestate.Character {
	out := make([]gamestate.Character, 0, len(d.characters))
	for c := range d.characters {
		out = append(out, c)
	}
	return out
}

func (d *Data) MaxJumps(c gamestate.Character) (int, error) {
	ch, ok := d.characters[c]
	if !ok {
		return 0, fmt.Errorf("%w: character %q", ErrUnknownFrameState, c)
	}
	return ch.maxJumps, nil
}

func (d *Data) lookup(c gamestate.Character, a gamestate.Action) (entry, error) {
	ch, ok := d.characters[c]
	if !ok {
		return entry{}, fmt.Errorf("%w: character %q", ErrUnknownFrameState, c)
	}
	e, ok := ch.actions[a]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s action %s", ErrUnknownFrameState, c, a)
	}
	return e, nil
}

// AttackPhase classifies frame relative to the action's hitbox window.
func (d *Data) AttackPhase(c gamestate.Character, a gamestate.Action, frame int) (AttackPhase, error) {
	e, err := d.lookup(c, a)
	if err != nil {
		return PhaseNone, err
	}
	switch {
	case !e.attack:
		return PhaseNone, nil
	case frame < e.firstActive:
		return PhaseWindup, nil
	case frame > e.lastActive:
		return PhaseCooldown, nil
	default:
		return PhaseActive, nil
	}
}

func (d *Data) FrameCount(c gamestate.Character, a gamestate.Action) (int, error) {
	e, err := d.lookup(c, a)
	if err != nil {
		return 0, err
	}
	return e.frames, nil
}

func (d *Data) IsAttack(c gamestate.Character, a gamestate.Action) (bool, error) {
	e, err := d.lookup(c, a)
	if err != nil {
		return false, err
	}
	return e.attack, nil
}

func (d *Data) IsSpecialMove(c gamestate.Character, a gamestate.Action) (bool, error) {
	e, err := d.lookup(c, a)
	if err != nil {
		return false, err
	}
	return e.special, nil
}
