// Package feed provides snapshot sources and pad transports for the control
// loop: a live websocket bridge, JSON-lines replays and a fan-out for
// head-to-head runs.
package feed

import (
	"context"

	"github.com/cartridge/fighter/internal/controller"
	"github.com/cartridge/fighter/internal/gamestate"
)

// Source yields snapshots in frame order. io.EOF ends a run cleanly.
type Source interface {
	Next(ctx context.Context) (gamestate.Snapshot, error)
}

// Op is a pad command verb.
type Op string

const (
	OpPress      Op = "press"
	OpRelease    Op = "release"
	OpTilt       Op = "tilt"
	OpReleaseAll Op = "release_all"
)

// Command is one pad input sent to the match bridge.
type Command struct {
	Port   gamestate.Port    `json:"port"`
	Op     Op                `json:"op"`
	Button controller.Button `json:"button,omitempty"`
	Stick  controller.Stick  `json:"stick,omitempty"`
	X      float64           `json:"x"`
	Y      float64           `json:"y"`
}

// commandSender is implemented by transports that can deliver commands.
type commandSender interface {
	send(ctx context.Context, cmd Command) error
}

// portPad adapts a commandSender to controller.Pad for one port.
type portPad struct {
	port   gamestate.Port
	sender commandSender
}

var _ controller.Pad = portPad{}

func (p portPad) Press(ctx context.Context, b controller.Button) error {
	return p.sender.send(ctx, Command{Port: p.port, Op: OpPress, Button: b})
}

func (p portPad) Release(ctx context.Context, b controller.Button) error {
	return p.sender.send(ctx, Command{Port: p.port, Op: OpRelease, Button: b})
}

func (p portPad) Tilt(ctx context.Context, s controller.Stick, x, y float64) error {
	return p.sender.send(ctx, Command{Port: p.port, Op: OpTilt, Stick: s, X: x, Y: y})
}

func (p portPad) ReleaseAll(ctx context.Context) error {
	return p.sender.send(ctx, Command{Port: p.port, Op: OpReleaseAll})
}
