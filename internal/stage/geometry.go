// Package stage holds the static stage geometry used for boundary checks.
package stage

import (
	"errors"
	"fmt"

	"github.com/cartridge/fighter/internal/gamestate"
)

// ErrUnknownStage is returned for a stage with no geometry entry.
var ErrUnknownStage = errors.New("unknown stage")

// Geometry maps each stage to the x coordinate of its ledge.
type Geometry struct {
	edges map[gamestate.Stage]float64
}

// Default returns the geometry of the tournament-legal stages.
func Default() *Geometry {
	return New(map[gamestate.Stage]float64{
		gamestate.StageBattlefield:      71.3078,
		gamestate.StageFinalDestination: 88.4735,
		gamestate.StageDreamland:        80.1823,
		gamestate.StageFountainOfDreams: 66.2503,
		gamestate.StagePokemonStadium:   87.75,
		gamestate.StageYoshisStory:      56.0,
	})
}

// New builds a Geometry from an explicit edge table.
func New(edges map[gamestate.Stage]float64) *Geometry {
	g := &Geometry{edges: make(map[gamestate.Stage]float64, len(edges))}
	for s, x := range edges {
		g.edges[s] = x
	}
	return g
}

// EdgeX returns the ledge x coordinate of s.
func (g *Geometry) EdgeX(s gamestate.Stage) (float64, error) {
	x, ok := g.edges[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStage, s)
	}
	return x, nil
}

// OffStage reports whether pos lies past either ledge or below the floor.
func (g *Geometry) OffStage(s gamestate.Stage, pos gamestate.Position) (bool, error) {
	edge, err := g.EdgeX(s)
	if err != nil {
		return false, err
	}
	return pos.X > edge || pos.X < -edge || pos.Y < 0, nil
}
