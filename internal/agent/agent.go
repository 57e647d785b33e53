// Package agent runs the per-frame control loop: classify deaths, shape the
// reward, feed the learner, flush metrics, pick and apply the next action.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/controller"
	"github.com/cartridge/fighter/internal/dispatch"
	"github.com/cartridge/fighter/internal/episode"
	"github.com/cartridge/fighter/internal/feed"
	"github.com/cartridge/fighter/internal/framedata"
	"github.com/cartridge/fighter/internal/gamestate"
	"github.com/cartridge/fighter/internal/learner"
	"github.com/cartridge/fighter/internal/metrics"
	"github.com/cartridge/fighter/internal/observation"
	"github.com/cartridge/fighter/internal/reward"
)

// ButtonPenalty is subtracted from the shaped reward when the move chosen on
// the previous tick pressed a button.
const ButtonPenalty = 0.01

// Config identifies one agent and selects its learner.
type Config struct {
	ID         string
	Seat       gamestate.Seat
	Algorithm  string
	TrainEvery int
	FlushEvery int
	Seed       int64
	Capacity   int
	BatchSize  int

	// PublishTimeout bounds each metrics publish; zero uses the default.
	PublishTimeout time.Duration
}

// Heartbeat is told about every processed snapshot.
type Heartbeat interface {
	Beat(agentID string)
}

// Deps are the collaborators an agent drives.
type Deps struct {
	Frames   framedata.Table
	Stages   reward.Boundaries
	Actuator controller.Actuator
	Moves    controller.Moves
	Sink     metrics.Sink
	// Heartbeat may be nil.
	Heartbeat Heartbeat
	// NewDispatcher overrides learner construction; nil resolves
	// Config.Algorithm through the learner registry.
	NewDispatcher func(learner.Options) (*dispatch.Dispatcher, error)
	Logger        zerolog.Logger
}

// Status is a point-in-time view of the loop for status surfaces.
type Status struct {
	ID        string         `json:"id"`
	Seat      gamestate.Seat `json:"seat"`
	Algorithm string         `json:"algorithm"`
	Family    string         `json:"family"`
	Tick      uint64         `json:"tick"`
	Frame     int64          `json:"frame"`
	Action    string         `json:"action"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Agent is one control loop. RunFrame and Run must be called from a single
// goroutine; Status and LatestMetrics are safe to call concurrently.
type Agent struct {
	id        string
	seat      gamestate.Seat
	moves     controller.Moves
	encoder   *observation.Encoder
	tracker   *episode.Tracker
	shaper    *reward.Shaper
	learner   *dispatch.Dispatcher
	metrics   *metrics.Aggregator
	actuator  controller.Actuator
	heartbeat Heartbeat
	logger    zerolog.Logger

	stats  *episode.Stats
	prev   gamestate.Snapshot
	action int
	tick   uint64

	mu     sync.RWMutex
	status Status
}

// New builds an agent around the first snapshot of the match. The length of
// its observation fixes the learner's input dimension.
func New(cfg Config, deps Deps, first gamestate.Snapshot) (*Agent, error) {
	if err := cfg.Seat.Validate(); err != nil {
		return nil, err
	}
	if err := deps.Moves.Validate(); err != nil {
		return nil, err
	}
	if deps.Frames == nil || deps.Stages == nil || deps.Actuator == nil {
		return nil, fmt.Errorf("agent %s: frame data, stage geometry and actuator are required", cfg.ID)
	}
	flushEvery := cfg.FlushEvery
	if flushEvery == 0 {
		flushEvery = metrics.DefaultFlushEvery
	}

	logger := deps.Logger.With().Str("agent_id", cfg.ID).Logger()
	encoder := observation.NewEncoder(deps.Frames, cfg.Seat)
	obs, err := encoder.Encode(first)
	if err != nil {
		return nil, fmt.Errorf("encode first snapshot: %w", err)
	}

	opts := learner.Options{
		InputDim:   len(obs),
		NumActions: len(deps.Moves),
		Seed:       cfg.Seed,
		Capacity:   cfg.Capacity,
		BatchSize:  cfg.BatchSize,
	}
	var d *dispatch.Dispatcher
	if deps.NewDispatcher != nil {
		d, err = deps.NewDispatcher(opts)
	} else {
		d, err = dispatch.New(dispatch.Config{Algorithm: cfg.Algorithm, TrainEvery: cfg.TrainEvery, Options: opts})
	}
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.ID, err)
	}

	agg, err := metrics.NewAggregator(metrics.Config{AgentID: cfg.ID, FlushEvery: flushEvery, PublishTimeout: cfg.PublishTimeout}, deps.Sink, logger)
	if err != nil {
		return nil, err
	}

	stats := episode.NewStats()
	a := &Agent{
		id:        cfg.ID,
		seat:      cfg.Seat,
		moves:     deps.Moves,
		encoder:   encoder,
		tracker:   episode.NewTracker(deps.Frames, cfg.Seat, stats, logger),
		shaper:    reward.NewShaper(deps.Frames, deps.Stages, cfg.Seat),
		learner:   d,
		metrics:   agg,
		actuator:  deps.Actuator,
		heartbeat: deps.Heartbeat,
		logger:    logger.With().Str("component", "agent").Logger(),
		stats:     stats,
		prev:      first,
		status: Status{
			ID:        cfg.ID,
			Seat:      cfg.Seat,
			Algorithm: d.Algorithm(),
			Family:    d.Family().String(),
			Frame:     first.Frame,
			Action:    deps.Moves[0].Name,
		},
	}

	a.logger.Info().
		Uint8("self", uint8(cfg.Seat.Self)).
		Uint8("opponent", uint8(cfg.Seat.Opponent)).
		Str("algorithm", d.Algorithm()).
		Str("family", d.Family().String()).
		Int("train_every", d.TrainEvery()).
		Int("input_dim", opts.InputDim).
		Int("num_actions", opts.NumActions).
		Msg("Agent initialized")

	return a, nil
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Stats exposes the rolling statistics. Only safe to read from the loop's
// goroutine or after Run returns.
func (a *Agent) Stats() *episode.Stats { return a.stats }

// Tick returns the number of processed live ticks. Same rules as Stats.
func (a *Agent) Tick() uint64 { return a.tick }

// RunFrame processes one snapshot.
func (a *Agent) RunFrame(ctx context.Context, snap gamestate.Snapshot) error {
	if a.heartbeat != nil {
		a.heartbeat.Beat(a.id)
	}

	outcome, err := a.tracker.Update(a.prev, snap)
	if err != nil {
		return err
	}

	if outcome.AlreadyDead {
		if err := a.actuator.ReleaseAll(ctx); err != nil {
			return fmt.Errorf("release inputs: %w", err)
		}
		a.prev = snap
		a.publishStatus(snap.Frame)
		return nil
	}

	a.tick++
	r, err := a.shaper.Reward(a.prev, snap)
	if err != nil {
		return err
	}
	if a.moves[a.action].PressesButton() {
		r -= ButtonPenalty
	}
	a.stats.Rewards.Push(r)

	prevObs, err := a.encoder.Encode(a.prev)
	if err != nil {
		return err
	}
	obs, err := a.encoder.Encode(snap)
	if err != nil {
		return err
	}

	// The transition is complete; a stop request now drops it whole.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.learner.Dispatch(dispatch.Transition{
		Observation:     prevObs,
		Action:          a.action,
		Reward:          r,
		NextObservation: obs,
		Died:            outcome.Died,
	}); err != nil {
		return err
	}

	trained, err := a.learner.MaybeTrain(a.tick)
	if err != nil {
		return err
	}
	if trained {
		a.logger.Debug().Uint64("tick", a.tick).Msg("Trained")
	}

	if a.metrics.Due(a.tick) {
		a.metrics.Flush(ctx, a.tick, a.stats, a.learner.Log())
	}

	action, err := a.learner.Predict(obs)
	if err != nil {
		return err
	}
	a.stats.Actions.Push(action)

	if err := a.actuator.Apply(ctx, action); err != nil {
		return fmt.Errorf("apply action %d: %w", action, err)
	}
	a.action = action
	a.prev = snap
	a.publishStatus(snap.Frame)
	return nil
}

// Run pulls snapshots from source until it is exhausted or ctx ends. A clean
// end of the source returns nil; everything else is returned unchanged.
func (a *Agent) Run(ctx context.Context, source feed.Source) error {
	a.logger.Info().Msg("Starting control loop")
	for {
		snap, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			a.logger.Info().Uint64("tick", a.tick).Msg("Snapshot source exhausted")
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				a.logger.Info().Uint64("tick", a.tick).Msg("Context cancelled, stopping agent")
				return ctxErr
			}
			return fmt.Errorf("next snapshot: %w", err)
		}
		if err := a.RunFrame(ctx, snap); err != nil {
			if ctx.Err() == nil {
				a.logger.Error().Err(err).Int64("frame", snap.Frame).Uint64("tick", a.tick).Msg("Control loop failed")
			}
			return err
		}
	}
}

// Close releases held inputs and the learner.
func (a *Agent) Close(ctx context.Context) error {
	return errors.Join(a.actuator.ReleaseAll(ctx), a.learner.Close())
}

// Status returns the latest loop status.
func (a *Agent) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// LatestMetrics returns the most recently flushed record.
func (a *Agent) LatestMetrics() (metrics.Record, bool) {
	return a.metrics.Latest()
}

func (a *Agent) publishStatus(frame int64) {
	a.mu.Lock()
	a.status.Tick = a.tick
	a.status.Frame = frame
	a.status.Action = a.moves[a.action].Name
	a.status.UpdatedAt = time.Now().UTC()
	a.mu.Unlock()
}
