package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cartridge/fighter/internal/agent"
	"github.com/cartridge/fighter/internal/config"
	"github.com/cartridge/fighter/internal/controller"
	"github.com/cartridge/fighter/internal/feed"
	"github.com/cartridge/fighter/internal/framedata"
	"github.com/cartridge/fighter/internal/gamestate"
	"github.com/cartridge/fighter/internal/health"
	"github.com/cartridge/fighter/internal/metrics"
	"github.com/cartridge/fighter/internal/server"
	"github.com/cartridge/fighter/internal/stage"
)

const shutdownTimeout = 10 * time.Second

type tables struct {
	frames *framedata.Data
	moves  controller.Moves
}

func loadTables(cfg *config.Config) (tables, error) {
	var (
		t   tables
		err error
	)
	if cfg.FrameDataFile != "" {
		t.frames, err = framedata.LoadFile(cfg.FrameDataFile)
	} else {
		t.frames, err = framedata.Default()
	}
	if err != nil {
		return t, err
	}
	if cfg.MovesFile != "" {
		t.moves, err = controller.LoadMovesFile(cfg.MovesFile)
	} else {
		t.moves = controller.DefaultMoves()
	}
	return t, err
}

// snapshotSource is a feed.Source that can also drive pads.
type snapshotSource interface {
	feed.Source
	Pad(port gamestate.Port) controller.Pad
	Close() error
}

type recordedReplay struct {
	*feed.ReplayFile
	*feed.RecordingPad
}

func (r recordedReplay) Close() error { return r.ReplayFile.Close() }

func openSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (snapshotSource, error) {
	switch cfg.Source.Kind {
	case config.SourceReplay:
		rf, err := feed.OpenReplayFile(cfg.Source.ReplayPath)
		if err != nil {
			return nil, err
		}
		return recordedReplay{ReplayFile: rf, RecordingPad: feed.NewRecordingPad(logger)}, nil
	default:
		dctx, cancel := context.WithTimeout(ctx, cfg.Source.DialTimeout)
		defer cancel()
		ws, err := feed.DialWebSocket(dctx, cfg.Source.BridgeURL, logger)
		if err != nil {
			return nil, err
		}
		return ws, nil
	}
}

func openSinks(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (metrics.Sink, []io.Closer, error) {
	sinks := metrics.MultiSink{metrics.NewLogSink(logger)}
	var closers []io.Closer
	fail := func(err error) (metrics.Sink, []io.Closer, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, nil, err
	}

	if path := cfg.Telemetry.TextPath; path != "" {
		s, err := metrics.OpenTextSink(path)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}
	if url := cfg.Telemetry.NATSURL; url != "" {
		s, err := metrics.NewNATSSink(url, cfg.Telemetry.NATSSubject, logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}
	if dsn := cfg.Telemetry.SQLDSN; dsn != "" {
		s, err := metrics.OpenSQLSink(ctx, cfg.Telemetry.SQLDriver, dsn, logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
		closers = append(closers, s)
	}
	return sinks, closers, nil
}

func run(parent context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := loadTables(cfg)
	if err != nil {
		return err
	}

	sink, closers, err := openSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close metrics sink")
			}
		}
	}()

	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	first, err := src.Next(ctx)
	if err != nil {
		return fmt.Errorf("read first snapshot: %w", err)
	}

	grpcServer, healthServer := server.NewGRPC(logger)
	var monitor *health.Monitor
	if cfg.GRPCAddr != "" {
		monitor = health.NewMonitor(healthServer, cfg.Health, logger)
	}

	seats := []agent.Config{{
		ID:         cfg.Agent.ID,
		Seat:       cfg.Agent.Seat,
		Algorithm:  cfg.Agent.Algorithm,
		TrainEvery: cfg.Agent.TrainEvery,
		FlushEvery: cfg.Agent.FlushEvery,
		Seed:       cfg.Agent.Seed,
		Capacity:   cfg.Agent.Capacity,
		BatchSize:  cfg.Agent.BatchSize,

		PublishTimeout: cfg.Telemetry.PublishTimeout,
	}}
	if cfg.Agent.HeadToHead {
		mirror := seats[0]
		mirror.ID = cfg.Agent.OpponentID
		mirror.Seat = cfg.Agent.Seat.Swap()
		mirror.Seed++
		seats = append(seats, mirror)
	}

	geometry := stage.Default()
	agents := make([]*agent.Agent, 0, len(seats))
	for _, ac := range seats {
		ctrl, err := controller.New(src.Pad(ac.Seat.Self), t.moves, logger.With().Str("agent_id", ac.ID).Logger())
		if err != nil {
			return err
		}
		deps := agent.Deps{
			Frames:   t.frames,
			Stages:   geometry,
			Actuator: ctrl,
			Moves:    t.moves,
			Sink:     sink,
			Logger:   logger,
		}
		if monitor != nil {
			deps.Heartbeat = monitor
		}
		a, err := agent.New(ac, deps, first)
		if err != nil {
			return err
		}
		agents = append(agents, a)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, a := range agents {
			if err := a.Close(cctx); err != nil {
				logger.Warn().Err(err).Str("agent_id", a.ID()).Msg("Failed to close agent")
			}
		}
	}()

	sources := []feed.Source{src}
	var fanout *feed.Fanout
	if len(agents) > 1 {
		fanout, err = feed.NewFanout(src, len(agents), cfg.Source.FanoutBuffer)
		if err != nil {
			return err
		}
		sources = []feed.Source{fanout.Subscriber(0), fanout.Subscriber(1)}
	}

	var lis net.Listener
	if monitor != nil {
		lis, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
		}
		for _, a := range agents {
			monitor.Register(a.ID())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	// Control loops; the status surfaces stop once every loop has ended.
	g.Go(func() error {
		defer stopServing()
		loops, lctx := errgroup.WithContext(gctx)
		if fanout != nil {
			loops.Go(func() error { return fanout.Run(lctx) })
		}
		for i, a := range agents {
			a, source := a, sources[i]
			loops.Go(func() error {
				if monitor != nil {
					defer monitor.Stop(a.ID())
				}
				err := a.Run(lctx, source)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
		return loops.Wait()
	})

	if cfg.HTTPAddr != "" {
		views := make([]server.Agent, len(agents))
		for i, a := range agents {
			views[i] = a
		}
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.NewHTTP(views, logger).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
		}
		g.Go(func() error {
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP status server starting")
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("http server: %w", err)
			case <-serveCtx.Done():
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			}
		})
	}

	if monitor != nil {
		g.Go(func() error {
			logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC health server starting")
			if err := grpcServer.Serve(lis); err != nil {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-serveCtx.Done()
			grpcServer.GracefulStop()
			return nil
		})
		g.Go(func() error {
			monitor.Start(serveCtx)
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("Fighter stopped with error")
		return err
	}
	for _, a := range agents {
		s := a.Status()
		logger.Info().Str("agent_id", s.ID).Uint64("tick", s.Tick).Int64("frame", s.Frame).Msg("Agent stopped")
	}
	return nil
}
