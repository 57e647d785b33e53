package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cartridge/fighter/internal/config"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "fighter",
	Short: "Real-time learning agent for two-player fighting matches",
	Long: `Fighter reads one game snapshot per frame, shapes a reward from the
change between frames, feeds the transition to a learner and applies the
learner's next action to a virtual pad.

Snapshots come from a live match bridge over a websocket or from a recorded
JSON-lines replay.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the control loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, newLogger(cfg))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the configuration, frame data and move table, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		t, err := loadTables(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d characters, %d moves\n", len(t.frames.Characters()), len(t.moves))
		return nil
	},
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"agent-id":        "agent.id",
	"self-port":       "agent.seat.self",
	"opponent-port":   "agent.seat.opponent",
	"algorithm":       "agent.algorithm",
	"train-every":     "agent.train_every",
	"flush-every":     "agent.flush_every",
	"seed":            "agent.seed",
	"capacity":        "agent.capacity",
	"batch-size":      "agent.batch_size",
	"head-to-head":    "agent.head_to_head",
	"opponent-id":     "agent.opponent_id",
	"source":          "source.kind",
	"bridge-url":      "source.bridge_url",
	"replay":          "source.replay_path",
	"dial-timeout":    "source.dial_timeout",
	"fanout-buffer":   "source.fanout_buffer",
	"metrics-file":    "telemetry.text_path",
	"nats-url":        "telemetry.nats_url",
	"nats-subject":    "telemetry.nats_subject",
	"sql-driver":      "telemetry.sql_driver",
	"sql-dsn":         "telemetry.sql_dsn",
	"publish-timeout": "telemetry.publish_timeout",
	"check-interval":  "health.check_interval",
	"stale-after":     "health.stale_after",
	"http-addr":       "http_addr",
	"grpc-addr":       "grpc_addr",
	"framedata-file":  "framedata_file",
	"moves-file":      "moves_file",
	"log-level":       "log_level",
	"log-format":      "log_format",
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle: initConfig reads rootCmd's flags.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	d := config.Default()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")

	// Tables and logging apply to every command
	pf := rootCmd.PersistentFlags()
	pf.String("framedata-file", d.FrameDataFile, "Frame data YAML overriding the embedded table")
	pf.String("moves-file", d.MovesFile, "Move table YAML overriding the default action table")
	pf.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	pf.String("log-format", d.LogFormat, "Log format (json, console)")

	// Agent settings
	f := runCmd.Flags()
	f.String("agent-id", d.Agent.ID, "Unique agent identifier")
	f.Uint8("self-port", uint8(d.Agent.Seat.Self), "Controller port the agent plays")
	f.Uint8("opponent-port", uint8(d.Agent.Seat.Opponent), "Controller port of the opponent")
	f.String("algorithm", d.Agent.Algorithm, "Learning algorithm tag")
	f.Int("train-every", d.Agent.TrainEvery, "Ticks between training calls (0 for the algorithm default, -1 to disable)")
	f.Int("flush-every", d.Agent.FlushEvery, "Ticks between metrics flushes")
	f.Int64("seed", d.Agent.Seed, "Learner random seed")
	f.Int("capacity", d.Agent.Capacity, "Experience buffer capacity")
	f.Int("batch-size", d.Agent.BatchSize, "Training batch size")
	f.Bool("head-to-head", d.Agent.HeadToHead, "Run a second agent in the swapped seat")
	f.String("opponent-id", d.Agent.OpponentID, "Identifier of the second agent in head-to-head mode")

	// Snapshot source
	f.String("source", d.Source.Kind, "Snapshot source (websocket, replay)")
	f.String("bridge-url", d.Source.BridgeURL, "Match bridge websocket URL")
	f.String("replay", d.Source.ReplayPath, "JSON-lines replay file")
	f.Duration("dial-timeout", d.Source.DialTimeout, "Timeout for connecting to the match bridge")
	f.Int("fanout-buffer", d.Source.FanoutBuffer, "Per-agent snapshot buffer in head-to-head mode")

	// Telemetry
	f.String("metrics-file", d.Telemetry.TextPath, "Append metrics records to this JSON-lines file")
	f.String("nats-url", d.Telemetry.NATSURL, "Publish metrics records to this NATS server")
	f.String("nats-subject", d.Telemetry.NATSSubject, "NATS subject for metrics records")
	f.String("sql-driver", d.Telemetry.SQLDriver, "Metrics database driver (postgres, sqlite)")
	f.String("sql-dsn", d.Telemetry.SQLDSN, "Metrics database DSN")
	f.Duration("publish-timeout", d.Telemetry.PublishTimeout, "Upper bound on one metrics publish")

	// Status surfaces
	f.Duration("check-interval", d.Health.CheckInterval, "Interval between stall checks")
	f.Duration("stale-after", d.Health.StaleAfter, "Mark an agent not serving after this long without a snapshot")
	f.String("http-addr", d.HTTPAddr, "HTTP status listen address (empty disables)")
	f.String("grpc-addr", d.GRPCAddr, "gRPC health listen address (empty disables)")

	rootCmd.AddCommand(runCmd, validateCmd)
}

func initConfig() error {
	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	bind := func(fs *pflag.FlagSet) error {
		var err error
		fs.VisitAll(func(fl *pflag.Flag) {
			if key, ok := flagKeys[fl.Name]; ok && err == nil {
				err = v.BindPFlag(key, fl)
			}
		})
		return err
	}
	if err := bind(rootCmd.PersistentFlags()); err != nil {
		return err
	}
	if err := bind(runCmd.Flags()); err != nil {
		return err
	}

	// FIGHTER_AGENT_ID, FIGHTER_TELEMETRY_NATS_URL, ...
	v.SetEnvPrefix("FIGHTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if strings.EqualFold(cfg.LogFormat, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	logger = logger.Level(level).With().Timestamp().Str("service", "fighter").Logger()
	if err != nil {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, using info")
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
