package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartridge/fighter/internal/config"
	"github.com/cartridge/fighter/internal/controller"
)

var _ snapshotSource = recordedReplay{}

func TestLoadTables_Defaults(t *testing.T) {
	tb, err := loadTables(config.Default())
	require.NoError(t, err)
	assert.NotEmpty(t, tb.frames.Characters())
	assert.Equal(t, controller.DefaultMoves(), tb.moves)
}

func TestLoadTables_MovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moves.yaml")
	require.NoError(t, os.WriteFile(path, []byte("moves:\n  - {name: neutral, stick_x: 0.5, stick_y: 0.5}\n"), 0o644))

	cfg := config.Default()
	cfg.MovesFile = path
	tb, err := loadTables(cfg)
	require.NoError(t, err)
	assert.Len(t, tb.moves, 1)

	cfg.MovesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = loadTables(cfg)
	assert.Error(t, err)
}

func TestFlagKeys_BoundToFlags(t *testing.T) {
	for name := range flagKeys {
		fl := runCmd.Flags().Lookup(name)
		if fl == nil {
			fl = rootCmd.PersistentFlags().Lookup(name)
		}
		assert.NotNil(t, fl, "flag %s", name)
	}
}

func TestNewLogger_FallsBackToInfo(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"
	logger := newLogger(cfg)
	assert.Equal(t, "info", logger.GetLevel().String())
}
