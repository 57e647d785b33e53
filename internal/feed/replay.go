package feed

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/controller"
	"github.com/cartridge/fighter/internal/gamestate"
)

const maxSnapshotLine = 1 << 20

// ReplayFile reads one JSON snapshot per line.
type ReplayFile struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

var _ Source = (*ReplayFile)(nil)

// OpenReplayFile opens the JSON-lines file at path.
func OpenReplayFile(path string) (*ReplayFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	r := NewReplayReader(f)
	r.closer = f
	return r, nil
}

// NewReplayReader reads snapshots from r.
func NewReplayReader(r io.Reader) *ReplayFile {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxSnapshotLine)
	return &ReplayFile{scanner: s}
}

// Next implements Source. Blank lines are skipped.
func (r *ReplayFile) Next(ctx context.Context) (gamestate.Snapshot, error) {
	for {
		if err := ctx.Err(); err != nil {
			return gamestate.Snapshot{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return gamestate.Snapshot{}, fmt.Errorf("read replay line %d: %w", r.line+1, err)
			}
			return gamestate.Snapshot{}, io.EOF
		}
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var snap gamestate.Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			return gamestate.Snapshot{}, fmt.Errorf("decode replay line %d: %w", r.line, err)
		}
		return snap, nil
	}
}

// Close closes the file when the replay opened it.
func (r *ReplayFile) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// RecordingPad accepts pad commands without a game attached and keeps them
// for inspection.
type RecordingPad struct {
	mu       sync.Mutex
	commands []Command
	logger   zerolog.Logger
}

// NewRecordingPad creates an empty recorder.
func NewRecordingPad(logger zerolog.Logger) *RecordingPad {
	return &RecordingPad{logger: logger.With().Str("component", "recording_pad").Logger()}
}

// Pad returns the pad for port.
func (p *RecordingPad) Pad(port gamestate.Port) controller.Pad {
	return portPad{port: port, sender: p}
}

func (p *RecordingPad) send(_ context.Context, cmd Command) error {
	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	p.mu.Unlock()

	p.logger.Trace().
		Uint8("port", uint8(cmd.Port)).
		Str("op", string(cmd.Op)).
		Str("button", string(cmd.Button)).
		Float64("x", cmd.X).
		Float64("y", cmd.Y).
		Msg("Pad command")
	return nil
}

// Commands returns a copy of everything recorded so far.
func (p *RecordingPad) Commands() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Command, len(p.commands))
	copy(out, p.commands)
	return out
}
