package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes every record as a structured log event.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "metrics_log").Logger()}
}

// Publish implements Sink
func (s *LogSink) Publish(_ context.Context, r Record) error {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dict := zerolog.Dict()
	for _, k := range keys {
		dict = dict.Float64(k, r.Values[k])
	}
	s.logger.Info().
		Str("agent_id", r.AgentID).
		Uint64("tick", r.Tick).
		Dict("values", dict).
		Msg("Metrics flushed")
	return nil
}

// TextSink appends records as JSON lines.
type TextSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewTextSink writes to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// OpenTextSink appends to the file at path, creating it if needed.
func OpenTextSink(path string) (*TextSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open metrics file: %w", err)
	}
	return &TextSink{w: f, closer: f}, nil
}

// Publish implements Sink
func (s *TextSink) Publish(_ context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the underlying file when the sink opened it.
func (s *TextSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []Sink

// Publish implements Sink
func (m MultiSink) Publish(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
