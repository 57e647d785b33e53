package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const metricsSchema = `
CREATE TABLE IF NOT EXISTS agent_metrics (
	agent_id    TEXT NOT NULL,
	tick        BIGINT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	name        TEXT NOT NULL,
	value       DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (agent_id, tick, name)
)`

// SQLSink stores one row per metric value.
type SQLSink struct {
	db     *sql.DB
	insert string
	owned  bool
	logger zerolog.Logger
}

// OpenSQLSink opens dsn with driver and creates the schema.
func OpenSQLSink(ctx context.Context, driver, dsn string, logger zerolog.Logger) (*SQLSink, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQLSink(ctx, db, driver, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLSink uses an existing handle and creates the schema.
func NewSQLSink(ctx context.Context, db *sql.DB, driver string, logger zerolog.Logger) (*SQLSink, error) {
	var insert string
	switch driver {
	case DriverPostgres:
		insert = `INSERT INTO agent_metrics (agent_id, tick, recorded_at, name, value)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (agent_id, tick, name) DO UPDATE SET value = EXCLUDED.value, recorded_at = EXCLUDED.recorded_at`
	case DriverSQLite:
		insert = `INSERT OR REPLACE INTO agent_metrics (agent_id, tick, recorded_at, name, value)
			VALUES (?, ?, ?, ?, ?)`
	default:
		return nil, fmt.Errorf("unsupported metrics driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, metricsSchema); err != nil {
		return nil, fmt.Errorf("create metrics schema: %w", err)
	}
	return &SQLSink{
		db:     db,
		insert: insert,
		logger: logger.With().Str("component", "metrics_sql").Str("driver", driver).Logger(),
	}, nil
}

// Publish implements Sink
func (s *SQLSink) Publish(ctx context.Context, r Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metrics tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insert)
	if err != nil {
		return fmt.Errorf("prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(r.Values))
	for k := range r.Values {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, r.AgentID, int64(r.Tick), r.Timestamp, name, r.Values[name]); err != nil {
			return fmt.Errorf("insert metric %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metrics tx: %w", err)
	}

	s.logger.Debug().Uint64("tick", r.Tick).Int("rows", len(names)).Msg("Stored metrics record")
	return nil
}

// Close closes the database when the sink opened it.
func (s *SQLSink) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
