// Package results persists finished runs: a SQLite store for run metadata and
// metric series, and Arrow IPC streams for tabular analysis.
package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"gridabm/pkg/core"
)

// Run is one row of the runs table.
type Run struct {
	ID         string `db:"id"`
	Model      string `db:"model"`
	Seed       int64  `db:"seed"`
	Params     string `db:"params_json"`
	Steps      int    `db:"steps"`
	Reason     string `db:"reason"`
	Error      string `db:"error"`
	StartedAt  string `db:"started_at"`
	DurationMS int64  `db:"duration_ms"`
}

// NewRun describes a finished model run under a fresh run id.
func NewRun(m core.Model, started time.Time, elapsed time.Duration) Run {
	sim := m.Sim()
	params, _ := json.Marshal(m.Parameters().Values())
	run := Run{
		ID:         uuid.NewString(),
		Model:      m.Name(),
		Seed:       sim.RNG().Seed(),
		Params:     string(params),
		Steps:      sim.Steps(),
		Reason:     sim.Reason(),
		StartedAt:  started.UTC().Format(time.RFC3339Nano),
		DurationMS: elapsed.Milliseconds(),
	}
	if err := sim.Err(); err != nil {
		run.Error = err.Error()
	}
	return run
}

// Store wraps a SQLite connection holding run results.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a result database at path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Sweep workers share the store; SQLite takes one writer at a time.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		seed INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		steps INTEGER NOT NULL,
		reason TEXT NOT NULL,
		error TEXT NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL,
		PRIMARY KEY (run_id, step, name)
	);

	CREATE TABLE IF NOT EXISTS agent_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		step INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		species TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	CREATE INDEX IF NOT EXISTS idx_agent_metrics_run ON agent_metrics(run_id, step);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveRun writes the run row and every recorded metric in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, exp core.Export) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO runs
		(id, model, seed, params_json, steps, reason, error, started_at, duration_ms)
		VALUES (:id, :model, :seed, :params_json, :steps, :reason, :error, :started_at, :duration_ms)`, run); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	modelStmt, err := tx.PreparexContext(ctx,
		"INSERT INTO model_metrics (run_id, step, name, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer modelStmt.Close()
	for _, rec := range exp.Model {
		for i, name := range exp.ModelColumns {
			if _, err := modelStmt.ExecContext(ctx, run.ID, rec.Step, name, nullable(rec.Values[i])); err != nil {
				return fmt.Errorf("insert model metric %s@%d: %w", name, rec.Step, err)
			}
		}
	}

	agentStmt, err := tx.PreparexContext(ctx, `INSERT INTO agent_metrics
		(run_id, step, agent_id, species, x, y, name, value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer agentStmt.Close()
	for _, rec := range exp.Agents {
		for i, name := range exp.AgentColumns {
			if _, err := agentStmt.ExecContext(ctx, run.ID, rec.Step, int64(rec.Agent), string(rec.Species),
				rec.X, rec.Y, name, nullable(rec.Values[i])); err != nil {
				return fmt.Errorf("insert agent metric: %w", err)
			}
		}
	}
	return tx.Commit()
}

// nullable maps NaN, which SQLite cannot store as REAL, to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

// Runs returns every stored run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	var runs []Run
	err := s.conn.SelectContext(ctx, &runs, "SELECT * FROM runs ORDER BY started_at, id")
	return runs, err
}

// RunsFor returns the stored runs of one model, oldest first.
func (s *Store) RunsFor(ctx context.Context, model string) ([]Run, error) {
	var runs []Run
	err := s.conn.SelectContext(ctx, &runs, "SELECT * FROM runs WHERE model = ? ORDER BY started_at, id", model)
	return runs, err
}

// Run returns one stored run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.conn.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = ?", id)
	return run, err
}

// Series returns a model column of a run in step order. NULL values come back
// as NaN.
func (s *Store) Series(ctx context.Context, runID, column string) ([]float64, error) {
	var values []sql.NullFloat64
	err := s.conn.SelectContext(ctx, &values,
		"SELECT value FROM model_metrics WHERE run_id = ? AND name = ? ORDER BY step", runID, column)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = v.Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// AgentRows returns how many agent-level values a run stored.
func (s *Store) AgentRows(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM agent_metrics WHERE run_id = ?", runID)
	return n, err
}
