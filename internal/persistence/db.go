// Package persistence provides SQLite-based run history storage.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/society-sim/internal/agents"
	"github.com/talgya/society-sim/internal/metrics"
	"github.com/talgya/society-sim/internal/sim"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		scenario_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		duration_secs REAL NOT NULL,
		agents INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		summary_json TEXT
	);

	CREATE TABLE IF NOT EXISTS trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		category TEXT NOT NULL,
		duration_secs REAL NOT NULL,
		distance_cells REAL NOT NULL,
		arrived_at_secs REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		clock REAL NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trips_run ON trips(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records the run header at launch.
func (db *DB) StartRun(runID, scenarioID string, durationSecs float64, agentCount int, seed int64) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, scenario_id, started_at, duration_secs, agents, seed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, scenarioID, time.Now().UTC().Format(time.RFC3339), durationSecs, agentCount, seed,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

// FinishRun stamps the run complete and stores its summary report.
func (db *DB) FinishRun(runID string, summary metrics.Summary) error {
	summaryJSON, _ := json.Marshal(summary)
	_, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, summary_json = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), string(summaryJSON), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	return nil
}

// SaveTrip appends one completed trip.
func (db *DB) SaveTrip(runID string, clock float64, t agents.TripSample) error {
	_, err := db.conn.Exec(
		`INSERT INTO trips (run_id, agent_id, category, duration_secs, distance_cells, arrived_at_secs)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, string(t.AgentID), string(t.Category), t.Duration, t.Distance, clock,
	)
	return err
}

// SaveEvents appends a batch of simulation events.
func (db *DB) SaveEvents(runID string, events []sim.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, clock, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Clock, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RunRow is one row of run history.
type RunRow struct {
	ID           string  `db:"id"`
	ScenarioID   string  `db:"scenario_id"`
	StartedAt    string  `db:"started_at"`
	FinishedAt   *string `db:"finished_at"`
	DurationSecs float64 `db:"duration_secs"`
	Agents       int     `db:"agents"`
	Seed         int64   `db:"seed"`
}

// RecentRuns returns the most recent runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	var rows []RunRow
	err := db.conn.Select(&rows,
		`SELECT id, scenario_id, started_at, finished_at, duration_secs, agents, seed
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	return rows, err
}

// TripCount returns the number of trips recorded for a run.
func (db *DB) TripCount(runID string) (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM trips WHERE run_id = ?", runID)
	return n, err
}

// SaveRunState flushes everything a finished run leaves behind.
func (db *DB) SaveRunState(runID string, events []sim.Event, summary metrics.Summary) error {
	slog.Info("saving run state", "run", runID, "events", len(events))

	if err := db.SaveEvents(runID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.FinishRun(runID, summary); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	slog.Info("run state saved", "run", runID)
	return nil
}
