// Package store persists the outcome of parametric sweeps in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one sweep.
type Run struct {
	ID       int64
	Name     string
	Topology string
	Swept    []string
	Created  time.Time
}

// Point is the outcome of one sweep point.
type Point struct {
	RunID  int64
	Index  int
	Status string
	Err    string
	Swept  map[string]float64
	Values map[string]float64
}

// DB wraps a SQLite database holding sweep runs.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		topology TEXT NOT NULL,
		swept TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS points (
		run_id INTEGER NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		swept_json TEXT NOT NULL,
		values_json TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_points_status ON points(status);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun records a new sweep and returns its ID.
func (d *DB) CreateRun(name, topology string, swept []string) (int64, error) {
	res, err := d.db.Exec(
		"INSERT INTO runs (name, topology, swept, created_at) VALUES (?, ?, ?, ?)",
		name, topology, strings.Join(swept, ","), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// SavePoint records (or replaces) the outcome of one point.
func (d *DB) SavePoint(p Point) error {
	swept, err := json.Marshal(nonNil(p.Swept))
	if err != nil {
		return fmt.Errorf("encode swept values: %w", err)
	}
	values, err := json.Marshal(nonNil(p.Values))
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}
	_, err = d.db.Exec(
		"INSERT OR REPLACE INTO points (run_id, idx, status, error, swept_json, values_json) VALUES (?, ?, ?, ?, ?, ?)",
		p.RunID, p.Index, p.Status, p.Err, string(swept), string(values),
	)
	if err != nil {
		return fmt.Errorf("insert point %d of run %d: %w", p.Index, p.RunID, err)
	}
	return nil
}

// SavePoints records every point in one transaction.
func (d *DB) SavePoints(ps []Point) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO points (run_id, idx, status, error, swept_json, values_json) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for _, p := range ps {
		swept, err := json.Marshal(nonNil(p.Swept))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode swept values: %w", err)
		}
		values, err := json.Marshal(nonNil(p.Values))
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode values: %w", err)
		}
		if _, err := stmt.Exec(p.RunID, p.Index, p.Status, p.Err, string(swept), string(values)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert point %d of run %d: %w", p.Index, p.RunID, err)
		}
	}
	return tx.Commit()
}

// Runs returns every recorded sweep, oldest first.
func (d *DB) Runs() ([]Run, error) {
	rows, err := d.db.Query("SELECT id, name, topology, swept, created_at FROM runs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var (
			r            Run
			swept, stamp string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Topology, &swept, &stamp); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if swept != "" {
			r.Swept = strings.Split(swept, ",")
		}
		if r.Created, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
			return nil, fmt.Errorf("parse run %d time: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Points returns the points of a run in index order.
func (d *DB) Points(runID int64) ([]Point, error) {
	rows, err := d.db.Query("SELECT idx, status, error, swept_json, values_json FROM points WHERE run_id = ? ORDER BY idx", runID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()
	var ps []Point
	for rows.Next() {
		var (
			p             = Point{RunID: runID}
			msg           sql.NullString
			swept, values string
		)
		if err := rows.Scan(&p.Index, &p.Status, &msg, &swept, &values); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Err = msg.String
		if err := json.Unmarshal([]byte(swept), &p.Swept); err != nil {
			return nil, fmt.Errorf("decode swept values of point %d: %w", p.Index, err)
		}
		if err := json.Unmarshal([]byte(values), &p.Values); err != nil {
			return nil, fmt.Errorf("decode values of point %d: %w", p.Index, err)
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
