package anytrain

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteHistory stores the metrics of every epoch in a
// SQLite database, keyed by run.
//
// Several runs may share one database.
type SQLiteHistory struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteHistory creates a history for a run.
// Init must be called before use.
func NewSQLiteHistory(path, runID string) *SQLiteHistory {
	return &SQLiteHistory{path: path, runID: runID}
}

// Init opens the database, creates the tables, and
// registers the run with a free-form description.
func (s *SQLiteHistory) Init(ctx context.Context, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started, description)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description
	`, s.runID, time.Now().UTC().Format(time.RFC3339), description)
	if err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// EpochEnd stores the epoch's metrics.
func (s *SQLiteHistory) EpochEnd(ctx context.Context, l *Loop, r *EpochResult) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for name, x := range r.Values() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO epochs (run_id, epoch, metric, value)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(run_id, epoch, metric) DO UPDATE SET
				value = excluded.value
		`, s.runID, r.Epoch, name, x)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Epochs loads the metrics recorded for a run, indexed by
// epoch.
func (s *SQLiteHistory) Epochs(ctx context.Context, runID string) ([]map[string]float64, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT epoch, metric, value FROM epochs
		WHERE run_id = ?
		ORDER BY epoch
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []map[string]float64
	for rows.Next() {
		var epoch int
		var name string
		var value float64
		if err := rows.Scan(&epoch, &name, &value); err != nil {
			return nil, err
		}
		for len(res) <= epoch {
			res = append(res, map[string]float64{})
		}
		res[epoch][name] = value
	}
	return res, rows.Err()
}

// Close closes the database.
func (s *SQLiteHistory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteHistory) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("history is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started TEXT NOT NULL,
			description TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS epochs (
			run_id TEXT NOT NULL REFERENCES runs(id),
			epoch INTEGER NOT NULL,
			metric TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, epoch, metric)
		);
	`)
	return err
}
