// Package store keeps finished-session history in SQLite.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/verte-zerg/memspan/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session history. The database lives in
// memory: history does not survive the process.
type Store struct {
	db *sql.DB
}

// Open creates the in-memory database and applies migrations.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each pooled connection would otherwise get its own empty :memory: db.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			baseline_acc REAL,
			chunked_acc REAL,
			overall_acc REAL
		);`,
		`CREATE TABLE IF NOT EXISTS session_rounds (
			session_id INTEGER NOT NULL,
			round_number INTEGER NOT NULL,
			phase TEXT NOT NULL,
			target TEXT NOT NULL,
			response TEXT NOT NULL,
			correct INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			errors INTEGER NOT NULL,
			PRIMARY KEY (session_id, round_number)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session summary and its rounds.
func (s *Store) InsertSession(ctx context.Context, summary model.SessionSummary, rounds []model.RoundRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, rounds, baseline_acc, chunked_acc, overall_acc)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		summary.StartedAt.Format(time.RFC3339Nano),
		summary.EndedAt.Format(time.RFC3339Nano),
		summary.Rounds,
		nullableFloat(summary.BaselineAcc),
		nullableFloat(summary.ChunkedAcc),
		nullableFloat(summary.OverallAcc),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(rounds) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_rounds (session_id, round_number, phase, target, response, correct, accuracy, errors)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, r := range rounds {
			if _, err := stmt.ExecContext(ctx, id, r.RoundNumber, r.Phase.String(), r.Target, r.Response, r.Correct, r.Accuracy, r.Errors); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// RecentSummaries returns up to n finished sessions, most recent first.
func (s *Store) RecentSummaries(ctx context.Context, n int) ([]model.HistoryEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, ended_at, rounds, baseline_acc, chunked_acc, overall_acc
		 FROM sessions
		 ORDER BY ended_at DESC, id DESC
		 LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var entries []model.HistoryEntry
	for rows.Next() {
		var entry model.HistoryEntry
		var startedAt, endedAt string
		var baseline, chunked, overall sql.NullFloat64
		if err := rows.Scan(&entry.SessionID, &startedAt, &endedAt, &entry.Summary.Rounds, &baseline, &chunked, &overall); err != nil {
			return nil, err
		}
		if entry.Summary.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if entry.Summary.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		entry.Summary.BaselineAcc = floatPtr(baseline)
		entry.Summary.ChunkedAcc = floatPtr(chunked)
		entry.Summary.OverallAcc = floatPtr(overall)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRounds returns the stored rounds of a session in round order.
func (s *Store) ListRounds(ctx context.Context, sessionID int64) ([]model.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT round_number, phase, target, response, correct, accuracy, errors
		 FROM session_rounds
		 WHERE session_id = ?
		 ORDER BY round_number ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var rounds []model.RoundRecord
	for rows.Next() {
		var r model.RoundRecord
		var phase string
		if err := rows.Scan(&r.RoundNumber, &phase, &r.Target, &r.Response, &r.Correct, &r.Accuracy, &r.Errors); err != nil {
			return nil, err
		}
		if phase == model.PhaseChunked.String() {
			r.Phase = model.PhaseChunked
		}
		r.UsesDelimiters = r.Phase.UsesDelimiters()
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rounds, nil
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
