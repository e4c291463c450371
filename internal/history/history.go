// Package history records each batch-operation run (enrichment, synthesis,
// replay, cleanup) in a SQLite database, replacing a scrolling output pane
// as the durable record of what the pipeline did and when.
//
// The store degrades gracefully: if the database cannot be opened, recording
// becomes a no-op rather than blocking pipeline operations.
package history

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one recorded batch-operation run.
type Run struct {
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"` // "ok", "partial", "error", "busy"
	Report     string    `json:"report"`
}

// Store is the SQLite-backed run history.
type Store struct {
	dbPath  string
	log     *slog.Logger
	enabled bool

	mu       sync.Mutex
	db       *sql.DB
	initOnce sync.Once
}

// Open creates a history store at dbPath. The database itself is opened
// lazily on first use.
func Open(dbPath string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{dbPath: dbPath, log: log, enabled: true}
}

func (s *Store) init() {
	s.initOnce.Do(func() {
		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			s.log.Warn("run history disabled", "error", err)
			s.enabled = false
			return
		}
		if err := db.Ping(); err != nil {
			s.log.Warn("run history disabled", "error", err)
			db.Close()
			s.enabled = false
			return
		}
		if _, err := db.Exec(`
			CREATE TABLE IF NOT EXISTS runs (
				id TEXT PRIMARY KEY,
				op TEXT NOT NULL,
				started_at TEXT NOT NULL,
				finished_at TEXT NOT NULL,
				status TEXT NOT NULL,
				report TEXT NOT NULL
			)
		`); err != nil {
			s.log.Warn("run history disabled", "error", err)
			db.Close()
			s.enabled = false
			return
		}
		s.db = db
	})
}

// Record stores one run. Failures are logged, never propagated: history
// must not break the operation it describes.
func (s *Store) Record(op string, startedAt time.Time, status, report string) string {
	s.init()
	if !s.enabled {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, op, started_at, finished_at, status, report) VALUES (?, ?, ?, ?, ?, ?)`,
		id, op,
		startedAt.UTC().Format(time.RFC3339Nano),
		time.Now().UTC().Format(time.RFC3339Nano),
		status, report,
	)
	if err != nil {
		s.log.Warn("recording run failed", "op", op, "error", err)
		return ""
	}
	return id
}

// Recent returns the last n runs, newest first.
func (s *Store) Recent(n int) ([]Run, error) {
	s.init()
	if !s.enabled {
		return nil, nil
	}
	if n <= 0 {
		n = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, op, started_at, finished_at, status, report FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Op, &started, &finished, &r.Status, &r.Report); err != nil {
			return nil, fmt.Errorf("scanning run history: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
