// Package audit persists guard decisions to SQLite so denied writes
// and failed backups stay diagnosable after the fact. Recording is
// strictly observational: an audit failure never changes a decision.
package audit

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hardenfs/prfs"

	_ "modernc.org/sqlite"
)

// Decision is one recorded guard decision.
type Decision struct {
	ID      int64
	At      time.Time
	Name    string
	Mode    prfs.Mode
	Outcome prfs.Outcome
	Detail  string
}

// Store is an append-only decision log backed by SQLite in WAL mode.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the audit database and initializes the schema.
func Open(path string, log *slog.Logger) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if log == nil {
		log = slog.Default()
	}
	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		at      TEXT NOT NULL,
		name    TEXT NOT NULL,
		mode    INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		detail  TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_name ON decisions(name, id);
	CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordDecision implements prfs.DecisionRecorder. Errors are logged
// and swallowed: diagnostics must not influence policy outcomes.
func (s *Store) RecordDecision(name string, mode prfs.Mode, outcome prfs.Outcome, detail string) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO decisions (at, name, mode, outcome, detail) VALUES (?, ?, ?, ?, ?)`,
		now, name, int(mode), string(outcome), detail,
	)
	if err != nil {
		s.log.Warn("audit record failed",
			"name", name,
			"error", err)
	}
}

// Recent returns the latest decisions, newest first.
func (s *Store) Recent(limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, at, name, mode, outcome, COALESCE(detail,'')
		 FROM decisions ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// ForName returns all decisions on a single path, oldest first.
func (s *Store) ForName(name string, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, at, name, mode, outcome, COALESCE(detail,'')
		 FROM decisions WHERE name = ? ORDER BY id ASC LIMIT ?`, name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// CountByOutcome returns the number of decisions per outcome.
func (s *Store) CountByOutcome() (map[prfs.Outcome]int64, error) {
	rows, err := s.db.Query(
		`SELECT outcome, COUNT(*) FROM decisions GROUP BY outcome`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[prfs.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[prfs.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

func scanDecisions(rows *sql.Rows) ([]Decision, error) {
	var decisions []Decision
	for rows.Next() {
		var d Decision
		var atStr, outcomeStr string
		var mode int
		if err := rows.Scan(&d.ID, &atStr, &d.Name, &mode, &outcomeStr, &d.Detail); err != nil {
			return nil, err
		}
		d.Mode = prfs.Mode(mode)
		d.Outcome = prfs.Outcome(outcomeStr)
		var parseErr error
		d.At, parseErr = time.Parse(time.RFC3339Nano, atStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse at time for decision %d: %w", d.ID, parseErr)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
