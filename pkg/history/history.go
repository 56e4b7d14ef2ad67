// Package history persists scan outcomes to a local SQLite database so
// editor integrations can restore the last known findings for a file or
// workspace without re-running the scanner. Raw SARIF output is kept
// zstd-compressed alongside the normalized findings.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/blocksecops/editor-sdk/pkg/core"
	"github.com/blocksecops/editor-sdk/pkg/finding"
)

// DefaultMaxAge is how long records are kept before Prune removes them.
const DefaultMaxAge = 30 * 24 * time.Hour

// Record is one persisted scan outcome.
type Record struct {
	ID        string            `json:"id"`
	ScopeKey  string            `json:"scope_key"`
	Target    string            `json:"target"`
	Trigger   core.Trigger      `json:"trigger"`
	ExitCode  int               `json:"exit_code"`
	Duration  time.Duration     `json:"duration"`
	Findings  []finding.Finding `json:"findings"`
	Summary   finding.Summary   `json:"summary"`
	RawSARIF  []byte            `json:"-"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store provides SQLite-backed scan history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// initSchema creates the database tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		scope_key TEXT NOT NULL,
		target TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		findings_count INTEGER NOT NULL,
		findings TEXT NOT NULL,
		raw_sarif BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scans_scope_key ON scans(scope_key);
	CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save persists a scan record. A zero ID gets a fresh UUID; a zero
// CreatedAt gets the current time. Raw SARIF is compressed before
// storage.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	findingsJSON, err := json.Marshal(rec.Findings)
	if err != nil {
		return fmt.Errorf("marshal findings: %w", err)
	}

	var blob []byte
	if len(rec.RawSARIF) > 0 {
		blob, err = compress(rec.RawSARIF)
		if err != nil {
			return fmt.Errorf("compress raw output: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (
			id, scope_key, target, trigger_kind, exit_code, duration_ms,
			findings_count, findings, raw_sarif, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.ScopeKey, rec.Target, string(rec.Trigger), rec.ExitCode,
		rec.Duration.Milliseconds(), len(rec.Findings), string(findingsJSON),
		blob, rec.CreatedAt,
	)

	return err
}

// Latest returns the most recent record for a scope key, or nil when
// the scope has never been scanned.
func (s *Store) Latest(ctx context.Context, scopeKey string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope_key, target, trigger_kind, exit_code, duration_ms, findings, raw_sarif, created_at
		FROM scans
		WHERE scope_key = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, scopeKey)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Recent returns up to limit records for a scope key, newest first.
func (s *Store) Recent(ctx context.Context, scopeKey string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scope_key, target, trigger_kind, exit_code, duration_ms, findings, raw_sarif, created_at
		FROM scans
		WHERE scope_key = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, scopeKey, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Prune removes records older than maxAge and returns how many were
// deleted.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxAge)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM scans WHERE created_at < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Stats summarizes the stored history.
type Stats struct {
	TotalScans    int   `json:"total_scans"`
	TotalFindings int   `json:"total_findings"`
	StorageBytes  int64 `json:"storage_bytes"`
}

// GetStats returns history statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var findings, blobBytes sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), SUM(findings_count), SUM(LENGTH(raw_sarif)) FROM scans
	`).Scan(&stats.TotalScans, &findings, &blobBytes)
	if err != nil {
		return nil, err
	}

	if findings.Valid {
		stats.TotalFindings = int(findings.Int64)
	}
	if blobBytes.Valid {
		stats.StorageBytes = blobBytes.Int64
	}

	return &stats, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var trigger, findingsJSON string
	var durationMs int64
	var blob []byte

	err := row.Scan(
		&rec.ID, &rec.ScopeKey, &rec.Target, &trigger, &rec.ExitCode,
		&durationMs, &findingsJSON, &blob, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Trigger = core.Trigger(trigger)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(findingsJSON), &rec.Findings); err != nil {
		return nil, fmt.Errorf("unmarshal findings: %w", err)
	}
	if len(blob) > 0 {
		rec.RawSARIF, err = decompress(blob)
		if err != nil {
			return nil, fmt.Errorf("decompress raw output: %w", err)
		}
	}
	rec.Summary = finding.Summarize(rec.Findings)

	return &rec, nil
}
